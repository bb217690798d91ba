// Package himalaya drives the himalaya mail CLI as a subprocess and
// normalizes its output into typed mail records.
//
// Every operation prefers the program's JSON output and falls back to its
// human-readable tables when JSON is unavailable or malformed. Failures are
// returned as *ClientError.
package himalaya

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wesm/mailtui/internal/textutil"
)

// DefaultBinary is the program name looked up on PATH.
const DefaultBinary = "himalaya"

// Options configures a Client.
type Options struct {
	Binary  string // mail program to run; DefaultBinary when empty
	Account string // --account value; empty uses the program's default
}

// Option customizes a Client.
type Option func(*Client)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithLogger sets the logger used for invocation tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client runs mail operations through the himalaya CLI. It holds no state
// between calls apart from its options.
type Client struct {
	opts   Options
	runner Runner
	logger *slog.Logger
}

// New creates a Client.
func New(opts Options, options ...Option) *Client {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	c := &Client{
		opts:   opts,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range options {
		o(c)
	}
	if c.runner == nil {
		c.runner = ExecRunner{Binary: opts.Binary}
	}
	return c
}

// Account returns the account the client is bound to, or "".
func (c *Client) Account() string { return c.opts.Account }

// Binary returns the mail program the client runs.
func (c *Client) Binary() string { return c.opts.Binary }

// WithAccount returns a copy of c bound to another account.
func (c *Client) WithAccount(name string) *Client {
	cp := *c
	cp.opts.Account = name
	return &cp
}

// request describes one invocation before global flags are applied.
type request struct {
	op    string
	args  []string
	stdin string
	json  bool // prepend --output json
}

// result is the cleaned output of a successful run.
type result struct {
	stdout string
	stderr string
}

// argv assembles the full argument list: global flags first, then the
// subcommand, then --account.
func (c *Client) argv(req request, quiet bool) []string {
	var args []string
	if quiet {
		args = append(args, "--quiet")
	}
	if req.json {
		args = append(args, "--output", "json")
	}
	args = append(args, req.args...)
	if c.opts.Account != "" {
		args = append(args, "--account", c.opts.Account)
	}
	return args
}

// run executes req. A missing --quiet flag is retried once without it, and a
// non-zero exit that reports success is treated as success.
func (c *Client) run(ctx context.Context, req request) (result, error) {
	quiet := true
	for {
		args := c.argv(req, quiet)
		c.logger.Debug("himalaya run", "op", req.op, "args", strings.Join(args, " "), "stdin_len", len(req.stdin))

		out, err := c.runner.Run(ctx, Invocation{Args: args, Stdin: req.stdin})
		if err != nil {
			c.logger.Warn("himalaya spawn failed", "op", req.op, "err", eris.ToString(err, true))
			return result{}, &ClientError{Op: req.op, Kind: KindInvocationFailed, Err: err}
		}

		res := result{
			stdout: textutil.CleanOutput([]byte(out.Stdout)),
			stderr: textutil.CleanOutput([]byte(out.Stderr)),
		}
		c.logger.Debug("himalaya exit", "op", req.op, "code", out.ExitCode,
			"stdout_len", len(res.stdout), "stderr_len", len(res.stderr))

		if out.ExitCode == 0 {
			return res, nil
		}
		if quiet && isUnexpectedArgument(res.stdout+"\n"+res.stderr, "--quiet") {
			c.logger.Debug("himalaya rejected --quiet, retrying without it", "op", req.op)
			quiet = false
			continue
		}
		if isSoftSuccess(res.stdout, res.stderr) {
			return res, nil
		}

		diag := res.stderr
		if diag == "" {
			diag = res.stdout
		}
		if diag == "" {
			diag = "command failed: " + c.opts.Binary + " " + strings.Join(args, " ")
		}
		c.logger.Warn("himalaya failed", "op", req.op, "code", out.ExitCode, "diag", textutil.TruncateRunes(diag, 400))
		return result{}, &ClientError{
			Op:         req.op,
			Kind:       classify(diag),
			Diagnostic: diag,
			Err:        eris.Errorf("%s exited with status %d", c.opts.Binary, out.ExitCode),
		}
	}
}

// attempt is one strategy in an operation's fallback chain. when, if set,
// decides from the previous failure whether this attempt applies.
type attempt[T any] struct {
	name string
	when func(prev error) bool
	run  func(ctx context.Context) (T, error)
}

// runAttempts tries each attempt in order and returns the first success.
// When every applicable attempt fails, the last failure is returned.
// A spawn failure ends the chain immediately.
func runAttempts[T any](ctx context.Context, logger *slog.Logger, op string, attempts []attempt[T]) (T, error) {
	var zero T
	var lastErr error
	for i, a := range attempts {
		if i > 0 && a.when != nil && !a.when(lastErr) {
			break
		}
		v, err := a.run(ctx)
		if err == nil {
			if i > 0 {
				logger.Debug("fallback succeeded", "op", op, "attempt", a.name)
			}
			return v, nil
		}
		logger.Debug("attempt failed", "op", op, "attempt", a.name, "err", err)
		lastErr = err
		if KindOf(err) == KindInvocationFailed || ctx.Err() != nil {
			break
		}
	}
	return zero, lastErr
}

// parseError builds a parse-failed ClientError.
func parseError(op, format string, cause error, output string) *ClientError {
	return &ClientError{
		Op:         op,
		Kind:       KindParseFailed,
		Diagnostic: textutil.TruncateRunes(textutil.FirstLine(output), 200),
		Err:        eris.Wrapf(cause, "parse %s output", format),
	}
}
