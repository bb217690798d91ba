package himalaya

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// Invocation is one run of the mail program.
type Invocation struct {
	Args  []string
	Stdin string
}

// Output is what a finished run produced. Stdout and Stderr are raw.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes the mail program. A non-nil error means the process
// could not be run at all; a non-zero exit is reported through Output.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Output, error)
}

// ExecRunner runs Binary as a child process with color output disabled.
type ExecRunner struct {
	Binary string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, inv Invocation) (Output, error) {
	cmd := exec.CommandContext(ctx, r.Binary, inv.Args...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1", "CLICOLOR=0")
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, eris.Wrapf(ctxErr, "run %s", r.Binary)
	}
	return out, eris.Wrapf(err, "run %s", r.Binary)
}
