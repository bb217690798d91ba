// Package himalayatest provides test doubles for the himalaya client: a
// scripted Runner for exercising the client against canned program output,
// and an in-memory MockClient for exercising its callers.
package himalayatest

import (
	"context"
	"strings"
	"sync"

	"github.com/wesm/mailtui/internal/himalaya"
)

// Response is one scripted program result.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error // spawn failure
}

// OK is a successful response with the given stdout.
func OK(stdout string) Response { return Response{Stdout: stdout} }

// Fail is a non-zero exit with the given stderr.
func Fail(stderr string) Response { return Response{Stderr: stderr, ExitCode: 1} }

// FakeRunner implements himalaya.Runner with responses keyed by the joined
// argument list. Several responses for one key are returned in order and
// the last one repeats. Unscripted invocations exit 2.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     []himalaya.Invocation
}

var _ himalaya.Runner = (*FakeRunner)(nil)

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string][]Response)}
}

// On scripts the responses for args, e.g. "--quiet envelope list --folder INBOX".
func (f *FakeRunner) On(args string, responses ...Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[args] = append(f.responses[args], responses...)
	return f
}

// Run implements himalaya.Runner.
func (f *FakeRunner) Run(_ context.Context, inv himalaya.Invocation) (himalaya.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inv)

	key := strings.Join(inv.Args, " ")
	queue, ok := f.responses[key]
	if !ok || len(queue) == 0 {
		return himalaya.Output{Stderr: "unexpected invocation: " + key, ExitCode: 2}, nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		f.responses[key] = queue[1:]
	}
	if resp.Err != nil {
		return himalaya.Output{}, resp.Err
	}
	return himalaya.Output{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}, nil
}

// Calls returns every invocation's joined arguments in order.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = strings.Join(c.Args, " ")
	}
	return out
}

// Stdin returns the stdin of the n-th invocation.
func (f *FakeRunner) Stdin(n int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 0 || n >= len(f.calls) {
		return ""
	}
	return f.calls[n].Stdin
}
