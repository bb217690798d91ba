package himalaya

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a ClientError.
type ErrorKind int

const (
	// KindInvocationFailed means the mail program could not be started.
	KindInvocationFailed ErrorKind = iota + 1
	// KindParseFailed means no output format could be recognized.
	KindParseFailed
	// KindRejected means the program ran but refused the operation.
	KindRejected
	// KindNotFound means the referenced message or folder does not exist.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvocationFailed:
		return "invocation-failed"
	case KindParseFailed:
		return "parse-failed"
	case KindRejected:
		return "rejected-by-remote"
	case KindNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// ClientError is returned by every Client operation that fails.
// Diagnostic carries the mail program's own text, ANSI-stripped.
type ClientError struct {
	Op         string
	Kind       ErrorKind
	Diagnostic string
	Err        error
}

func (e *ClientError) Error() string {
	if e.Diagnostic == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s (%s)", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s (%s): %s", e.Op, e.Kind, e.Diagnostic)
}

func (e *ClientError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first ClientError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// DiagnosticOf returns the mail program's text carried by err, falling back
// to err.Error() for errors that are not ClientErrors.
func DiagnosticOf(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) && ce.Diagnostic != "" {
		return ce.Diagnostic
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsMissingSender reports whether a send failed because no From address
// could be determined.
func IsMissingSender(err error) bool {
	return containsFold(DiagnosticOf(err), "cannot send message without a sender")
}

var notFoundPatterns = []string{
	"not found",
	"cannot find",
	"doesn't exist",
	"does not exist",
	"no such",
}

// classify maps a non-zero exit's diagnostic to an error kind.
func classify(diag string) ErrorKind {
	lower := strings.ToLower(diag)
	for _, p := range notFoundPatterns {
		if strings.Contains(lower, p) {
			return KindNotFound
		}
	}
	return KindRejected
}

func isSoftSuccess(stdout, stderr string) bool {
	return containsFold(stdout+"\n"+stderr, "successfully")
}

// isUnexpectedArgument reports whether the program rejected flag as unknown.
func isUnexpectedArgument(diag, flag string) bool {
	return containsFold(diag, "unexpected argument '"+flag)
}

// retryAsText reports whether a failed JSON attempt may succeed as plain
// text: its output did not parse, or the program does not know --output.
func retryAsText(prev error) bool {
	switch KindOf(prev) {
	case KindRejected, KindNotFound:
		return isUnsupportedOutput(DiagnosticOf(prev))
	}
	return true
}

func isUnsupportedOutput(diag string) bool {
	return isUnexpectedArgument(diag, "--output") ||
		containsFold(diag, "invalid value 'json'")
}

func isMissingTrash(diag string) bool {
	lower := strings.ToLower(diag)
	return strings.Contains(lower, "no folder trash") ||
		(strings.Contains(lower, "trash") && strings.Contains(lower, "cannot move imap message"))
}

// isSendCopyFailure reports whether a send only failed while appending the
// sent copy to the Sent folder, after the message itself went out.
func isSendCopyFailure(diag string) bool {
	lower := strings.ToLower(diag)
	if !strings.Contains(lower, "cannot add imap message") {
		return false
	}
	missingFolder := strings.Contains(lower, "cannot resolve imap task") &&
		(strings.Contains(lower, "folder doesn't exist") || strings.Contains(lower, "folder does not exist"))
	legacyStream := strings.Contains(lower, "stream error") ||
		strings.Contains(lower, "unexpected tag in command completion result")
	return missingFolder || legacyStream
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
