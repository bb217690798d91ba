package himalaya

import (
	"context"
	"errors"
	"regexp"

	"golang.org/x/mod/semver"
)

var versionRe = regexp.MustCompile(`\bv?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)\b`)

// Version runs the program with --version and returns its semantic version
// with a leading "v". It doubles as the check that the program exists.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, Invocation{Args: []string{"--version"}})
	if err != nil {
		return "", &ClientError{Op: "version", Kind: KindInvocationFailed, Err: err}
	}
	text := out.Stdout + "\n" + out.Stderr
	if out.ExitCode != 0 {
		return "", &ClientError{Op: "version", Kind: KindRejected, Diagnostic: firstNonEmpty(out.Stderr, out.Stdout)}
	}
	return parseVersion(text)
}

func parseVersion(text string) (string, error) {
	m := versionRe.FindStringSubmatch(text)
	if m == nil {
		return "", parseError("version", "text", errors.New("no version number"), text)
	}
	v := "v" + m[1]
	if !semver.IsValid(v) {
		return "", parseError("version", "text", errors.New("invalid version "+v), text)
	}
	return semver.Canonical(v), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
