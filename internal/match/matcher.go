package match

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultTimeout bounds a single match attempt. Fingerprints are only 40
// characters, so any pattern that takes this long is pathological and the
// timeout error aborts the run rather than letting a worker hang.
const DefaultTimeout = 10 * time.Second

// Pattern is a compiled fingerprint predicate. It wraps a regexp2 expression,
// which supports lookarounds and backreferences beyond what the standard
// regexp syntax allows.
type Pattern struct {
	re     *regexp2.Regexp
	source string
}

// Compile compiles expr into a Pattern. A non-positive timeout falls back to
// DefaultTimeout.
func Compile(expr string, timeout time.Duration) (*Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	re.MatchTimeout = timeout
	return &Pattern{re: re, source: expr}, nil
}

// String returns the original expression text.
func (p *Pattern) String() string {
	return p.source
}

// MatchString reports whether the fingerprint text matches the pattern.
// The fingerprint is expected as uppercase hex with no separators. An error
// (notably a match timeout) means the verdict could not be computed at all.
func (p *Pattern) MatchString(fingerprint string) (bool, error) {
	ok, err := p.re.MatchString(fingerprint)
	if err != nil {
		return false, fmt.Errorf("pattern %q: %w", p.source, err)
	}
	return ok, nil
}
