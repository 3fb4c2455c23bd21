package search

import (
	"fmt"

	"github.com/keyprunk/keyprunk/internal/keygen"
)

// worker runs the generate→test→emit loop until stop is observed. The stop
// flag is checked once per iteration, so an attempt already past the check
// runs to completion before the worker exits. There is no sleep or backoff
// in the loop; the only suspension point is the channel send when the
// finalizer is slower than the workers.
func (e *Engine) worker(matches chan<- *keygen.Candidate) {
	for !e.stop.Load() {
		candidate, err := e.opts.Provider.Generate()
		if err != nil {
			e.fail(fmt.Errorf("generate key: %w", err))
			return
		}

		ok, err := e.opts.Matcher.MatchString(candidate.Fingerprint)
		if err != nil {
			e.fail(fmt.Errorf("check fingerprint: %w", err))
			return
		}

		if ok {
			select {
			case matches <- candidate:
			case <-e.stopCh:
				// The finalizer stopped consuming, either because the quota
				// was reached or something failed; this match is discarded.
				e.tried.Add(1)
				return
			}
		}

		// Counted once per completed attempt, match or not.
		e.tried.Add(1)
	}
}
