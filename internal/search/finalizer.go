package search

import (
	"fmt"

	"github.com/keyprunk/keyprunk/internal/keygen"
)

// finalizer is the single consumer of the match channel. Each match is
// encoded, written to the output sink as one complete artifact, and counted.
//
// When the quota is reached the finalizer signals stop and returns without
// draining the channel: matches still in flight at that instant are
// discarded, so exactly StopAfter artifacts are ever written. With no quota
// it keeps consuming until the channel closes, which only happens once every
// worker has exited.
func (e *Engine) finalizer(matches <-chan *keygen.Candidate) {
	for candidate := range matches {
		artifact, err := e.opts.Encoder.Encode(candidate, e.opts.Passphrase)
		if err != nil {
			e.fail(fmt.Errorf("encode key %s: %w", candidate.Fingerprint, err))
			return
		}

		if _, err := e.opts.Output.Write(artifact); err != nil {
			e.fail(fmt.Errorf("write key %s: %w", candidate.Fingerprint, err))
			return
		}

		found := e.found.Add(1)
		if e.opts.StopAfter > 0 && found >= e.opts.StopAfter {
			e.signalStop()
			return
		}
	}
}
