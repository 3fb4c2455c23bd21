// Package search implements the concurrent vanity search pipeline.
//
// The engine runs a fixed set of goroutines for the lifetime of a run:
//   - W workers, each a generate→test→emit loop
//   - one finalizer consuming matches, encoding and writing them
//   - zero or one status reporter on a fixed cadence
//
// Matches flow worker → channel → finalizer; the stop signal flows from the
// finalizer (quota reached), a fatal error, or external cancellation back to
// every worker and the reporter. Shared mutable state is limited to the two
// counters and the stop flag, all accessed with atomics; no causal ordering
// between them is required, so relaxed visibility is enough.
package search

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/keyprunk/keyprunk/internal/keygen"
)

// KeyProvider produces candidate keys. A generation failure means the
// environment cannot produce keys at all and is fatal for the run.
type KeyProvider interface {
	Generate() (*keygen.Candidate, error)
}

// Matcher tests an uppercase hex fingerprint against the configured pattern.
// A verdict error (including a pattern timeout) is fatal for the run.
type Matcher interface {
	MatchString(fingerprint string) (bool, error)
}

// Encoder turns a matching candidate into one self-delimited artifact.
type Encoder interface {
	Encode(c *keygen.Candidate, passphrase []byte) ([]byte, error)
}

// StatusView renders run progress. The engine hands it values it has already
// snapshotted; implementations never touch shared state.
type StatusView interface {
	Begin()
	Render(elapsed time.Duration, tried, found uint64)
}

// Options configures an Engine. All collaborators are required except
// Status, which may be nil to disable progress reporting.
type Options struct {
	Provider   KeyProvider
	Matcher    Matcher
	Encoder    Encoder
	Output     io.Writer
	Status     StatusView
	Workers    int
	StopAfter  uint64 // 0 = run until externally cancelled
	Passphrase []byte // nil = unencrypted artifacts
}

// Engine coordinates the search. Create one per run with New; an Engine is
// not reusable after Run returns.
type Engine struct {
	opts    Options
	started time.Time

	// Monotonic counters. tried is written by every worker, found only by
	// the finalizer; both are read concurrently by the status reporter.
	tried atomic.Uint64
	found atomic.Uint64

	// Stop coordinator: the flag is polled by workers once per iteration,
	// the channel wakes anything blocked in a select. Both transition
	// exactly once per run.
	stop     atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}

	errOnce sync.Once
	runErr  error
}

// New creates an Engine for the given options.
func New(opts Options) *Engine {
	return &Engine{
		opts:   opts,
		stopCh: make(chan struct{}),
	}
}

// Tried returns the number of completed generation attempts so far.
func (e *Engine) Tried() uint64 {
	return e.tried.Load()
}

// Found returns the number of artifacts written so far.
func (e *Engine) Found() uint64 {
	return e.found.Load()
}

// Stopping reports whether shutdown has been signalled.
func (e *Engine) Stopping() bool {
	return e.stop.Load()
}

// Run executes the search until the match quota is reached, a fatal error
// occurs, or ctx is cancelled. It blocks until every goroutine it spawned
// has exited, and returns the first fatal error (nil on a clean stop).
func (e *Engine) Run(ctx context.Context) error {
	e.started = time.Now()
	matches := make(chan *keygen.Candidate)

	var workers sync.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			e.worker(matches)
		}()
	}

	var consumers sync.WaitGroup
	if e.opts.Status != nil {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			e.statusReporter()
		}()
	}
	consumers.Add(1)
	go func() {
		defer consumers.Done()
		e.finalizer(matches)
	}()

	// Map external cancellation onto the stop coordinator so Ctrl+C unwinds
	// the run the same way a reached quota does.
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			e.signalStop()
		case <-e.stopCh:
		}
	}()

	workers.Wait()
	// All producers are gone; closing the channel releases a finalizer that
	// is still waiting for matches in unbounded mode.
	close(matches)
	consumers.Wait()
	<-watcherDone

	return e.runErr
}

// signalStop sets the stop flag and wakes everything blocked on the stop
// channel. Idempotent.
func (e *Engine) signalStop() {
	e.stopOnce.Do(func() {
		e.stop.Store(true)
		close(e.stopCh)
	})
}

// fail records the first fatal error and unwinds the whole run. No operation
// in the pipeline is retried: each either succeeds deterministically or
// indicates an unrecoverable environment fault.
func (e *Engine) fail(err error) {
	e.errOnce.Do(func() {
		e.runErr = err
	})
	e.signalStop()
}
