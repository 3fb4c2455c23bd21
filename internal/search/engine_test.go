package search

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keyprunk/keyprunk/internal/keygen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider hands out fingerprints drawn cyclically from a fixed
// list, so tests control exactly which candidates match.
type scriptedProvider struct {
	calls        atomic.Uint64
	fingerprints []string
	err          error
}

func (p *scriptedProvider) Generate() (*keygen.Candidate, error) {
	if p.err != nil {
		return nil, p.err
	}
	i := p.calls.Add(1) - 1
	return &keygen.Candidate{
		Fingerprint: p.fingerprints[int(i%uint64(len(p.fingerprints)))],
	}, nil
}

// prefixMatcher matches fingerprints by prefix, or fails every verdict.
type prefixMatcher struct {
	prefix string
	err    error
}

func (m prefixMatcher) MatchString(fingerprint string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return strings.HasPrefix(fingerprint, m.prefix), nil
}

// lineEncoder records every candidate it encodes and emits one line per key.
type lineEncoder struct {
	mu      sync.Mutex
	encoded []string
	err     error
}

func (e *lineEncoder) Encode(c *keygen.Candidate, passphrase []byte) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.mu.Lock()
	e.encoded = append(e.encoded, c.Fingerprint)
	e.mu.Unlock()
	return []byte(c.Fingerprint + "\n"), nil
}

func (e *lineEncoder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.encoded)
}

// recordingView remembers the values of every render.
type recordingView struct {
	mu        sync.Mutex
	began     bool
	renders   int
	lastTried uint64
	lastFound uint64
}

func (v *recordingView) Begin() {
	v.mu.Lock()
	v.began = true
	v.mu.Unlock()
}

func (v *recordingView) Render(elapsed time.Duration, tried, found uint64) {
	v.mu.Lock()
	v.renders++
	v.lastTried = tried
	v.lastFound = found
	v.mu.Unlock()
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("sink full")
}

// runEngine runs the engine in a goroutine and joins it with a timeout, so a
// coordination bug fails the test instead of hanging the suite.
func runEngine(t *testing.T, ctx context.Context, e *Engine) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not shut down within timeout")
		return nil
	}
}

func TestRun_StopsAfterQuota(t *testing.T) {
	out := &bytes.Buffer{}
	enc := &lineEncoder{}
	e := New(Options{
		Provider:  &scriptedProvider{fingerprints: []string{"AB00"}},
		Matcher:   prefixMatcher{prefix: "AB"},
		Encoder:   enc,
		Output:    out,
		Workers:   4,
		StopAfter: 3,
	})

	err := runEngine(t, context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), e.Found())
	assert.GreaterOrEqual(t, e.Tried(), uint64(3))
	assert.Equal(t, 3, enc.count())
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 3)
	assert.True(t, e.Stopping())
}

func TestRun_RacingWorkersProduceExactlyQuota(t *testing.T) {
	// Every candidate matches, so all workers compete for the quota at
	// once. Exactly the quota must be written: no duplicates, no undercount.
	out := &bytes.Buffer{}
	enc := &lineEncoder{}
	e := New(Options{
		Provider:  &scriptedProvider{fingerprints: []string{"AA11", "AA22"}},
		Matcher:   prefixMatcher{prefix: "AA"},
		Encoder:   enc,
		Output:    out,
		Workers:   8,
		StopAfter: 5,
	})

	err := runEngine(t, context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), e.Found())
	assert.Equal(t, 5, enc.count())
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 5)
}

func TestRun_NeverMatchingPatternRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enc := &lineEncoder{}
	e := New(Options{
		Provider:  &scriptedProvider{fingerprints: []string{"AB00"}},
		Matcher:   prefixMatcher{prefix: "ZZ"},
		Encoder:   enc,
		Output:    &bytes.Buffer{},
		Workers:   2,
		StopAfter: 1,
	})

	// The run cannot self-terminate; cancel it once enough attempts are in.
	go func() {
		for e.Tried() < 500 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	err := runEngine(t, ctx, e)
	require.NoError(t, err)

	assert.Zero(t, e.Found())
	assert.Zero(t, enc.count())
	assert.GreaterOrEqual(t, e.Tried(), uint64(500))
}

func TestRun_OnlyMatchingCandidatesReachEncoder(t *testing.T) {
	enc := &lineEncoder{}
	e := New(Options{
		Provider:  &scriptedProvider{fingerprints: []string{"AB01", "CD02", "AB03", "EF04"}},
		Matcher:   prefixMatcher{prefix: "AB"},
		Encoder:   enc,
		Output:    &bytes.Buffer{},
		Workers:   3,
		StopAfter: 6,
	})

	err := runEngine(t, context.Background(), e)
	require.NoError(t, err)

	enc.mu.Lock()
	defer enc.mu.Unlock()
	require.Len(t, enc.encoded, 6)
	for _, fingerprint := range enc.encoded {
		assert.True(t, strings.HasPrefix(fingerprint, "AB"),
			"non-matching fingerprint %s reached the encoder", fingerprint)
	}
}

func TestRun_ProviderFailureIsFatal(t *testing.T) {
	genErr := errors.New("entropy exhausted")
	e := New(Options{
		Provider:  &scriptedProvider{fingerprints: []string{"AB00"}, err: genErr},
		Matcher:   prefixMatcher{prefix: "AB"},
		Encoder:   &lineEncoder{},
		Output:    &bytes.Buffer{},
		Workers:   4,
		StopAfter: 1,
	})

	err := runEngine(t, context.Background(), e)
	require.Error(t, err)
	assert.ErrorIs(t, err, genErr)
	assert.Contains(t, err.Error(), "generate key")
	assert.Zero(t, e.Found())
}

func TestRun_MatcherFailureIsFatal(t *testing.T) {
	matchErr := errors.New("match timeout")
	e := New(Options{
		Provider:  &scriptedProvider{fingerprints: []string{"AB00"}},
		Matcher:   prefixMatcher{err: matchErr},
		Encoder:   &lineEncoder{},
		Output:    &bytes.Buffer{},
		Workers:   4,
		StopAfter: 1,
	})

	err := runEngine(t, context.Background(), e)
	require.Error(t, err)
	assert.ErrorIs(t, err, matchErr)
	assert.Contains(t, err.Error(), "check fingerprint")
}

func TestRun_EncoderFailureIsFatal(t *testing.T) {
	encErr := errors.New("corrupt key material")
	e := New(Options{
		Provider:  &scriptedProvider{fingerprints: []string{"AB00"}},
		Matcher:   prefixMatcher{prefix: "AB"},
		Encoder:   &lineEncoder{err: encErr},
		Output:    &bytes.Buffer{},
		Workers:   2,
		StopAfter: 1,
	})

	err := runEngine(t, context.Background(), e)
	require.Error(t, err)
	assert.ErrorIs(t, err, encErr)
	assert.Contains(t, err.Error(), "encode key")
	assert.Zero(t, e.Found())
}

func TestRun_WriteFailureIsFatal(t *testing.T) {
	e := New(Options{
		Provider:  &scriptedProvider{fingerprints: []string{"AB00"}},
		Matcher:   prefixMatcher{prefix: "AB"},
		Encoder:   &lineEncoder{},
		Output:    failWriter{},
		Workers:   2,
		StopAfter: 1,
	})

	err := runEngine(t, context.Background(), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write key")
	// Nothing landed in the sink, so nothing was counted as found.
	assert.Zero(t, e.Found())
}

func TestRun_StatusReporterRendersFinalCounters(t *testing.T) {
	view := &recordingView{}
	e := New(Options{
		Provider:  &scriptedProvider{fingerprints: []string{"AB00"}},
		Matcher:   prefixMatcher{prefix: "AB"},
		Encoder:   &lineEncoder{},
		Output:    &bytes.Buffer{},
		Status:    view,
		Workers:   2,
		StopAfter: 1,
	})

	err := runEngine(t, context.Background(), e)
	require.NoError(t, err)

	view.mu.Lock()
	defer view.mu.Unlock()
	assert.True(t, view.began)
	// At least the immediate render plus the final one after stop.
	assert.GreaterOrEqual(t, view.renders, 2)
	assert.Equal(t, uint64(1), view.lastFound)
	assert.LessOrEqual(t, view.lastTried, e.Tried())
}

func TestRun_PassphraseIsHandedToEncoder(t *testing.T) {
	var got atomic.Value
	enc := encoderFunc(func(c *keygen.Candidate, passphrase []byte) ([]byte, error) {
		got.Store(string(passphrase))
		return []byte(c.Fingerprint + "\n"), nil
	})
	e := New(Options{
		Provider:   &scriptedProvider{fingerprints: []string{"AB00"}},
		Matcher:    prefixMatcher{prefix: "AB"},
		Encoder:    enc,
		Output:     &bytes.Buffer{},
		Workers:    1,
		StopAfter:  1,
		Passphrase: []byte("hunter2"),
	})

	err := runEngine(t, context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got.Load())
}

type encoderFunc func(c *keygen.Candidate, passphrase []byte) ([]byte, error)

func (f encoderFunc) Encode(c *keygen.Candidate, passphrase []byte) ([]byte, error) {
	return f(c, passphrase)
}
