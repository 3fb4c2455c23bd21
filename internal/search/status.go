package search

import "time"

// statusInterval is the wall-clock cadence of the progress display.
const statusInterval = 250 * time.Millisecond

// statusReporter renders progress every statusInterval. The wait between
// renders is a timer select rather than a plain sleep so signalStop wakes it
// immediately instead of letting it finish the interval. One final render
// happens after stop, guaranteeing the last numbers on screen are the
// terminal counter values.
func (e *Engine) statusReporter() {
	e.opts.Status.Begin()

	timer := time.NewTimer(statusInterval)
	defer timer.Stop()

	for {
		e.renderStatus()

		select {
		case <-timer.C:
			timer.Reset(statusInterval)
		case <-e.stopCh:
			e.renderStatus()
			return
		}
	}
}

// renderStatus snapshots the counters and hands them to the view. The reads
// are independent relaxed loads; the display tolerates benign in-flight lag
// between the two.
func (e *Engine) renderStatus() {
	e.opts.Status.Render(time.Since(e.started), e.tried.Load(), e.found.Load())
}
