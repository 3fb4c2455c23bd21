// Package termstatus renders the live search status as a fixed five-line
// block that overwrites itself in place.
package termstatus

import (
	"fmt"
	"io"
	"time"
)

const (
	// numberWidth right-aligns the counters so the block stays stable as
	// they grow.
	numberWidth = 12

	// cursorUp moves the cursor to the beginning of the previous line.
	cursorUp = "\x1b[F"
)

// Renderer writes the status block to w, normally stderr.
type Renderer struct {
	w io.Writer
}

// New creates a Renderer writing to w.
func New(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Begin reserves the five lines every subsequent Render overwrites.
func (r *Renderer) Begin() {
	fmt.Fprint(r.w, "\n\n\n\n\n")
}

// Render overwrites the block with the current elapsed time, counters and
// throughput.
func (r *Renderer) Render(elapsed time.Duration, tried, found uint64) {
	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(tried) / secs
	}

	fmt.Fprintf(r.w,
		cursorUp+cursorUp+cursorUp+cursorUp+cursorUp+
			"Time:  %s\n"+
			"Tried: %*d keys\n"+
			"Rate:  %*.0f keys/s\n"+
			"---\n"+
			"Found: %*d keys\n",
		formatDHMS(elapsed),
		numberWidth, tried,
		numberWidth, rate,
		numberWidth, found)
}

// formatDHMS decomposes a duration into days, hours, minutes and seconds.
func formatDHMS(d time.Duration) string {
	seconds := int64(d.Seconds())
	minutes, seconds := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60
	days, hours := hours/24, hours%24

	return fmt.Sprintf("%dd %2dh %2dm %2ds", days, hours, minutes, seconds)
}
