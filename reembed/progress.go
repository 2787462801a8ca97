package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many catalog titles a warm-up run has
// embedded, how many failed, and an estimate of the time left.
// It is safe for concurrent use by pool workers.
type ProgressTracker struct {
	mu sync.Mutex
	w  io.Writer

	total    int
	embedded int
	failed   int

	every    int // titles between reports
	reported int // titles processed at the last report
	start    time.Time
	running  bool
}

// NewProgressTracker creates a tracker for total titles that reports to w
// every reportInterval processed titles. A nil writer discards output.
func NewProgressTracker(w io.Writer, total, reportInterval int) *ProgressTracker {
	if w == nil {
		w = io.Discard
	}
	return &ProgressTracker{
		w:     w,
		total: total,
		every: max(reportInterval, 1),
	}
}

// Start resets the counters and starts the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start = time.Now()
	p.running = true
	p.embedded, p.failed, p.reported = 0, 0, 0
}

// Increment records delta embedded titles.
func (p *ProgressTracker) Increment(delta int) {
	p.advance(&p.embedded, delta)
}

// Fail records delta titles whose batch failed.
func (p *ProgressTracker) Fail(delta int) {
	p.advance(&p.failed, delta)
}

func (p *ProgressTracker) advance(counter *int, delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	*counter += min(delta, p.total-p.processed())

	if p.processed()-p.reported >= p.every {
		p.report()
		p.reported = p.processed()
	}
}

// Current returns the number of titles embedded so far.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.embedded
}

// Failed returns the number of titles whose batch failed.
func (p *ProgressTracker) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// Finish writes a final report followed by a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.report()
	fmt.Fprintln(p.w)
}

// Elapsed returns the time since Start, or zero if the tracker never started.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return 0
	}
	return time.Since(p.start)
}

func (p *ProgressTracker) processed() int {
	return p.embedded + p.failed
}

func (p *ProgressTracker) report() {
	elapsed := time.Since(p.start)
	rate := float64(p.processed()) / elapsed.Seconds()

	pct := 0.0
	if p.total > 0 {
		pct = float64(p.embedded) / float64(p.total) * 100
	}

	line := fmt.Sprintf("\rEmbedded: %d/%d titles (%.1f%%) - %.1f titles/s", p.embedded, p.total, pct, rate)
	if p.failed > 0 {
		line += fmt.Sprintf(", %d failed", p.failed)
	}
	if remaining := p.total - p.processed(); remaining > 0 && rate > 0 {
		eta := time.Duration(float64(remaining) / rate * float64(time.Second))
		line += fmt.Sprintf(", eta %s", eta.Round(time.Second))
	}
	fmt.Fprint(p.w, line)
}
