package enrichment

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress prints a single carriage-return line of progress for a long pass
// over the store. It is safe for concurrent use by pool workers.
type Progress struct {
	w        io.Writer
	label    string
	total    int
	interval int

	mu       sync.Mutex
	done     int
	reported int
	start    time.Time
}

// NewProgress creates a tracker that reports every interval notebooks.
// A nil writer discards output.
func NewProgress(w io.Writer, label string, total, interval int) *Progress {
	if w == nil {
		w = io.Discard
	}
	if interval < 1 {
		interval = 1
	}
	return &Progress{w: w, label: label, total: total, interval: interval, start: time.Now()}
}

// Add records n more finished notebooks.
func (p *Progress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = min(p.done+n, p.total)
	if p.done-p.reported >= p.interval {
		p.print()
		p.reported = p.done
	}
}

// Done returns the number of finished notebooks.
func (p *Progress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish prints the final line followed by a newline.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.print()
	fmt.Fprintln(p.w)
}

// Elapsed returns the time since the tracker was created.
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.start)
}

func (p *Progress) print() {
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.w, "\r%s: %d/%d (%.1f%%) - %.1f notebooks/s",
		p.label, p.done, p.total, pct, float64(p.done)/p.Elapsed().Seconds())
}
