package annotate

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker tracks and reports progress of an annotation run. It
// reports annotated records separately from scanned ones because a resumed
// run skips most of what it scans.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	scanned        int
	annotated      int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total number of records in the run
// reportInterval: report progress every N scanned records
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.scanned = 0
	p.annotated = 0
	p.lastReported = 0
}

// Update sets the number of records scanned and annotated so far.
func (p *ProgressTracker) Update(scanned, annotated int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	// Cap at total
	if scanned > p.total {
		scanned = p.total
	}

	p.scanned = scanned
	p.annotated = annotated

	// Report if we've crossed a report interval
	if p.scanned-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.scanned
	}
}

// Finish marks the run as complete and prints final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.scanned = p.total
	p.report()
	fmt.Fprintln(p.writer) // Print newline after final progress
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := float64(p.scanned) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.scanned) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rScanned %d/%d (%.1f%%), annotated %d - %.1f records/s",
		p.scanned, p.total, percentage, p.annotated, rate)
}
