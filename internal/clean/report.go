package clean

import (
	"sync"
	"sync/atomic"
	"time"
)

// Status is the terminal state of one entry's deletion attempt.
type Status int

const (
	StatusDeleted Status = iota
	StatusSimulated
	StatusSkipped
	StatusFailed
)

// String returns the display label for a status.
func (s Status) String() string {
	switch s {
	case StatusDeleted:
		return "deleted"
	case StatusSimulated:
		return "simulated"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the per-entry result of the deletion phase. Immutable once
// produced; exactly one Outcome exists per candidate entry.
type Outcome struct {
	Path   string
	Root   string
	Status Status
	Bytes  int64  // bytes freed (or that would be freed in dry-run)
	Reason string // skip reason or failure detail
	IsDir  bool
}

// Report is the immutable aggregate of a single cleanup run. It is produced
// exactly once, after all workers have finished.
type Report struct {
	Outcomes []Outcome

	FilesDeleted   int
	FilesSimulated int
	DirsRemoved    int
	SkippedCount   int
	FailedCount    int

	BytesReclaimed   int64
	SecurityRejected int64
	PerRoot          map[string]int64 // bytes reclaimed (or simulated) per root

	Elapsed         time.Duration
	FreeSpaceBefore uint64
	FreeSpaceAfter  uint64

	// PendingConfirmation is set when the confirmation threshold halted the
	// run before any destructive work; PendingBytes is the total that needs
	// approval. Zero deletions have occurred in that case.
	PendingConfirmation bool
	PendingBytes        int64

	Warnings []string
}

// collector accumulates outcomes from concurrent workers. Workers share
// nothing else: the slice is append-only behind a mutex and the byte counter
// is atomic, merged into the immutable Report by a single finalize call.
type collector struct {
	mu       sync.Mutex
	outcomes []Outcome
	bytes    atomic.Int64
	onAdd    func(Outcome)
}

func newCollector(onAdd func(Outcome)) *collector {
	return &collector{onAdd: onAdd}
}

func (c *collector) add(o Outcome) {
	if o.Status == StatusDeleted || o.Status == StatusSimulated {
		c.bytes.Add(o.Bytes)
	}
	c.mu.Lock()
	c.outcomes = append(c.outcomes, o)
	c.mu.Unlock()
	if c.onAdd != nil {
		c.onAdd(o)
	}
}

// finalize folds the collected outcomes into a Report. Totals are computed
// from the outcome set itself, so they are identical for any worker count.
func (c *collector) finalize() *Report {
	c.mu.Lock()
	outcomes := c.outcomes
	c.outcomes = nil
	c.mu.Unlock()

	r := &Report{
		Outcomes: outcomes,
		PerRoot:  make(map[string]int64),
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusDeleted:
			if o.IsDir {
				r.DirsRemoved++
			} else {
				r.FilesDeleted++
			}
			r.PerRoot[o.Root] += o.Bytes
		case StatusSimulated:
			if o.IsDir {
				r.DirsRemoved++
			} else {
				r.FilesSimulated++
			}
			r.PerRoot[o.Root] += o.Bytes
		case StatusSkipped:
			r.SkippedCount++
		case StatusFailed:
			r.FailedCount++
		}
	}
	r.BytesReclaimed = c.bytes.Load()
	return r
}
