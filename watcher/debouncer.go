package watcher

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Kind is what happened to a path, as far as analysis is concerned.
type Kind int

const (
	// Changed covers creation and modification.
	Changed Kind = iota
	// Removed covers deletion and renaming away.
	Removed
)

func (k Kind) String() string {
	if k == Removed {
		return "removed"
	}
	return "changed"
}

// Change is a coalesced file system event.
type Change struct {
	Path string
	Kind Kind
}

// Debouncer collects changes and emits them as one batch after a quiet period.
// Multiple changes for the same path within the window collapse into the latest one.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	pending  map[string]Kind
	timer    *time.Timer
	stopped  bool
	output   chan []Change
}

// NewDebouncer creates a debouncer with the specified quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]Kind),
		output:   make(chan []Change, 16),
	}
}

// Output returns the channel that receives batches sorted by path.
func (d *Debouncer) Output() <-chan []Change {
	return d.output
}

// Add records a change and restarts the quiet period.
func (d *Debouncer) Add(path string, kind Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = kind
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Stop discards pending changes. Later Adds are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	clear(d.pending)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}
	batch := make([]Change, 0, len(d.pending))
	for path, kind := range d.pending {
		batch = append(batch, Change{Path: path, Kind: kind})
	}
	slices.SortFunc(batch, func(a, b Change) int { return strings.Compare(a.Path, b.Path) })
	clear(d.pending)

	select {
	case d.output <- batch:
	default:
		// Consumer is behind; keep the changes for the next flush.
		for _, c := range batch {
			d.pending[c.Path] = c.Kind
		}
		d.timer = time.AfterFunc(d.interval, d.flush)
	}
}
