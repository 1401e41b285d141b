package syncer

import "time"

// ScanState is where a feed scan stands. Every state except ScanScanning is terminal.
type ScanState int

const (
	ScanScanning ScanState = iota
	// ScanCheckpointFound: the stored checkpoint item was reached. It is not reprocessed.
	ScanCheckpointFound
	// ScanWindowExceeded: an item older than the sync window was reached.
	ScanWindowExceeded
	// ScanExhausted: the feed ran out or the page cap was hit.
	ScanExhausted
)

func (s ScanState) String() string {
	switch s {
	case ScanScanning:
		return "scanning"
	case ScanCheckpointFound:
		return "checkpoint_found"
	case ScanWindowExceeded:
		return "window_exceeded"
	case ScanExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// feedScan decides, item by item, whether a newest-first feed scan continues
type feedScan struct {
	checkpoint  string
	windowStart time.Time
	state       ScanState
	newest      string
}

func newFeedScan(checkpoint string, windowStart time.Time) *feedScan {
	return &feedScan{checkpoint: checkpoint, windowStart: windowStart}
}

// observe moves the scan forward by one item and returns the resulting state
func (s *feedScan) observe(id string, createdAt time.Time) ScanState {
	if s.state != ScanScanning {
		return s.state
	}
	if id == s.checkpoint {
		s.state = ScanCheckpointFound
	} else if !createdAt.IsZero() && createdAt.Before(s.windowStart) {
		s.state = ScanWindowExceeded
	}
	return s.state
}

// exhaust ends a scan that is still running because no more items will come
func (s *feedScan) exhaust() {
	if s.state == ScanScanning {
		s.state = ScanExhausted
	}
}

// markNewest records id as the newest recognized item if none was recorded yet
func (s *feedScan) markNewest(id string) {
	if s.newest == "" {
		s.newest = id
	}
}

// stale reports whether the first recognized item was the stored checkpoint itself
func (s *feedScan) stale() bool {
	return s.state == ScanCheckpointFound && s.newest == ""
}
