package core

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/scribe/schema"
)

// captureDone receives the outcome of one executed capture. snapshot is nil
// when either sub-capture failed; the event is retained without state.
type captureDone func(key schema.EventID, tabID schema.TabID, snapshot *schema.StateSnapshot)

type pendingCapture struct {
	key   schema.EventID
	timer *time.Timer
}

// captureScheduler debounces state-capture requests. Each tab holds at most
// one pending capture; scheduling again before the settle delay elapses
// cancels and replaces the pending timer, so a burst of qualifying events
// coalesces into a single capture attached to the newest event. This is a
// debounce, not a queue: only the last request in a burst ever executes.
type captureScheduler struct {
	ctx      context.Context
	delay    time.Duration
	capturer StateCapturer
	done     captureDone
	log      pslog.Logger

	mu      sync.Mutex
	pending map[schema.TabID]*pendingCapture
	closed  bool
}

func newCaptureScheduler(ctx context.Context, delay time.Duration, capturer StateCapturer, done captureDone, log pslog.Logger) *captureScheduler {
	return &captureScheduler{
		ctx:      ctx,
		delay:    delay,
		capturer: capturer,
		done:     done,
		log:      log,
		pending:  make(map[schema.TabID]*pendingCapture),
	}
}

// Schedule arms (or re-arms) the capture timer for tabID, keyed by the
// event id the snapshot will be attached to.
func (s *captureScheduler) Schedule(key schema.EventID, tabID schema.TabID) {
	if s == nil || s.capturer == nil || tabID == "" {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if prev, ok := s.pending[tabID]; ok {
		prev.timer.Stop()
	}
	entry := &pendingCapture{key: key}
	entry.timer = time.AfterFunc(s.delay, func() { s.run(tabID, entry) })
	s.pending[tabID] = entry
	s.mu.Unlock()
	if s.log != nil {
		s.log.Trace("capture scheduled", "event", key, "tab", tabID)
	}
}

// CancelAll stops every pending timer and refuses further schedules. A
// capture whose timer already fired may still be in flight; its result is
// discarded by run's closed check.
func (s *captureScheduler) CancelAll() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.closed = true
	for tabID, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, tabID)
	}
	s.mu.Unlock()
}

func (s *captureScheduler) run(tabID schema.TabID, entry *pendingCapture) {
	s.mu.Lock()
	if s.closed || s.pending[tabID] != entry {
		// Replaced after the timer fired but before we got here.
		s.mu.Unlock()
		return
	}
	delete(s.pending, tabID)
	s.mu.Unlock()

	snapshot, err := s.capturer.CaptureState(s.ctx, tabID)
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	if err != nil {
		if s.log != nil {
			s.log.Warn("state capture failed", "event", entry.key, "tab", tabID, "err", err)
		}
		s.done(entry.key, tabID, nil)
		return
	}
	s.done(entry.key, tabID, &snapshot)
}
