package core

import (
	"sync"
	"time"

	"pkt.systems/scribe/schema"
)

// qualifyingActions is the set of action types that trigger a state capture.
// Key events are too granular to snapshot individually; their effects show
// up through the input/change events they produce.
var qualifyingActions = map[schema.ActionType]bool{
	schema.ActionSessionStart: true,
	schema.ActionSessionEnd:   true,
	schema.ActionClick:        true,
	schema.ActionDblClick:     true,
	schema.ActionInput:        true,
	schema.ActionChange:       true,
	schema.ActionScroll:       true,
	schema.ActionNavigation:   true,
	schema.ActionTabSwitched:  true,
	schema.ActionTabOpened:    true,
	schema.ActionTabClosed:    true,
}

// recordingSession owns one recording's append-only event log and the
// active-tab pointer. Event ids are assigned in append order and are unique
// within the session.
type recordingSession struct {
	id         schema.SessionID
	title      string
	startedAt  time.Time
	initialTab schema.TabID
	initialURL string
	scheduler  *captureScheduler
	maxEvents  int

	mu        sync.Mutex
	activeTab schema.TabID
	viewport  *schema.Viewport
	events    []schema.CapturedEvent
	nextID    schema.EventID
	finalized bool
	recording schema.Recording
}

func newRecordingSession(initial schema.TabRef, title string, maxEvents int) *recordingSession {
	return &recordingSession{
		id:         schema.SessionID(newID()),
		title:      title,
		startedAt:  time.Now().UTC(),
		initialTab: initial.ID,
		initialURL: initial.URL,
		maxEvents:  maxEvents,
		activeTab:  initial.ID,
		nextID:     1,
	}
}

// AddEvent appends an event to the log and, for qualifying action types,
// schedules a state capture keyed by the new event's id against the current
// active tab. Scheduling is fire-and-forget; the snapshot is attached in
// place once ready.
func (s *recordingSession) AddEvent(action schema.ActionDescriptor, target *schema.ElementContext) (schema.EventID, bool) {
	s.mu.Lock()
	if s.finalized || len(s.events) >= s.maxEvents {
		s.mu.Unlock()
		return 0, false
	}
	id := s.nextID
	s.nextID++
	s.events = append(s.events, schema.CapturedEvent{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Target:    target,
	})
	tab := s.activeTab
	scheduler := s.scheduler
	s.mu.Unlock()

	if qualifyingActions[action.Type] && tab != "" && scheduler != nil {
		scheduler.Schedule(id, tab)
	}
	return id, true
}

// AttachState sets the late-bound state field for the event. Exactly one
// attach can occur per event id because the scheduler only executes one
// capture per key. Attaches after finalize are dropped.
func (s *recordingSession) AttachState(id schema.EventID, snapshot *schema.StateSnapshot) bool {
	if snapshot == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return false
	}
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].State = snapshot
			return true
		}
	}
	return false
}

// ActiveTab returns the current capture target, empty when none is alive.
func (s *recordingSession) ActiveTab() schema.TabID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTab
}

// SetActiveTab moves the active-tab pointer. It performs no event append;
// the orchestrator records the corresponding tab_switched event so the
// bookkeeping happens exactly once.
func (s *recordingSession) SetActiveTab(id schema.TabID) {
	s.mu.Lock()
	s.activeTab = id
	s.mu.Unlock()
}

// SetViewport records the viewport reported by the probe. First report wins.
func (s *recordingSession) SetViewport(vp *schema.Viewport) {
	if vp == nil {
		return
	}
	s.mu.Lock()
	if s.viewport == nil {
		copied := *vp
		s.viewport = &copied
	}
	s.mu.Unlock()
}

// Finalize appends the terminal session_end event, cancels pending capture
// schedules, and freezes the log into a Recording. A second call returns
// the same Recording without side effects.
func (s *recordingSession) Finalize(title, narration, audio string) schema.Recording {
	s.mu.Lock()
	if s.finalized {
		rec := s.recording
		s.mu.Unlock()
		return rec
	}
	now := time.Now().UTC()
	s.events = append(s.events, schema.CapturedEvent{
		ID:        s.nextID,
		Timestamp: now,
		Action:    schema.ActionDescriptor{Type: schema.ActionSessionEnd},
	})
	s.nextID++
	s.finalized = true
	ended := now
	events := make([]schema.CapturedEvent, len(s.events))
	copy(events, s.events)
	s.recording = schema.Recording{
		ID:    schema.RecordingID(s.id),
		Title: title,
		Session: schema.Session{
			ID:           s.id,
			StartedAt:    s.startedAt,
			EndedAt:      &ended,
			InitialTabID: s.initialTab,
			InitialURL:   s.initialURL,
		},
		Narration:   narration,
		AudioBase64: audio,
		Viewport:    s.viewport,
		Events:      events,
	}
	rec := s.recording
	scheduler := s.scheduler
	s.mu.Unlock()

	if scheduler != nil {
		scheduler.CancelAll()
	}
	return rec
}
