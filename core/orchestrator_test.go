package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/scribe/schema"
)

func testConfig(t *testing.T) schema.RecorderConfig {
	t.Helper()
	return schema.RecorderConfig{
		StateDir:           t.TempDir(),
		HeartbeatInterval:  20 * time.Millisecond,
		PingTimeout:        20 * time.Millisecond,
		CaptureSettleDelay: 20 * time.Millisecond,
		TabSwitchGrace:     time.Millisecond,
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeRuntime, *fakeCapturer, *fakeStore, *fakeSink) {
	t.Helper()
	rt := newFakeRuntime(schema.TabRef{ID: "tab-7", URL: "https://example.com"})
	capturer := &fakeCapturer{}
	store := newFakeStore()
	sink := &fakeSink{}
	o, err := NewOrchestrator(testConfig(t), Deps{
		Runtime:     rt,
		Capturer:    capturer,
		Store:       store,
		Synthesizer: fakeSynth{},
		Sink:        sink,
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o, rt, capturer, store, sink
}

func mustStart(t *testing.T, o *Orchestrator, tabID schema.TabID) schema.StartRecordingResponse {
	t.Helper()
	resp, err := o.Start(context.Background(), schema.StartRecordingRequest{TabID: tabID})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return resp
}

func TestStartWhileRecordingFails(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(t)
	mustStart(t, o, "")
	defer o.Stop(context.Background(), schema.StopRecordingRequest{})

	if _, err := o.Start(context.Background(), schema.StartRecordingRequest{}); !errors.Is(err, schema.ErrAlreadyRecording) {
		t.Fatalf("second start error = %v, want ErrAlreadyRecording", err)
	}
}

func TestStartResolvesActiveTabWhenUnspecified(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(t)
	resp := mustStart(t, o, "")
	defer o.Stop(context.Background(), schema.StopRecordingRequest{})

	if resp.TabID != "tab-7" {
		t.Fatalf("resolved tab = %q, want tab-7", resp.TabID)
	}
	if !o.IsRecording() {
		t.Fatalf("expected recording to be active")
	}
	if o.ActiveTabID() != "tab-7" {
		t.Fatalf("active tab = %q, want tab-7", o.ActiveTabID())
	}
}

func TestStartFailsWhenNoTabAvailable(t *testing.T) {
	o, rt, _, _, _ := newTestOrchestrator(t)
	rt.setActiveErr(errors.New("no window"))

	if _, err := o.Start(context.Background(), schema.StartRecordingRequest{}); !errors.Is(err, schema.ErrNoActiveTab) {
		t.Fatalf("start error = %v, want ErrNoActiveTab", err)
	}
}

func TestStartFailsWhenRequestedTabMissing(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(t)

	if _, err := o.Start(context.Background(), schema.StartRecordingRequest{TabID: "tab-404"}); !errors.Is(err, schema.ErrTabUnavailable) {
		t.Fatalf("start error = %v, want ErrTabUnavailable", err)
	}
}

func TestStopWithoutSessionIsSideEffectFree(t *testing.T) {
	o, _, _, store, sink := newTestOrchestrator(t)

	if _, err := o.Stop(context.Background(), schema.StopRecordingRequest{}); !errors.Is(err, schema.ErrNoActiveSession) {
		t.Fatalf("stop error = %v, want ErrNoActiveSession", err)
	}
	if n := store.savedCount(); n != 0 {
		t.Fatalf("store writes = %d, want 0", n)
	}
	if n := sink.count(""); n != 0 {
		t.Fatalf("sink events = %d, want 0", n)
	}
}

func TestStopFinalizesPersistsAndSynthesizes(t *testing.T) {
	o, _, _, store, sink := newTestOrchestrator(t)
	start := mustStart(t, o, "")

	o.HandleProbeMessage("tab-7", schema.ProbeMessage{
		Action: schema.ProbeEventCaptured,
		Event:  &schema.ProbeCapturedEvent{Action: schema.ActionDescriptor{Type: schema.ActionClick}},
	})

	resp, err := o.Stop(context.Background(), schema.StopRecordingRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	rec := resp.Recording
	if rec.Session.ID != start.SessionID {
		t.Fatalf("recording session = %q, want %q", rec.Session.ID, start.SessionID)
	}
	ends := 0
	for _, ev := range rec.Events {
		if ev.Action.Type == schema.ActionSessionEnd {
			ends++
		}
	}
	if ends != 1 {
		t.Fatalf("session_end count = %d, want 1", ends)
	}
	if o.IsRecording() {
		t.Fatalf("expected no active session after stop")
	}
	if store.savedCount() != 1 {
		t.Fatalf("store writes = %d, want 1", store.savedCount())
	}
	waitFor(t, time.Second, func() bool {
		return sink.count(schema.SessionPreprocessingCompleted) == 1
	})
	if _, ok := store.workflow(rec.ID); !ok {
		t.Fatalf("expected workflow stored for %q", rec.ID)
	}
}

func TestSynthesisFailureKeepsRecording(t *testing.T) {
	rt := newFakeRuntime(schema.TabRef{ID: "tab-7", URL: "https://example.com"})
	store := newFakeStore()
	sink := &fakeSink{}
	o, err := NewOrchestrator(testConfig(t), Deps{
		Runtime:     rt,
		Capturer:    &fakeCapturer{},
		Store:       store,
		Synthesizer: fakeSynth{err: errors.New("model unavailable")},
		Sink:        sink,
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	mustStart(t, o, "")
	resp, err := o.Stop(context.Background(), schema.StopRecordingRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return sink.count(schema.SessionPreprocessingFailed) == 1
	})
	if store.savedCount() != 1 {
		t.Fatalf("recording should remain saved, writes = %d", store.savedCount())
	}
	if _, ok := store.workflow(resp.Recording.ID); ok {
		t.Fatalf("no workflow should be stored after synthesis failure")
	}
}

func TestHeartbeatReinjectsDeadProbe(t *testing.T) {
	o, rt, _, _, _ := newTestOrchestrator(t)
	rt.setPingDead(true)
	mustStart(t, o, "")
	defer o.Stop(context.Background(), schema.StopRecordingRequest{})

	// One injection at start plus one per missed tick; three dead ticks
	// means at least four attempts, and the recording stays active.
	waitFor(t, 2*time.Second, func() bool { return rt.injectCount() >= 4 })
	if !o.IsRecording() {
		t.Fatalf("recording should survive probe death")
	}
}

func TestHeartbeatOutlivesHangingInjection(t *testing.T) {
	o, rt, _, _, _ := newTestOrchestrator(t)
	rt.setPingDead(true)
	rt.setInjectHang(true)
	mustStart(t, o, "")
	defer o.Stop(context.Background(), schema.StopRecordingRequest{})

	// Each failed ping triggers an injection attempt that hangs until its
	// deadline; the loop must keep ticking regardless.
	waitFor(t, 2*time.Second, func() bool {
		return rt.sentCount(schema.ProbeHeartbeatPing, "tab-7") >= 3
	})
	if !o.IsRecording() {
		t.Fatalf("recording should stay active while injection hangs")
	}
}

func TestTabSwitchSignalHonorsDeadline(t *testing.T) {
	restore := graceSleep
	graceSleep = func(time.Duration) {}
	defer func() { graceSleep = restore }()

	o, rt, _, _, _ := newTestOrchestrator(t)
	rt.addTab(schema.TabRef{ID: "tab-9", URL: "https://other.example.com"})
	rt.setStopHang(true)
	mustStart(t, o, "")

	done := make(chan struct{})
	go func() {
		o.OnTabActivated("tab-9")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("tab switch blocked on a hung probe signal")
	}
	if o.ActiveTabID() != "tab-9" {
		t.Fatalf("active tab = %q, want tab-9", o.ActiveTabID())
	}

	rt.setStopHang(false)
	if _, err := o.Stop(context.Background(), schema.StopRecordingRequest{}); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestTabRemovedFallbackHonorsDeadline(t *testing.T) {
	o, rt, _, _, _ := newTestOrchestrator(t)
	mustStart(t, o, "")
	rt.setQueryHang(true)

	done := make(chan struct{})
	go func() {
		o.OnTabRemoved("tab-7")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("tab removal blocked on a hung tab query")
	}
	if o.ActiveTabID() != "" {
		t.Fatalf("active tab = %q, want empty", o.ActiveTabID())
	}

	rt.setQueryHang(false)
	if _, err := o.Stop(context.Background(), schema.StopRecordingRequest{}); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestHeartbeatRecoversWithoutReinjection(t *testing.T) {
	o, rt, _, _, _ := newTestOrchestrator(t)
	mustStart(t, o, "")
	defer o.Stop(context.Background(), schema.StopRecordingRequest{})

	time.Sleep(100 * time.Millisecond)
	if n := rt.injectCount(); n != 1 {
		t.Fatalf("healthy probe re-injected: %d injections, want 1", n)
	}
}

func TestTabActivatedDedupesAndSignalsPreviousTab(t *testing.T) {
	restore := graceSleep
	graceSleep = func(time.Duration) {}
	defer func() { graceSleep = restore }()

	o, rt, _, _, _ := newTestOrchestrator(t)
	rt.addTab(schema.TabRef{ID: "tab-9", URL: "https://other.example.com"})
	mustStart(t, o, "")

	o.OnTabActivated("tab-7")
	o.OnTabActivated("tab-9")
	o.OnTabActivated("tab-9")

	if o.ActiveTabID() != "tab-9" {
		t.Fatalf("active tab = %q, want tab-9", o.ActiveTabID())
	}
	if n := rt.sentCount(schema.ProbeStopRecording, "tab-7"); n != 1 {
		t.Fatalf("stop signals to previous tab = %d, want 1", n)
	}

	resp, err := o.Stop(context.Background(), schema.StopRecordingRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	switched := 0
	var switchedEvent schema.CapturedEvent
	for _, ev := range resp.Recording.Events {
		if ev.Action.Type == schema.ActionTabSwitched {
			switched++
			switchedEvent = ev
		}
	}
	if switched != 1 {
		t.Fatalf("tab_switched count = %d, want 1", switched)
	}
	if switchedEvent.Action.FromURL != "https://example.com" || switchedEvent.Action.ToURL != "https://other.example.com" {
		t.Fatalf("tab_switched urls = %+v", switchedEvent.Action)
	}
}

func TestTabCreatedOnlyTracksOpenerChildren(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(t)
	mustStart(t, o, "")

	o.OnTabCreated(schema.TabRef{ID: "tab-8", URL: "https://child.example.com", OpenerTabID: "tab-7"})
	o.OnTabCreated(schema.TabRef{ID: "tab-12", URL: "https://unrelated.example.com"})

	resp, err := o.Stop(context.Background(), schema.StopRecordingRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	opened := 0
	for _, ev := range resp.Recording.Events {
		if ev.Action.Type == schema.ActionTabOpened {
			opened++
			if ev.Action.URL != "https://child.example.com" {
				t.Fatalf("tab_opened url = %q", ev.Action.URL)
			}
		}
	}
	if opened != 1 {
		t.Fatalf("tab_opened count = %d, want 1", opened)
	}
}

func TestTabRemovedClearsPointerAndEventsKeepFlowing(t *testing.T) {
	o, rt, capturer, _, _ := newTestOrchestrator(t)
	mustStart(t, o, "")
	waitFor(t, time.Second, func() bool { return capturer.calls() == 1 })

	rt.setActiveErr(errors.New("no focused tab"))
	o.OnTabRemoved("tab-7")
	if o.ActiveTabID() != "" {
		t.Fatalf("active tab = %q, want empty", o.ActiveTabID())
	}

	o.HandleProbeMessage("tab-7", schema.ProbeMessage{
		Action: schema.ProbeEventCaptured,
		Event:  &schema.ProbeCapturedEvent{Action: schema.ActionDescriptor{Type: schema.ActionClick}},
	})
	time.Sleep(80 * time.Millisecond)
	if capturer.calls() != 1 {
		t.Fatalf("capture ran with no active tab: %d calls", capturer.calls())
	}

	resp, err := o.Stop(context.Background(), schema.StopRecordingRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	var sawClosed, sawClick bool
	for _, ev := range resp.Recording.Events {
		switch ev.Action.Type {
		case schema.ActionTabClosed:
			sawClosed = true
		case schema.ActionClick:
			sawClick = true
			if ev.State != nil {
				t.Fatalf("click with no capture target has state")
			}
		}
	}
	if !sawClosed || !sawClick {
		t.Fatalf("events missing: closed=%v click=%v", sawClosed, sawClick)
	}
}

func TestClickBurstCapturesOnceOnNewestEvent(t *testing.T) {
	o, _, capturer, _, _ := newTestOrchestrator(t)
	mustStart(t, o, "")
	waitFor(t, time.Second, func() bool { return capturer.calls() == 1 })

	click := schema.ProbeMessage{
		Action: schema.ProbeEventCaptured,
		Event:  &schema.ProbeCapturedEvent{Action: schema.ActionDescriptor{Type: schema.ActionClick}},
	}
	o.HandleProbeMessage("tab-7", click)
	o.HandleProbeMessage("tab-7", click)

	waitFor(t, time.Second, func() bool { return capturer.calls() == 2 })
	time.Sleep(80 * time.Millisecond)
	if capturer.calls() != 2 {
		t.Fatalf("capturer calls = %d, want 2 (session_start + one for the burst)", capturer.calls())
	}

	resp, err := o.Stop(context.Background(), schema.StopRecordingRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	events := resp.Recording.Events
	// events: session_start, click, click, session_end
	if len(events) != 4 {
		t.Fatalf("event count = %d, want 4", len(events))
	}
	if events[1].State != nil {
		t.Fatalf("first click of burst should have no state")
	}
	if events[2].State == nil {
		t.Fatalf("second click of burst should carry the snapshot")
	}
}

func TestProbeMessagesDroppedWithoutSession(t *testing.T) {
	o, _, capturer, _, sink := newTestOrchestrator(t)
	o.HandleProbeMessage("tab-7", schema.ProbeMessage{
		Action: schema.ProbeEventCaptured,
		Event:  &schema.ProbeCapturedEvent{Action: schema.ActionDescriptor{Type: schema.ActionClick}},
	})
	time.Sleep(50 * time.Millisecond)
	if capturer.calls() != 0 {
		t.Fatalf("capture ran without session")
	}
	if sink.count("") != 0 {
		t.Fatalf("events emitted without session")
	}
}

func TestRecorderReadyRecordsViewport(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(t)
	mustStart(t, o, "")

	o.HandleProbeMessage("tab-7", schema.ProbeMessage{
		Action:   schema.ProbeRecorderReady,
		Viewport: &schema.Viewport{Width: 1440, Height: 900},
	})
	resp, err := o.Stop(context.Background(), schema.StopRecordingRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if resp.Recording.Viewport == nil || resp.Recording.Viewport.Width != 1440 {
		t.Fatalf("viewport = %+v", resp.Recording.Viewport)
	}
}

func TestStopUnsubscribesTabObserver(t *testing.T) {
	o, rt, _, _, _ := newTestOrchestrator(t)
	mustStart(t, o, "")
	if !rt.subscribed() {
		t.Fatalf("expected observer registered after start")
	}
	if _, err := o.Stop(context.Background(), schema.StopRecordingRequest{}); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if rt.subscribed() {
		t.Fatalf("expected observer unregistered after stop")
	}
}

// Fakes.

type sentMessage struct {
	tabID schema.TabID
	msg   schema.ProbeMessage
}

type fakeRuntime struct {
	mu         sync.Mutex
	active     schema.TabRef
	activeErr  error
	tabs       map[schema.TabID]schema.TabRef
	pingDead   bool
	injectHang bool
	stopHang   bool
	queryHang  bool
	injected   []schema.TabID
	sent       []sentMessage
	observer   TabObserver
}

func newFakeRuntime(active schema.TabRef) *fakeRuntime {
	return &fakeRuntime{
		active: active,
		tabs:   map[schema.TabID]schema.TabRef{active.ID: active},
	}
}

func (r *fakeRuntime) QueryActiveTab(ctx context.Context) (schema.TabRef, error) {
	r.mu.Lock()
	hang := r.queryHang
	activeErr := r.activeErr
	active := r.active
	r.mu.Unlock()
	if hang {
		<-ctx.Done()
		return schema.TabRef{}, ctx.Err()
	}
	if activeErr != nil {
		return schema.TabRef{}, activeErr
	}
	return active, nil
}

func (r *fakeRuntime) GetTab(ctx context.Context, id schema.TabID) (schema.TabRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tab, ok := r.tabs[id]
	if !ok {
		return schema.TabRef{}, errors.New("tab not found")
	}
	return tab, nil
}

func (r *fakeRuntime) InjectProbe(ctx context.Context, id schema.TabID) error {
	r.mu.Lock()
	r.injected = append(r.injected, id)
	hang := r.injectHang
	r.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (r *fakeRuntime) SendMessage(ctx context.Context, id schema.TabID, msg schema.ProbeMessage) (schema.ProbeMessage, error) {
	r.mu.Lock()
	r.sent = append(r.sent, sentMessage{tabID: id, msg: msg})
	pingDead := r.pingDead
	stopHang := r.stopHang
	r.mu.Unlock()
	if msg.Action == schema.ProbeStopRecording && stopHang {
		<-ctx.Done()
		return schema.ProbeMessage{}, ctx.Err()
	}
	if msg.Action == schema.ProbeHeartbeatPing {
		if pingDead {
			return schema.ProbeMessage{}, schema.ErrProbeUnreachable
		}
		return schema.ProbeMessage{Action: schema.ProbeHeartbeatPong}, nil
	}
	return schema.ProbeMessage{}, nil
}

func (r *fakeRuntime) Subscribe(obs TabObserver) func() {
	r.mu.Lock()
	r.observer = obs
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.observer = nil
		r.mu.Unlock()
	}
}

func (r *fakeRuntime) addTab(tab schema.TabRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs[tab.ID] = tab
}

func (r *fakeRuntime) setActiveErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeErr = err
}

func (r *fakeRuntime) setPingDead(dead bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pingDead = dead
}

func (r *fakeRuntime) setInjectHang(hang bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.injectHang = hang
}

func (r *fakeRuntime) setStopHang(hang bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopHang = hang
}

func (r *fakeRuntime) setQueryHang(hang bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queryHang = hang
}

func (r *fakeRuntime) injectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.injected)
}

func (r *fakeRuntime) sentCount(action schema.ProbeAction, tabID schema.TabID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entry := range r.sent {
		if entry.msg.Action == action && entry.tabID == tabID {
			n++
		}
	}
	return n
}

func (r *fakeRuntime) subscribed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observer != nil
}

type fakeCapturer struct {
	mu  sync.Mutex
	n   int
	err error
}

func (c *fakeCapturer) CaptureState(ctx context.Context, id schema.TabID) (schema.StateSnapshot, error) {
	c.mu.Lock()
	c.n++
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return schema.StateSnapshot{}, err
	}
	return schema.StateSnapshot{
		Timestamp: time.Now().UTC(),
		Page:      schema.PageRef{URL: "https://example.com", Title: "Example"},
	}, nil
}

func (c *fakeCapturer) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type fakeStore struct {
	mu        sync.Mutex
	saved     map[schema.RecordingID]schema.Recording
	workflows map[schema.RecordingID]schema.Workflow
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		saved:     make(map[schema.RecordingID]schema.Recording),
		workflows: make(map[schema.RecordingID]schema.Workflow),
	}
}

func (s *fakeStore) SaveRecording(ctx context.Context, rec schema.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.saved[rec.ID]; ok {
		return schema.ErrRecordingExists
	}
	s.saved[rec.ID] = rec
	return nil
}

func (s *fakeStore) GetRecording(ctx context.Context, id schema.RecordingID) (schema.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.saved[id]
	if !ok {
		return schema.Recording{}, schema.ErrRecordingNotFound
	}
	return rec, nil
}

func (s *fakeStore) ListRecordings(ctx context.Context) ([]schema.RecordingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.RecordingSummary, 0, len(s.saved))
	for _, rec := range s.saved {
		out = append(out, schema.RecordingSummary{ID: rec.ID, Title: rec.Title})
	}
	return out, nil
}

func (s *fakeStore) DeleteRecording(ctx context.Context, id schema.RecordingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, id)
	delete(s.workflows, id)
	return nil
}

func (s *fakeStore) SaveWorkflow(ctx context.Context, id schema.RecordingID, wf schema.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[id] = wf
	return nil
}

func (s *fakeStore) GetWorkflow(ctx context.Context, id schema.RecordingID) (schema.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	if !ok {
		return schema.Workflow{}, schema.ErrWorkflowNotFound
	}
	return wf, nil
}

func (s *fakeStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func (s *fakeStore) workflow(id schema.RecordingID) (schema.Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	return wf, ok
}

type fakeSynth struct {
	err error
}

func (f fakeSynth) Synthesize(ctx context.Context, rec schema.Recording) (schema.Workflow, error) {
	if f.err != nil {
		return schema.Workflow{}, f.err
	}
	return schema.Workflow{
		Metadata: schema.WorkflowMetadata{RecordingID: rec.ID, Name: "synthesized", CreatedAt: time.Now().UTC()},
		Steps: []schema.WorkflowStep{
			{ID: "step-1", Intent: "replay recorded actions"},
		},
	}, nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []schema.SessionEvent
}

func (s *fakeSink) OnSessionEvent(event schema.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// count returns how many events of the given type were seen; the empty type
// counts everything.
func (s *fakeSink) count(eventType schema.SessionEventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if eventType == "" {
		return len(s.events)
	}
	n := 0
	for _, ev := range s.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}
