package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/scribe/internal/logx"
	"pkt.systems/scribe/schema"
)

// graceSleep is swapped out in tests to skip the tab-switch settle window.
var graceSleep = time.Sleep

// Orchestrator is the single authority for whether a recording is active,
// which tab it targets, and whether the capture probe on that tab is alive.
// At most one session is active per instance at any time.
type Orchestrator struct {
	cfg      schema.RecorderConfig
	runtime  TabRuntime
	capturer StateCapturer
	store    RecordingStore
	synth    WorkflowSynthesizer
	sink     EventSink
	logger   pslog.Logger

	mu          sync.Mutex
	session     *recordingSession
	cancelLoop  context.CancelFunc
	loopDone    chan struct{}
	unsubscribe func()
}

// NewOrchestrator constructs an orchestrator. Runtime is required; Capturer,
// Store, Synthesizer, and Sink degrade to no-ops when absent.
func NewOrchestrator(cfg schema.RecorderConfig, deps Deps) (*Orchestrator, error) {
	normalized, err := schema.NormalizeRecorderConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Runtime == nil {
		return nil, errors.New("tab runtime is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Orchestrator{
		cfg:      normalized,
		runtime:  deps.Runtime,
		capturer: deps.Capturer,
		store:    deps.Store,
		synth:    deps.Synthesizer,
		sink:     deps.Sink,
		logger:   logger,
	}, nil
}

// Start begins a recording session on the requested tab, falling back to
// the currently active tab when none is given. It fails with
// ErrAlreadyRecording while a session is active.
func (o *Orchestrator) Start(ctx context.Context, req schema.StartRecordingRequest) (schema.StartRecordingResponse, error) {
	if ctx == nil {
		return schema.StartRecordingResponse{}, errors.New("missing context")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		return schema.StartRecordingResponse{}, schema.ErrAlreadyRecording
	}

	tab, err := o.resolveTab(ctx, req.TabID)
	if err != nil {
		return schema.StartRecordingResponse{}, err
	}
	sess := newRecordingSession(tab, req.Title, o.cfg.MaxEventsPerSession)
	log := logx.WithSessionTab(ctx, sess.id, tab.ID)

	loopCtx, cancel := context.WithCancel(pslog.ContextWithLogger(context.Background(), log))
	sess.scheduler = newCaptureScheduler(loopCtx, o.cfg.CaptureSettleDelay, o.capturer, o.captureFinished(sess), log)
	o.session = sess
	o.cancelLoop = cancel
	o.loopDone = make(chan struct{})
	o.unsubscribe = o.runtime.Subscribe(o)
	go o.heartbeatLoop(loopCtx, sess, o.loopDone)

	sess.AddEvent(schema.ActionDescriptor{Type: schema.ActionSessionStart, URL: tab.URL}, nil)

	// First injection is best-effort; the heartbeat repairs any failure on
	// its next tick.
	injectCtx, cancelInject := context.WithTimeout(loopCtx, o.cfg.HeartbeatInterval)
	if err := o.injectProbe(injectCtx, tab.ID); err != nil {
		log.Warn("initial probe injection failed", "err", err)
	}
	cancelInject()

	o.emit(schema.SessionEvent{
		Type:      schema.SessionRecordingStarted,
		SessionID: sess.id,
		TabID:     tab.ID,
	})
	log.Info("recording started", "url", tab.URL)
	return schema.StartRecordingResponse{SessionID: sess.id, TabID: tab.ID}, nil
}

// Stop finalizes the active session, persists the recording, and triggers
// workflow synthesis asynchronously. It fails with ErrNoActiveSession when
// nothing is recording; that call is side-effect-free.
func (o *Orchestrator) Stop(ctx context.Context, req schema.StopRecordingRequest) (schema.StopRecordingResponse, error) {
	if ctx == nil {
		return schema.StopRecordingResponse{}, errors.New("missing context")
	}
	o.mu.Lock()
	sess := o.session
	cancel := o.cancelLoop
	done := o.loopDone
	unsubscribe := o.unsubscribe
	o.session = nil
	o.cancelLoop = nil
	o.loopDone = nil
	o.unsubscribe = nil
	o.mu.Unlock()
	if sess == nil {
		return schema.StopRecordingResponse{}, schema.ErrNoActiveSession
	}
	log := logx.WithSessionTab(ctx, sess.id, sess.ActiveTab())

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	// Best-effort stop signal to the probe on the active tab.
	if tab := sess.ActiveTab(); tab != "" {
		msg := schema.ProbeMessage{Action: schema.ProbeStopRecording, TargetTabID: tab}
		if _, err := o.runtime.SendMessage(ctx, tab, msg); err != nil {
			log.Warn("probe stop signal failed", "err", err)
		}
	}

	title := sess.title
	if title == "" {
		title = sess.initialURL
	}
	rec := sess.Finalize(title, req.Narration, req.AudioBase64)
	o.emit(schema.SessionEvent{
		Type:        schema.SessionRecordingStopped,
		SessionID:   sess.id,
		RecordingID: rec.ID,
	})
	log.Info("recording stopped", "events", len(rec.Events))

	saved := o.persistRecording(ctx, log, rec)
	if saved {
		go o.synthesize(log, rec)
	}
	return schema.StopRecordingResponse{Recording: rec}, nil
}

// IsRecording reports whether a session is active.
func (o *Orchestrator) IsRecording() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session != nil
}

// ActiveTabID returns the active session's capture target, empty when no
// session is active or the session has no live tab.
func (o *Orchestrator) ActiveTabID() schema.TabID {
	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()
	if sess == nil {
		return ""
	}
	return sess.ActiveTab()
}

// OnTabActivated folds a tab switch into the log: records a tab_switched
// event, signals the previous tab's probe to stop, waits the settle grace,
// and moves the active-tab pointer. Re-injection onto the new tab is left
// to the heartbeat loop so only one code path injects probes.
func (o *Orchestrator) OnTabActivated(tabID schema.TabID) {
	sess := o.activeSession()
	if sess == nil || tabID == "" {
		return
	}
	prev := sess.ActiveTab()
	if prev == tabID {
		return
	}
	log := logx.WithSessionTab(context.Background(), sess.id, tabID)

	// Tab callbacks arrive from the browser connection's event goroutine;
	// every round-trip here must be time-bounded or a hung call stalls all
	// further tab events.
	action := schema.ActionDescriptor{Type: schema.ActionTabSwitched}
	lookupCtx, cancelLookup := context.WithTimeout(context.Background(), o.cfg.PingTimeout)
	if prev != "" {
		if ref, err := o.runtime.GetTab(lookupCtx, prev); err == nil {
			action.FromURL = ref.URL
		}
	}
	if ref, err := o.runtime.GetTab(lookupCtx, tabID); err == nil {
		action.ToURL = ref.URL
	}
	cancelLookup()
	id, ok := sess.AddEvent(action, nil)
	if !ok {
		return
	}
	o.emit(schema.SessionEvent{
		Type:       schema.SessionEventCaptured,
		SessionID:  sess.id,
		EventID:    id,
		TabID:      tabID,
		ActionType: schema.ActionTabSwitched,
	})

	if prev != "" {
		msg := schema.ProbeMessage{Action: schema.ProbeStopRecording, TargetTabID: prev}
		signalCtx, cancelSignal := context.WithTimeout(context.Background(), o.cfg.PingTimeout)
		if _, err := o.runtime.SendMessage(signalCtx, prev, msg); err != nil {
			log.Debug("previous tab stop signal failed", "tab", prev, "err", err)
		}
		cancelSignal()
		graceSleep(o.cfg.TabSwitchGrace)
	}
	sess.SetActiveTab(tabID)
	log.Info("active tab switched", "from", prev)
}

// OnTabCreated records a tab_opened event when the new tab was opened from
// the active tab. Independently opened tabs are ignored until the user
// switches to them.
func (o *Orchestrator) OnTabCreated(tab schema.TabRef) {
	sess := o.activeSession()
	if sess == nil {
		return
	}
	active := sess.ActiveTab()
	if active == "" || tab.OpenerTabID != active {
		return
	}
	id, ok := sess.AddEvent(schema.ActionDescriptor{Type: schema.ActionTabOpened, URL: tab.URL}, nil)
	if !ok {
		return
	}
	o.emit(schema.SessionEvent{
		Type:       schema.SessionEventCaptured,
		SessionID:  sess.id,
		EventID:    id,
		TabID:      tab.ID,
		ActionType: schema.ActionTabOpened,
	})
}

// OnTabRemoved handles the active tab going away: records tab_closed, then
// falls back to whatever tab currently has focus. With no fallback the
// pointer clears and the recording continues without a capture target.
func (o *Orchestrator) OnTabRemoved(tabID schema.TabID) {
	sess := o.activeSession()
	if sess == nil || sess.ActiveTab() != tabID {
		return
	}
	ctx := context.Background()
	log := logx.WithSessionTab(ctx, sess.id, tabID)

	id, ok := sess.AddEvent(schema.ActionDescriptor{Type: schema.ActionTabClosed}, nil)
	if ok {
		o.emit(schema.SessionEvent{
			Type:       schema.SessionEventCaptured,
			SessionID:  sess.id,
			EventID:    id,
			TabID:      tabID,
			ActionType: schema.ActionTabClosed,
		})
	}
	queryCtx, cancelQuery := context.WithTimeout(context.Background(), o.cfg.PingTimeout)
	next, err := o.runtime.QueryActiveTab(queryCtx)
	cancelQuery()
	if err != nil || next.ID == tabID {
		sess.SetActiveTab("")
		log.Info("active tab closed, no capture target")
		return
	}
	sess.SetActiveTab(next.ID)
	log.Info("active tab closed, fell back", "next", next.ID)
}

// HandleProbeMessage dispatches a message pushed by a tab's capture probe.
// Messages arriving with no active session are dropped.
func (o *Orchestrator) HandleProbeMessage(tabID schema.TabID, msg schema.ProbeMessage) {
	sess := o.activeSession()
	if sess == nil {
		return
	}
	log := logx.WithSessionTab(context.Background(), sess.id, tabID)
	switch msg.Action {
	case schema.ProbeEventCaptured:
		if msg.Event == nil {
			log.Warn("probe event without payload", "tab", tabID)
			return
		}
		id, ok := sess.AddEvent(msg.Event.Action, msg.Event.Target)
		if !ok {
			log.Debug("probe event dropped", "reason", "session finalized or full")
			return
		}
		o.emit(schema.SessionEvent{
			Type:       schema.SessionEventCaptured,
			SessionID:  sess.id,
			EventID:    id,
			TabID:      tabID,
			ActionType: msg.Event.Action.Type,
		})
	case schema.ProbeRecorderReady:
		sess.SetViewport(msg.Viewport)
		log.Debug("probe ready", "tab", tabID)
	default:
		log.Trace("probe message ignored", "action", msg.Action)
	}
}

func (o *Orchestrator) activeSession() *recordingSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

func (o *Orchestrator) resolveTab(ctx context.Context, id schema.TabID) (schema.TabRef, error) {
	if id == "" {
		tab, err := o.runtime.QueryActiveTab(ctx)
		if err != nil {
			return schema.TabRef{}, fmt.Errorf("%w: %v", schema.ErrNoActiveTab, err)
		}
		return tab, nil
	}
	tab, err := o.runtime.GetTab(ctx, id)
	if err != nil {
		return schema.TabRef{}, fmt.Errorf("%w: %v", schema.ErrTabUnavailable, err)
	}
	return tab, nil
}

// captureFinished returns the scheduler completion callback bound to sess.
// Results for a session that already ended are discarded.
func (o *Orchestrator) captureFinished(sess *recordingSession) captureDone {
	return func(key schema.EventID, tabID schema.TabID, snapshot *schema.StateSnapshot) {
		if o.activeSession() != sess {
			return
		}
		if !sess.AttachState(key, snapshot) {
			return
		}
		o.emit(schema.SessionEvent{
			Type:      schema.SessionStateCaptured,
			SessionID: sess.id,
			EventID:   key,
			TabID:     tabID,
		})
	}
}

func (o *Orchestrator) persistRecording(ctx context.Context, log pslog.Logger, rec schema.Recording) bool {
	if o.store == nil {
		log.Debug("recording persist skipped", "reason", "no store configured")
		return o.synth != nil
	}
	if err := o.store.SaveRecording(ctx, rec); err != nil {
		log.Warn("recording persist failed", "recording", rec.ID, "err", err)
		o.emit(schema.SessionEvent{
			Type:        schema.SessionPreprocessingFailed,
			SessionID:   rec.Session.ID,
			RecordingID: rec.ID,
			Err:         err.Error(),
		})
		return false
	}
	log.Info("recording persisted", "recording", rec.ID)
	return true
}

// synthesize runs workflow synthesis off the stop path. Failure is logged
// and notified; the saved recording is untouched either way.
func (o *Orchestrator) synthesize(log pslog.Logger, rec schema.Recording) {
	if o.synth == nil {
		log.Debug("workflow synthesis skipped", "reason", "no synthesizer configured")
		return
	}
	ctx := context.Background()
	o.emit(schema.SessionEvent{
		Type:        schema.SessionPreprocessingStarted,
		SessionID:   rec.Session.ID,
		RecordingID: rec.ID,
	})
	wf, err := o.synth.Synthesize(ctx, rec)
	if err != nil {
		log.Warn("workflow synthesis failed", "recording", rec.ID, "err", err)
		o.emit(schema.SessionEvent{
			Type:        schema.SessionPreprocessingFailed,
			SessionID:   rec.Session.ID,
			RecordingID: rec.ID,
			Err:         err.Error(),
		})
		return
	}
	if o.store != nil {
		if err := o.store.SaveWorkflow(ctx, rec.ID, wf); err != nil {
			log.Warn("workflow persist failed", "recording", rec.ID, "err", err)
			o.emit(schema.SessionEvent{
				Type:        schema.SessionPreprocessingFailed,
				SessionID:   rec.Session.ID,
				RecordingID: rec.ID,
				Err:         err.Error(),
			})
			return
		}
	}
	log.Info("workflow synthesized", "recording", rec.ID, "steps", len(wf.Steps))
	o.emit(schema.SessionEvent{
		Type:        schema.SessionPreprocessingCompleted,
		SessionID:   rec.Session.ID,
		RecordingID: rec.ID,
	})
}

func (o *Orchestrator) injectProbe(ctx context.Context, tabID schema.TabID) error {
	if err := o.runtime.InjectProbe(ctx, tabID); err != nil {
		return err
	}
	msg := schema.ProbeMessage{Action: schema.ProbeStartRecording, TargetTabID: tabID}
	if _, err := o.runtime.SendMessage(ctx, tabID, msg); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) emit(event schema.SessionEvent) {
	if o.sink == nil {
		return
	}
	o.sink.OnSessionEvent(event)
}
