// Package scribe records interactive browser sessions: user actions, the
// page states they produce, and the workflows synthesized from them.
package scribe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/scribe/core"
	"pkt.systems/scribe/internal/chromert"
	"pkt.systems/scribe/internal/eventbus"
	"pkt.systems/scribe/internal/persist"
	"pkt.systems/scribe/schema"
)

// Config configures the recorder compositor.
type Config struct {
	Recorder schema.RecorderConfig
	Browser  chromert.Options
}

// Deps captures optional dependencies. Zero values compose the default
// stack: a launched Chrome instance, the on-disk store, and no synthesizer.
type Deps struct {
	// Runtime overrides the browser runtime (tests, embedding).
	Runtime core.TabRuntime
	// Capturer overrides state capture; defaults to the runtime when it
	// captures state itself.
	Capturer core.StateCapturer
	// Store overrides recording storage.
	Store core.RecordingStore
	// Synthesizer turns recordings into workflows. Nil skips synthesis.
	Synthesizer core.WorkflowSynthesizer
	// Sink receives session events in addition to Subscribe channels.
	Sink core.EventSink
	// Logger defaults to pslog's ambient logger.
	Logger pslog.Logger
}

// probeSinkSetter is satisfied by runtimes that push probe messages.
type probeSinkSetter interface {
	SetProbeSink(chromert.ProbeSink)
}

// tabOpener is satisfied by runtimes that can open and raise tabs.
type tabOpener interface {
	NewTab(ctx context.Context, url string) (schema.TabRef, error)
	ActivateTab(ctx context.Context, id schema.TabID) error
}

// Recorder composes the browser runtime, the session orchestrator, and
// recording storage behind one lifecycle.
type Recorder struct {
	cfg  Config
	deps Deps
	log  pslog.Logger

	mu      sync.Mutex
	started bool
	runtime core.TabRuntime
	closer  func()
	orch    *core.Orchestrator
	store   core.RecordingStore
	bus     *eventbus.Bus
}

// New validates configuration and constructs an unstarted recorder.
func New(cfg Config, deps Deps) (*Recorder, error) {
	normalized, err := schema.NormalizeRecorderConfig(cfg.Recorder)
	if err != nil {
		return nil, err
	}
	cfg.Recorder = normalized
	log := deps.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Recorder{cfg: cfg, deps: deps, log: log}, nil
}

// Start launches the browser (unless a runtime was injected) and wires the
// orchestrator. It does not begin a recording session.
func (r *Recorder) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		r.log.Warn("recorder start rejected", "reason", "already started")
		return errors.New("recorder already started")
	}

	runtime := r.deps.Runtime
	closer := func() {}
	if runtime == nil {
		rt, err := chromert.New(ctx, r.cfg.Browser, r.log)
		if err != nil {
			return fmt.Errorf("browser runtime: %w", err)
		}
		runtime = rt
		closer = rt.Close
	}

	capturer := r.deps.Capturer
	if capturer == nil {
		if c, ok := runtime.(core.StateCapturer); ok {
			capturer = c
		}
	}

	store := r.deps.Store
	if store == nil {
		s, err := persist.NewStoreWithLogger(r.cfg.Recorder.StateDir, r.cfg.Recorder.KeyStorePath, r.log)
		if err != nil {
			closer()
			return fmt.Errorf("recording store: %w", err)
		}
		store = s
	}

	bus := eventbus.New(r.log)
	var sink core.EventSink = bus
	if r.deps.Sink != nil {
		sink = sessionFanout{sinks: []core.EventSink{r.deps.Sink, bus}}
	}

	orch, err := core.NewOrchestrator(r.cfg.Recorder, core.Deps{
		Runtime:     runtime,
		Capturer:    capturer,
		Store:       store,
		Synthesizer: r.deps.Synthesizer,
		Sink:        sink,
		Logger:      r.log,
	})
	if err != nil {
		closer()
		return err
	}
	if setter, ok := runtime.(probeSinkSetter); ok {
		setter.SetProbeSink(orch.HandleProbeMessage)
	}

	r.runtime = runtime
	r.closer = closer
	r.orch = orch
	r.store = store
	r.bus = bus
	r.started = true
	r.log.Info("recorder started", "synthesis", r.deps.Synthesizer != nil)
	if r.deps.Synthesizer == nil {
		r.log.Info("workflow synthesis not configured")
	}
	return nil
}

// Close stops any active recording session and tears down the browser.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	started := r.started
	orch := r.orch
	closer := r.closer
	r.started = false
	r.mu.Unlock()
	if !started {
		return nil
	}
	if orch != nil && orch.IsRecording() {
		if _, err := orch.Stop(ctx, schema.StopRecordingRequest{}); err != nil && !errors.Is(err, schema.ErrNoActiveSession) {
			r.log.Warn("recorder close stop failed", "err", err)
		}
	}
	if closer != nil {
		closer()
	}
	r.log.Info("recorder stopped")
	return nil
}

// OpenTab opens a new browser tab at url and raises it so a subsequent
// StartRecording can target it. Activation failure is non-fatal; the tab
// exists and can still be recorded by id.
func (r *Recorder) OpenTab(ctx context.Context, url string) (schema.TabRef, error) {
	r.mu.Lock()
	started := r.started
	rt := r.runtime
	r.mu.Unlock()
	if !started || rt == nil {
		return schema.TabRef{}, errors.New("recorder not started")
	}
	if url == "" {
		return schema.TabRef{}, fmt.Errorf("%w: url is required", schema.ErrInvalidRequest)
	}
	opener, ok := rt.(tabOpener)
	if !ok {
		return schema.TabRef{}, errors.New("runtime cannot open tabs")
	}
	tab, err := opener.NewTab(ctx, url)
	if err != nil {
		return schema.TabRef{}, err
	}
	if err := opener.ActivateTab(ctx, tab.ID); err != nil {
		r.log.Warn("tab activation failed", "tab", tab.ID, "err", err)
	}
	return tab, nil
}

// StartRecording begins a session on the requested tab.
func (r *Recorder) StartRecording(ctx context.Context, req schema.StartRecordingRequest) (schema.StartRecordingResponse, error) {
	orch, err := r.orchestrator()
	if err != nil {
		return schema.StartRecordingResponse{}, err
	}
	return orch.Start(ctx, req)
}

// StopRecording finalizes the active session and returns the recording.
func (r *Recorder) StopRecording(ctx context.Context, req schema.StopRecordingRequest) (schema.StopRecordingResponse, error) {
	orch, err := r.orchestrator()
	if err != nil {
		return schema.StopRecordingResponse{}, err
	}
	return orch.Stop(ctx, req)
}

// IsRecording reports whether a session is active.
func (r *Recorder) IsRecording() bool {
	orch, err := r.orchestrator()
	if err != nil {
		return false
	}
	return orch.IsRecording()
}

// ListRecordings returns stored recording summaries, newest first.
func (r *Recorder) ListRecordings(ctx context.Context, req schema.ListRecordingsRequest) (schema.ListRecordingsResponse, error) {
	store, err := r.recordingStore()
	if err != nil {
		return schema.ListRecordingsResponse{}, err
	}
	summaries, err := store.ListRecordings(ctx)
	if err != nil {
		return schema.ListRecordingsResponse{}, err
	}
	return schema.ListRecordingsResponse{Recordings: summaries}, nil
}

// GetRecording fetches one stored recording.
func (r *Recorder) GetRecording(ctx context.Context, req schema.GetRecordingRequest) (schema.GetRecordingResponse, error) {
	if req.ID == "" {
		return schema.GetRecordingResponse{}, fmt.Errorf("%w: recording id is required", schema.ErrInvalidRequest)
	}
	store, err := r.recordingStore()
	if err != nil {
		return schema.GetRecordingResponse{}, err
	}
	rec, err := store.GetRecording(ctx, req.ID)
	if err != nil {
		return schema.GetRecordingResponse{}, err
	}
	return schema.GetRecordingResponse{Recording: rec}, nil
}

// DeleteRecording removes a recording and its workflow.
func (r *Recorder) DeleteRecording(ctx context.Context, req schema.DeleteRecordingRequest) (schema.DeleteRecordingResponse, error) {
	if req.ID == "" {
		return schema.DeleteRecordingResponse{}, fmt.Errorf("%w: recording id is required", schema.ErrInvalidRequest)
	}
	store, err := r.recordingStore()
	if err != nil {
		return schema.DeleteRecordingResponse{}, err
	}
	if err := store.DeleteRecording(ctx, req.ID); err != nil {
		return schema.DeleteRecordingResponse{}, err
	}
	return schema.DeleteRecordingResponse{Deleted: true}, nil
}

// GetWorkflow fetches the synthesized workflow for a recording.
func (r *Recorder) GetWorkflow(ctx context.Context, req schema.GetWorkflowRequest) (schema.GetWorkflowResponse, error) {
	if req.RecordingID == "" {
		return schema.GetWorkflowResponse{}, fmt.Errorf("%w: recording id is required", schema.ErrInvalidRequest)
	}
	store, err := r.recordingStore()
	if err != nil {
		return schema.GetWorkflowResponse{}, err
	}
	wf, err := store.GetWorkflow(ctx, req.RecordingID)
	if err != nil {
		return schema.GetWorkflowResponse{}, err
	}
	return schema.GetWorkflowResponse{Workflow: wf}, nil
}

// Subscribe returns a channel of session events plus a cancel func.
func (r *Recorder) Subscribe() (<-chan schema.SessionEvent, func(), error) {
	r.mu.Lock()
	bus := r.bus
	started := r.started
	r.mu.Unlock()
	if !started || bus == nil {
		return nil, nil, errors.New("recorder not started")
	}
	ch, cancel := bus.Subscribe()
	return ch, cancel, nil
}

func (r *Recorder) orchestrator() (*core.Orchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.orch == nil {
		return nil, errors.New("recorder not started")
	}
	return r.orch, nil
}

func (r *Recorder) recordingStore() (core.RecordingStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.store == nil {
		return nil, errors.New("recorder not started")
	}
	return r.store, nil
}
