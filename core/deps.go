package core

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/scribe/schema"
)

// TabObserver receives tab lifecycle callbacks from the tab runtime.
type TabObserver interface {
	OnTabActivated(tabID schema.TabID)
	OnTabCreated(tab schema.TabRef)
	OnTabRemoved(tabID schema.TabID)
}

// TabRuntime is the browser-side contract the orchestrator depends on.
// Implementations resolve tabs, inject the capture probe, and exchange
// probe messages over whatever channel the browser provides.
type TabRuntime interface {
	QueryActiveTab(ctx context.Context) (schema.TabRef, error)
	GetTab(ctx context.Context, id schema.TabID) (schema.TabRef, error)
	InjectProbe(ctx context.Context, id schema.TabID) error
	SendMessage(ctx context.Context, id schema.TabID, msg schema.ProbeMessage) (schema.ProbeMessage, error)
	// Subscribe registers tab lifecycle callbacks and returns an
	// unsubscribe func.
	Subscribe(obs TabObserver) func()
}

// StateCapturer produces a point-in-time snapshot of one tab's page state.
type StateCapturer interface {
	CaptureState(ctx context.Context, id schema.TabID) (schema.StateSnapshot, error)
}

// RecordingStore persists recordings and synthesized workflows.
type RecordingStore interface {
	SaveRecording(ctx context.Context, rec schema.Recording) error
	GetRecording(ctx context.Context, id schema.RecordingID) (schema.Recording, error)
	ListRecordings(ctx context.Context) ([]schema.RecordingSummary, error)
	DeleteRecording(ctx context.Context, id schema.RecordingID) error
	SaveWorkflow(ctx context.Context, id schema.RecordingID, wf schema.Workflow) error
	GetWorkflow(ctx context.Context, id schema.RecordingID) (schema.Workflow, error)
}

// WorkflowSynthesizer turns a finished recording into a replayable workflow.
type WorkflowSynthesizer interface {
	Synthesize(ctx context.Context, rec schema.Recording) (schema.Workflow, error)
}

// EventSink receives fire-and-forget session lifecycle notifications.
type EventSink interface {
	OnSessionEvent(event schema.SessionEvent)
}

// Deps captures the orchestrator's collaborators. Runtime is required; the
// rest are optional.
type Deps struct {
	Runtime     TabRuntime
	Capturer    StateCapturer
	Store       RecordingStore
	Synthesizer WorkflowSynthesizer
	Sink        EventSink
	Logger      pslog.Logger
}
