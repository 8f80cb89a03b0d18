package schema

import "time"

// Session captures the lifecycle bounds of one recording.
type Session struct {
	ID           SessionID  `json:"id"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
	InitialTabID TabID      `json:"initialTabId"`
	InitialURL   string     `json:"initialUrl,omitempty"`
}

// Recording is the aggregate handed to storage and synthesis. It is built
// incrementally while recording and immutable once Stop returns it.
type Recording struct {
	ID          RecordingID     `json:"id"`
	Title       string          `json:"title,omitempty"`
	Session     Session         `json:"session"`
	Narration   string          `json:"narration,omitempty"`
	AudioBase64 string          `json:"audio,omitempty"`
	Viewport    *Viewport       `json:"viewport,omitempty"`
	Events      []CapturedEvent `json:"events"`
}

// WorkflowMetadata describes the synthesized workflow's provenance.
type WorkflowMetadata struct {
	RecordingID RecordingID `json:"recordingId"`
	Name        string      `json:"name"`
	Goal        string      `json:"goal,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// WorkflowStep is one semantic step of a synthesized workflow.
type WorkflowStep struct {
	ID             string           `json:"id"`
	Intent         string           `json:"intent"`
	Action         ActionDescriptor `json:"action"`
	SourceEventIDs []EventID        `json:"sourceEventIds,omitempty"`
	StateBefore    *StateSnapshot   `json:"stateBefore,omitempty"`
	StateAfter     *StateSnapshot   `json:"stateAfter,omitempty"`
}

// Workflow is the replayable distillation of a recording, produced by the
// external synthesizer. The recorder only stores and returns it.
type Workflow struct {
	Metadata WorkflowMetadata `json:"metadata"`
	Steps    []WorkflowStep   `json:"steps"`
}

// RecordingSummary is a list entry for stored recordings.
type RecordingSummary struct {
	ID          RecordingID `json:"id"`
	Title       string      `json:"title,omitempty"`
	StartedAt   time.Time   `json:"startedAt"`
	EndedAt     *time.Time  `json:"endedAt,omitempty"`
	EventCount  int         `json:"eventCount"`
	HasWorkflow bool        `json:"hasWorkflow"`
}
