package schema

// SessionEventType describes recorder lifecycle notifications for UIs.
type SessionEventType string

const (
	// SessionRecordingStarted indicates a recording began.
	SessionRecordingStarted SessionEventType = "recording_started"
	// SessionEventCaptured indicates an event was appended to the log.
	SessionEventCaptured SessionEventType = "event_captured"
	// SessionStateCaptured indicates a state snapshot was attached.
	SessionStateCaptured SessionEventType = "state_captured"
	// SessionRecordingStopped indicates a recording was finalized.
	SessionRecordingStopped SessionEventType = "recording_stopped"
	// SessionPreprocessingStarted indicates workflow synthesis began.
	SessionPreprocessingStarted SessionEventType = "preprocessing_started"
	// SessionPreprocessingCompleted indicates synthesis produced a workflow.
	SessionPreprocessingCompleted SessionEventType = "preprocessing_completed"
	// SessionPreprocessingFailed indicates synthesis failed; the raw
	// recording remains saved.
	SessionPreprocessingFailed SessionEventType = "preprocessing_failed"
)

// SessionEvent is a fire-and-forget notification emitted by the recorder.
// It is not part of the control-flow contract.
type SessionEvent struct {
	Type        SessionEventType
	SessionID   SessionID
	RecordingID RecordingID
	TabID       TabID
	EventID     EventID
	ActionType  ActionType
	Err         string
}
