package schema

// Recording lifecycle.

// StartRecordingRequest asks the orchestrator to begin a recording.
type StartRecordingRequest struct {
	// TabID targets a specific tab. Empty means the currently active tab
	// in the current window.
	TabID TabID
	// Title names the eventual stored recording.
	Title string
}

// StartRecordingResponse reports the created session.
type StartRecordingResponse struct {
	SessionID SessionID
	TabID     TabID
}

// StopRecordingRequest asks the orchestrator to finalize the recording.
type StopRecordingRequest struct {
	// AudioBase64 is an optional narration audio track recorded by the UI.
	AudioBase64 string
	// Narration is an optional transcript of the narration.
	Narration string
}

// StopRecordingResponse carries the finalized recording.
type StopRecordingResponse struct {
	Recording Recording
}

// Stored recordings.

// ListRecordingsRequest asks for stored recording summaries.
type ListRecordingsRequest struct{}

// ListRecordingsResponse reports summaries, newest first.
type ListRecordingsResponse struct {
	Recordings []RecordingSummary
}

// GetRecordingRequest fetches one stored recording.
type GetRecordingRequest struct {
	ID RecordingID
}

// GetRecordingResponse carries the stored recording.
type GetRecordingResponse struct {
	Recording Recording
}

// DeleteRecordingRequest removes a recording and its workflow.
type DeleteRecordingRequest struct {
	ID RecordingID
}

// DeleteRecordingResponse reports the deletion.
type DeleteRecordingResponse struct {
	Deleted bool
}

// GetWorkflowRequest fetches the synthesized workflow for a recording.
type GetWorkflowRequest struct {
	RecordingID RecordingID
}

// GetWorkflowResponse carries the workflow.
type GetWorkflowResponse struct {
	Workflow Workflow
}
