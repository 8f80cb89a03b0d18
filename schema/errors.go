package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAlreadyRecording indicates a session is already active.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNoActiveSession indicates no recording is active.
	ErrNoActiveSession = errors.New("no active recording session")
	// ErrNoActiveTab indicates the session has no live capture target.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrTabUnavailable indicates the requested tab does not exist or is gone.
	ErrTabUnavailable = errors.New("tab unavailable")
	// ErrRecordingNotFound indicates a stored recording could not be found.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrRecordingExists indicates a recording id was already written once.
	ErrRecordingExists = errors.New("recording already exists")
	// ErrWorkflowNotFound indicates no workflow is stored for the recording.
	ErrWorkflowNotFound = errors.New("workflow not found")
	// ErrUnknownProbeMessage indicates a probe message outside the closed set.
	ErrUnknownProbeMessage = errors.New("unknown probe message")
	// ErrProbeUnreachable indicates the capture probe did not answer.
	ErrProbeUnreachable = errors.New("probe unreachable")
)
