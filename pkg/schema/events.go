// pkg/schema/events.go
package schema

// UploadStage names a step of one submission attempt.
type UploadStage string

const (
	StageRequestingIntent UploadStage = "requesting_intent"
	StageTransferring     UploadStage = "transferring"
	StageSucceeded        UploadStage = "succeeded"
	StageFailed           UploadStage = "failed"
)

// FailureType classifies why a submission attempt ended in failure.
type FailureType string

const (
	FailureTypeAuth     FailureType = "auth"
	FailureTypeIntent   FailureType = "intent"
	FailureTypeTransfer FailureType = "transfer"
	FailureTypeUnknown  FailureType = "unknown"
)

// UploadEvent is published for every stage change of a submission.
type UploadEvent struct {
	EventID        string      `json:"event_id"`
	AttemptID      string      `json:"attempt_id"`
	JobID          string      `json:"job_id,omitempty"`
	Filename       string      `json:"filename"`
	SizeBytes      int64       `json:"size_bytes"`
	TargetLanguage string      `json:"target_language"`
	Stage          UploadStage `json:"stage"`
	Error          string      `json:"error,omitempty"`
	FailureType    FailureType `json:"failure_type,omitempty"`
	HappenedAt     int64       `json:"happened_at"`
}

// JobStatusChanged is published when a refresh observes a job in a new status.
// Download links are never part of the payload.
type JobStatusChanged struct {
	EventID        string    `json:"event_id"`
	JobID          string    `json:"job_id"`
	Filename       string    `json:"filename"`
	TargetLanguage string    `json:"target_language"`
	Previous       JobStatus `json:"previous,omitempty"`
	Current        JobStatus `json:"current"`
	HappenedAt     int64     `json:"happened_at"`
}
