package schema

// JobStatus is the backend-reported progress of a translation job.
// Values outside the known set are kept verbatim.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one server-tracked translation task.
type Job struct {
	JobID          string    `json:"jobId"`
	Filename       string    `json:"filename"`
	TargetLanguage string    `json:"targetLanguage"`
	SourceLanguage string    `json:"sourceLanguage,omitempty"`
	Status         JobStatus `json:"status"`
	CreatedAt      Timestamp `json:"createdAt"`
	// DownloadURL is time-limited and only present for completed jobs.
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// UploadIntent is the backend's answer to an upload request: where to put
// the bytes and which job they belong to.
type UploadIntent struct {
	UploadURL string `json:"uploadUrl"`
	JobID     string `json:"jobId"`
}

// Badge is the presentation class of a job status.
type Badge string

const (
	BadgeSuccess    Badge = "success"
	BadgeProcessing Badge = "processing"
	BadgeError      Badge = "error"
	BadgePending    Badge = "pending"
)
