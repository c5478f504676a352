package bus

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/pkg/schema"
)

// Events publishes client lifecycle events under a common subject prefix.
// Publishing is best effort: failures are logged and never reach callers.
type Events struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

func NewEvents(pub Publisher, prefix string, logger *slog.Logger) *Events {
	if pub == nil {
		pub = Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{pub: pub, prefix: prefix, logger: logger}
}

func (e *Events) UploadSubject() string { return e.prefix + ".upload" }
func (e *Events) JobSubject() string    { return e.prefix + ".job" }

func (e *Events) Upload(evt schema.UploadEvent) {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if err := e.pub.PublishJSON(e.UploadSubject(), evt); err != nil {
		e.logger.Error("publish upload event failed", "subject", e.UploadSubject(), "stage", evt.Stage, "err", err)
	}
}

func (e *Events) JobStatus(evt schema.JobStatusChanged) {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if err := e.pub.PublishJSON(e.JobSubject(), evt); err != nil {
		e.logger.Error("publish job event failed", "subject", e.JobSubject(), "job_id", evt.JobID, "err", err)
	}
}
