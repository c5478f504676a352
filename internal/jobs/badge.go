package jobs

import (
	"time"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/pkg/schema"
)

// BadgeFor maps a job status to its presentation class. Every status,
// including ones this client does not know yet, maps to a badge.
func BadgeFor(status schema.JobStatus) schema.Badge {
	switch status {
	case schema.JobStatusFailed:
		return schema.BadgeError
	case schema.JobStatusCompleted:
		return schema.BadgeSuccess
	case schema.JobStatusProcessing:
		return schema.BadgeProcessing
	default:
		return schema.BadgePending
	}
}

// View is a job with the facts a renderer needs.
type View struct {
	schema.Job
	Badge        schema.Badge
	LanguageName string
	Downloadable bool
}

func viewOf(job schema.Job) View {
	return View{
		Job:          job,
		Badge:        BadgeFor(job.Status),
		LanguageName: schema.LanguageName(job.TargetLanguage),
		Downloadable: job.Status == schema.JobStatusCompleted,
	}
}

// CreatedLocal formats the creation time for display in the local zone.
func (v View) CreatedLocal() string {
	if v.CreatedAt.IsZero() {
		return "-"
	}
	return v.CreatedAt.Local().Format(time.DateTime)
}
