package bus

import (
	"errors"
	"testing"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/pkg/schema"
)

type recordingPublisher struct {
	subjects []string
	payloads []any
	err      error
}

func (r *recordingPublisher) PublishJSON(subject string, v any) error {
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, v)
	return r.err
}

func TestEventsAssignIDsAndSubjects(t *testing.T) {
	pub := &recordingPublisher{}
	events := NewEvents(pub, "translator.events", nil)

	events.Upload(schema.UploadEvent{Stage: schema.StageSucceeded, JobID: "J1"})
	events.JobStatus(schema.JobStatusChanged{JobID: "J1", Current: schema.JobStatusCompleted})

	if len(pub.subjects) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(pub.subjects))
	}
	if pub.subjects[0] != "translator.events.upload" || pub.subjects[1] != "translator.events.job" {
		t.Fatalf("unexpected subjects: %v", pub.subjects)
	}
	up := pub.payloads[0].(schema.UploadEvent)
	if up.EventID == "" {
		t.Fatal("upload event id not assigned")
	}
	job := pub.payloads[1].(schema.JobStatusChanged)
	if job.EventID == "" {
		t.Fatal("job event id not assigned")
	}
}

func TestEventsSwallowPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	events := NewEvents(pub, "p", nil)
	events.Upload(schema.UploadEvent{Stage: schema.StageFailed})
	if len(pub.subjects) != 1 {
		t.Fatal("publish not attempted")
	}
}

func TestNilPublisherFallsBackToNop(t *testing.T) {
	events := NewEvents(nil, "p", nil)
	events.JobStatus(schema.JobStatusChanged{JobID: "J1"})
}
