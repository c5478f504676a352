package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/pkg/schema"
)

type fakeAPI struct {
	mu        sync.Mutex
	lists     [][]schema.Job
	listErr   error
	listCalls int
	job       schema.Job
	getErr    error
	getCalls  int
	listed    chan struct{}
}

func (f *fakeAPI) ListJobs(ctx context.Context) ([]schema.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listed != nil {
		select {
		case f.listed <- struct{}{}:
		default:
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.lists) == 0 {
		return []schema.Job{}, nil
	}
	next := f.lists[0]
	if len(f.lists) > 1 {
		f.lists = f.lists[1:]
	}
	return next, nil
}

func (f *fakeAPI) GetJob(ctx context.Context, jobID string) (schema.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return schema.Job{}, f.getErr
	}
	return f.job, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type recordingOpener struct{ urls []string }

func (o *recordingOpener) Open(url string) error {
	o.urls = append(o.urls, url)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []schema.JobStatusChanged
}

func (s *recordingSink) JobStatus(evt schema.JobStatusChanged) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func TestBadgeForIsTotal(t *testing.T) {
	tests := []struct {
		status schema.JobStatus
		want   schema.Badge
	}{
		{schema.JobStatusPending, schema.BadgePending},
		{schema.JobStatusProcessing, schema.BadgeProcessing},
		{schema.JobStatusCompleted, schema.BadgeSuccess},
		{schema.JobStatusFailed, schema.BadgeError},
		{"UNKNOWN", schema.BadgePending},
		{"", schema.BadgePending},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := BadgeFor(tt.status); got != tt.want {
				t.Fatalf("BadgeFor(%q) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestRefreshReplacesWholesaleInBackendOrder(t *testing.T) {
	first := []schema.Job{{JobID: "J1", Status: "PENDING"}, {JobID: "J2", Status: "PENDING"}}
	second := []schema.Job{{JobID: "J3", Status: "PROCESSING"}, {JobID: "J1", Status: "COMPLETED"}}
	api := &fakeAPI{lists: [][]schema.Job{first, second}}
	r := NewRegistry(api, &recordingOpener{}, Options{})

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !reflect.DeepEqual(r.Jobs(), first) {
		t.Fatalf("jobs = %+v, want %+v", r.Jobs(), first)
	}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !reflect.DeepEqual(r.Jobs(), second) {
		t.Fatalf("jobs = %+v, want %+v (no merge, no reorder)", r.Jobs(), second)
	}
	if _, ok := r.Job("J2"); ok {
		t.Fatal("J2 should be gone after wholesale replacement")
	}
}

func TestRefreshFailureKeepsPreviousCollection(t *testing.T) {
	held := []schema.Job{{JobID: "J1", Status: "COMPLETED"}}
	api := &fakeAPI{lists: [][]schema.Job{held}}
	r := NewRegistry(api, &recordingOpener{}, Options{})
	_ = r.Refresh(context.Background())
	before := r.Jobs()

	api.listErr = errors.New("Failed to fetch jobs")
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if !reflect.DeepEqual(r.Jobs(), before) {
		t.Fatalf("collection changed on failure: %+v", r.Jobs())
	}
	if _, lastErr := r.LastRefresh(); lastErr == nil {
		t.Fatal("last refresh error not recorded")
	}
}

func TestJobsReturnsCopy(t *testing.T) {
	api := &fakeAPI{lists: [][]schema.Job{{{JobID: "J1"}}}}
	r := NewRegistry(api, &recordingOpener{}, Options{})
	_ = r.Refresh(context.Background())

	jobs := r.Jobs()
	jobs[0].JobID = "mutated"
	if r.Jobs()[0].JobID != "J1" {
		t.Fatal("Jobs exposed internal slice")
	}
}

func TestDownloadScenario(t *testing.T) {
	api := &fakeAPI{lists: [][]schema.Job{{{JobID: "J1", Status: schema.JobStatusCompleted}}}}
	opener := &recordingOpener{}
	r := NewRegistry(api, opener, Options{})
	_ = r.Refresh(context.Background())

	api.job = schema.Job{JobID: "J1", Status: schema.JobStatusCompleted, DownloadURL: "https://blob/y"}
	url, err := r.Download(context.Background(), "J1")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if url != "https://blob/y" || len(opener.urls) != 1 || opener.urls[0] != "https://blob/y" {
		t.Fatalf("unexpected hand-off: %q %v", url, opener.urls)
	}

	api.job = schema.Job{JobID: "J1", Status: schema.JobStatusCompleted}
	_, err = r.Download(context.Background(), "J1")
	var unavailable *DownloadUnavailableError
	if !errors.As(err, &unavailable) || unavailable.JobID != "J1" {
		t.Fatalf("expected DownloadUnavailableError, got %v", err)
	}
	if err.Error() != "Download URL not available" {
		t.Fatalf("unexpected message: %s", err)
	}
	if len(opener.urls) != 1 {
		t.Fatal("opener called without a link")
	}
	if api.getCalls != 2 {
		t.Fatalf("expected a fresh fetch per download, got %d", api.getCalls)
	}
}

func TestDownloadNeverUsesCachedLink(t *testing.T) {
	api := &fakeAPI{lists: [][]schema.Job{{{JobID: "J1", Status: schema.JobStatusCompleted, DownloadURL: "https://stale"}}}}
	api.job = schema.Job{JobID: "J1", Status: schema.JobStatusCompleted}
	r := NewRegistry(api, &recordingOpener{}, Options{})
	_ = r.Refresh(context.Background())

	if _, err := r.Download(context.Background(), "J1"); !errors.As(err, new(*DownloadUnavailableError)) {
		t.Fatalf("expected DownloadUnavailableError despite cached link, got %v", err)
	}
}

func TestDownloadFetchErrorPropagates(t *testing.T) {
	expected := errors.New("Failed to get download URL")
	api := &fakeAPI{getErr: expected}
	r := NewRegistry(api, &recordingOpener{}, Options{})
	if _, err := r.Download(context.Background(), "J1"); !errors.Is(err, expected) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestWriterOpener(t *testing.T) {
	var buf bytes.Buffer
	if err := (WriterOpener{W: &buf}).Open("https://blob/y"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if buf.String() != "https://blob/y\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestStartPollsAndStopCancels(t *testing.T) {
	api := &fakeAPI{listed: make(chan struct{}, 1)}
	r := NewRegistry(api, &recordingOpener{}, Options{PollInterval: 10 * time.Millisecond})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	deadline := time.After(2 * time.Second)
	for api.calls() < 3 {
		select {
		case <-api.listed:
		case <-deadline:
			t.Fatalf("expected repeated polling, got %d calls", api.calls())
		}
	}

	r.Stop()
	r.Stop()
	after := api.calls()
	time.Sleep(50 * time.Millisecond)
	if api.calls() != after {
		t.Fatalf("refresh fired after teardown: %d -> %d", after, api.calls())
	}
	if err := r.Refresh(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped on restart, got %v", err)
	}
}

func TestStartStopsWithParentContext(t *testing.T) {
	api := &fakeAPI{}
	r := NewRegistry(api, &recordingOpener{}, Options{PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after parent cancellation")
	}
}

func TestRefreshAfterFiresOnce(t *testing.T) {
	api := &fakeAPI{listed: make(chan struct{}, 1)}
	r := NewRegistry(api, &recordingOpener{}, Options{})
	defer r.Stop()

	r.RefreshAfter(5 * time.Millisecond)
	select {
	case <-api.listed:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed refresh did not fire")
	}
	time.Sleep(30 * time.Millisecond)
	if api.calls() != 1 {
		t.Fatalf("expected exactly one refresh, got %d", api.calls())
	}
}

func TestStopCancelsPendingRefreshAfter(t *testing.T) {
	api := &fakeAPI{}
	r := NewRegistry(api, &recordingOpener{}, Options{})
	r.RefreshAfter(50 * time.Millisecond)
	r.Stop()

	time.Sleep(100 * time.Millisecond)
	if api.calls() != 0 {
		t.Fatalf("delayed refresh fired after Stop: %d calls", api.calls())
	}

	r.RefreshAfter(time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if api.calls() != 0 {
		t.Fatal("RefreshAfter scheduled work after Stop")
	}
}

func TestRefreshPublishesStatusTransitions(t *testing.T) {
	api := &fakeAPI{lists: [][]schema.Job{
		{{JobID: "J1", Status: "PENDING"}},
		{{JobID: "J1", Status: "PROCESSING"}, {JobID: "J2", Status: "PENDING"}},
		{{JobID: "J1", Status: "PROCESSING"}, {JobID: "J2", Status: "PENDING"}},
	}}
	sink := &recordingSink{}
	r := NewRegistry(api, &recordingOpener{}, Options{Events: sink})

	for i := 0; i < 3; i++ {
		if err := r.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh %d: %v", i, err)
		}
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 transitions, got %+v", sink.events)
	}
	if sink.events[0].JobID != "J1" || sink.events[0].Previous != "PENDING" || sink.events[0].Current != "PROCESSING" {
		t.Fatalf("unexpected transition: %+v", sink.events[0])
	}
	if sink.events[1].JobID != "J2" || sink.events[1].Previous != "" {
		t.Fatalf("unexpected new-job event: %+v", sink.events[1])
	}
}

func TestViews(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{lists: [][]schema.Job{{
		{JobID: "J1", Status: "COMPLETED", TargetLanguage: "de", CreatedAt: schema.Timestamp{Time: created}},
		{JobID: "J2", Status: "FAILED", TargetLanguage: "xx"},
	}}}
	r := NewRegistry(api, &recordingOpener{}, Options{})
	_ = r.Refresh(context.Background())

	views := r.Views()
	if len(views) != 2 {
		t.Fatalf("unexpected views: %+v", views)
	}
	if views[0].Badge != schema.BadgeSuccess || !views[0].Downloadable || views[0].LanguageName != "German" {
		t.Fatalf("unexpected view: %+v", views[0])
	}
	if views[1].Badge != schema.BadgeError || views[1].Downloadable || views[1].LanguageName != "xx" {
		t.Fatalf("unexpected view: %+v", views[1])
	}
	if views[1].CreatedLocal() != "-" {
		t.Fatalf("zero time should render as '-', got %s", views[1].CreatedLocal())
	}
}

type blockingAPI struct {
	fakeAPI
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAPI) ListJobs(ctx context.Context) ([]schema.Job, error) {
	close(b.entered)
	<-b.release
	return []schema.Job{{JobID: "late", Status: schema.JobStatusPending}}, nil
}

func TestRefreshLandingAfterStopIsDiscarded(t *testing.T) {
	api := &blockingAPI{entered: make(chan struct{}), release: make(chan struct{})}
	r := NewRegistry(api, &recordingOpener{}, Options{Logger: testLogger()})

	done := make(chan error, 1)
	go func() { done <- r.Refresh(context.Background()) }()
	<-api.entered

	r.Stop()
	close(api.release)

	if err := <-done; !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if jobs := r.Jobs(); len(jobs) != 0 {
		t.Fatalf("collection written after Stop: %+v", jobs)
	}
}

// flippingAPI alternates the status of one job on every list call.
type flippingAPI struct {
	fakeAPI
	n int
}

func (f *flippingAPI) ListJobs(ctx context.Context) ([]schema.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	status := schema.JobStatusPending
	if f.n%2 == 0 {
		status = schema.JobStatusProcessing
	}
	return []schema.Job{{JobID: "J1", Status: status}}, nil
}

func TestConcurrentRefreshesPublishConsistentTransitions(t *testing.T) {
	sink := &recordingSink{}
	r := NewRegistry(&flippingAPI{}, &recordingOpener{}, Options{Events: sink, Logger: testLogger()})
	defer r.Stop()

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Refresh(context.Background())
		}()
	}
	wg.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) == 0 {
		t.Fatal("expected transition events")
	}
	last := schema.JobStatusPending
	for i, evt := range sink.events {
		if evt.Previous != last {
			t.Fatalf("event %d: previous %s, want %s (events out of order or duplicated)", i, evt.Previous, last)
		}
		if evt.Current == evt.Previous {
			t.Fatalf("event %d reports no change: %+v", i, evt)
		}
		last = evt.Current
	}
	if got := r.Jobs()[0].Status; got != last {
		t.Fatalf("last published status %s, collection holds %s", last, got)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
