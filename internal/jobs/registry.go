// Package jobs keeps the client's view of the user's translation jobs in
// sync with the backend by polling.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/pkg/schema"
)

const DefaultPollInterval = 10 * time.Second

var (
	// ErrStopped is returned by operations attempted after Stop.
	ErrStopped = errors.New("job registry stopped")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("job registry already started")
)

// DownloadUnavailableError reports a job without a usable download link.
type DownloadUnavailableError struct {
	JobID  string
	Status schema.JobStatus
}

func (e *DownloadUnavailableError) Error() string {
	return "Download URL not available"
}

// API is the part of the job API the registry consumes.
type API interface {
	ListJobs(ctx context.Context) ([]schema.Job, error)
	GetJob(ctx context.Context, jobID string) (schema.Job, error)
}

// StatusSink receives observed job status transitions.
type StatusSink interface {
	JobStatus(evt schema.JobStatusChanged)
}

// Options tunes a Registry. Zero values select the defaults.
type Options struct {
	PollInterval time.Duration
	Events       StatusSink
	Logger       *slog.Logger
}

// Registry holds the best-known job list. Each successful refresh replaces
// the list wholesale; a failed refresh keeps the previous one.
type Registry struct {
	api      API
	opener   Opener
	events   StatusSink
	logger   *slog.Logger
	interval time.Duration

	mu          sync.RWMutex
	pubMu       sync.Mutex
	jobs        []schema.Job
	loaded      bool
	lastRefresh time.Time
	lastErr     error

	// life is cancelled exactly once by Stop.
	life     context.Context
	cancel   context.CancelFunc
	lifeMu   sync.Mutex
	started  bool
	timers   map[*time.Timer]struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewRegistry(api API, opener Opener, opts Options) *Registry {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opener == nil {
		opener = BrowserOpener{}
	}
	life, cancel := context.WithCancel(context.Background())
	return &Registry{
		api:      api,
		opener:   opener,
		events:   opts.Events,
		logger:   opts.Logger,
		interval: opts.PollInterval,
		jobs:     []schema.Job{},
		life:     life,
		cancel:   cancel,
		timers:   make(map[*time.Timer]struct{}),
	}
}

// Start refreshes immediately and then on every poll interval until ctx is
// done or Stop is called. Refreshes run on one goroutine and never overlap.
func (r *Registry) Start(ctx context.Context) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	if r.life.Err() != nil {
		return ErrStopped
	}
	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	stopWatch := context.AfterFunc(r.life, cancel)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer stopWatch()
		r.poll(loopCtx)
	}()
	return nil
}

func (r *Registry) poll(ctx context.Context) {
	r.logger.Info("job polling started", "interval", r.interval)
	defer r.logger.Info("job polling stopped")

	_ = r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.Refresh(ctx)
		}
	}
}

// RefreshAfter schedules one reconciliation refresh after delay. It is
// independent of polling and is cancelled by Stop if it has not fired.
func (r *Registry) RefreshAfter(delay time.Duration) {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	if r.life.Err() != nil {
		return
	}

	var t *time.Timer
	r.wg.Add(1)
	t = time.AfterFunc(delay, func() {
		defer r.wg.Done()
		r.lifeMu.Lock()
		delete(r.timers, t)
		r.lifeMu.Unlock()
		_ = r.Refresh(r.life)
	})
	r.timers[t] = struct{}{}
}

// Stop cancels polling and pending refreshes and waits for them to finish.
// Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		r.lifeMu.Lock()
		r.cancel()
		for t := range r.timers {
			if t.Stop() {
				r.wg.Done()
			}
			delete(r.timers, t)
		}
		r.lifeMu.Unlock()

		// A Refresh holding mu either finishes its swap now or sees the
		// cancellation once it gets the lock.
		r.mu.Lock()
		r.mu.Unlock()

		r.wg.Wait()
	})
}

// Refresh fetches the job list and replaces the held collection. On failure
// the collection is left untouched and the error is logged and returned.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.life.Err() != nil {
		return ErrStopped
	}

	jobs, err := r.api.ListJobs(ctx)
	if err != nil {
		r.logger.Warn("refresh jobs failed, keeping previous list", "err", err)
		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		return err
	}
	next := make([]schema.Job, len(jobs))
	copy(next, jobs)

	r.mu.Lock()
	if r.life.Err() != nil {
		r.mu.Unlock()
		return ErrStopped
	}
	prev := r.jobs
	first := !r.loaded
	r.jobs = next
	r.loaded = true
	r.lastRefresh = time.Now()
	r.lastErr = nil
	var changes []schema.JobStatusChanged
	if !first {
		changes = transitions(prev, next)
	}
	// Taking pubMu before releasing mu keeps publish order equal to swap order.
	r.pubMu.Lock()
	r.mu.Unlock()
	defer r.pubMu.Unlock()

	r.logger.Debug("jobs refreshed", "count", len(next))
	if r.events != nil {
		for _, c := range changes {
			r.events.JobStatus(c)
		}
	}
	return nil
}

// transitions lists the jobs in next whose status differs from prev,
// including jobs that were not in prev at all.
func transitions(prev, next []schema.Job) []schema.JobStatusChanged {
	before := make(map[string]schema.JobStatus, len(prev))
	for _, j := range prev {
		before[j.JobID] = j.Status
	}
	now := time.Now().Unix()
	var out []schema.JobStatusChanged
	for _, j := range next {
		old, seen := before[j.JobID]
		if seen && old == j.Status {
			continue
		}
		out = append(out, schema.JobStatusChanged{
			JobID:          j.JobID,
			Filename:       j.Filename,
			TargetLanguage: j.TargetLanguage,
			Previous:       old,
			Current:        j.Status,
			HappenedAt:     now,
		})
	}
	return out
}

// Jobs returns a copy of the held collection in backend order.
func (r *Registry) Jobs() []schema.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Views returns the held collection with presentation facts attached.
func (r *Registry) Views() []View {
	jobs := r.Jobs()
	out := make([]View, len(jobs))
	for i, j := range jobs {
		out[i] = viewOf(j)
	}
	return out
}

// Job looks up one held job by id.
func (r *Registry) Job(jobID string) (schema.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.JobID == jobID {
			return j, true
		}
	}
	return schema.Job{}, false
}

// LastRefresh reports when the collection was last replaced and the error
// of the most recent refresh attempt, if it failed.
func (r *Registry) LastRefresh() (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRefresh, r.lastErr
}

// Download fetches the job afresh and hands its download link to the
// opener. Links from earlier list refreshes are never reused; they expire.
func (r *Registry) Download(ctx context.Context, jobID string) (string, error) {
	logger := r.logger.With("job_id", jobID)

	job, err := r.api.GetJob(ctx, jobID)
	if err != nil {
		logger.Error("fetch job for download failed", "err", err)
		return "", err
	}
	if job.DownloadURL == "" {
		logger.Warn("download link not available", "status", job.Status)
		return "", &DownloadUnavailableError{JobID: jobID, Status: job.Status}
	}
	if err := r.opener.Open(job.DownloadURL); err != nil {
		logger.Error("open download link failed", "err", err)
		return "", err
	}
	logger.Info("download link opened")
	return job.DownloadURL, nil
}
