// Package upload drives the two-phase document submission: request an upload
// slot from the job API, then send the bytes straight to blob storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/auth"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/blob"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/jobapi"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/pkg/schema"
)

// State is the orchestrator's submission state.
type State string

const (
	StateIdle      State = "IDLE"
	StateSelected  State = "SELECTED"
	StateUploading State = "UPLOADING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
)

const (
	DefaultMaxFileSize  = 10 * 1024 * 1024
	DefaultRefreshDelay = 2 * time.Second
	supportedExtension  = ".pdf"
)

// IntentRequester issues upload slots. Implemented by *jobapi.Client.
type IntentRequester interface {
	RequestUploadIntent(ctx context.Context, filename, targetLanguage, sourceLanguage string) (schema.UploadIntent, error)
}

// Refresher schedules a one-shot job list refresh. Implemented by *jobs.Registry.
type Refresher interface {
	RefreshAfter(delay time.Duration)
}

// EventSink receives submission lifecycle events. Implemented by *bus.Events.
type EventSink interface {
	Upload(evt schema.UploadEvent)
}

// Options tunes an Orchestrator. Zero values select the defaults.
type Options struct {
	MaxFileSize  int64
	RefreshDelay time.Duration
	Events       EventSink
	Logger       *slog.Logger
}

// Snapshot is a consistent copy of the orchestrator state for rendering.
type Snapshot struct {
	State          State
	Pending        *PendingUpload
	TargetLanguage string
	JobID          string
	Error          string
	Success        string
	Err            error
}

// Orchestrator owns the local submission state machine. All methods are
// safe for concurrent use; at most one submission runs at a time.
type Orchestrator struct {
	tokens    auth.TokenProvider
	api       IntentRequester
	blobs     blob.Transferer
	refresher Refresher
	events    EventSink
	logger    *slog.Logger

	maxFileSize  int64
	refreshDelay time.Duration

	mu      sync.Mutex
	state   State
	pending *PendingUpload
	target  string
	jobID   string
	errMsg  string
	success string
	lastErr error
}

func New(tokens auth.TokenProvider, api IntentRequester, blobs blob.Transferer, refresher Refresher, opts Options) *Orchestrator {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = DefaultRefreshDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		tokens:       tokens,
		api:          api,
		blobs:        blobs,
		refresher:    refresher,
		events:       opts.Events,
		logger:       opts.Logger,
		maxFileSize:  opts.MaxFileSize,
		refreshDelay: opts.RefreshDelay,
		state:        StateIdle,
		target:       schema.DefaultTargetLanguage,
	}
}

// State returns a snapshot of the current submission state.
func (o *Orchestrator) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		State:          o.state,
		TargetLanguage: o.target,
		JobID:          o.jobID,
		Error:          o.errMsg,
		Success:        o.success,
		Err:            o.lastErr,
	}
	if o.pending != nil {
		p := *o.pending
		snap.Pending = &p
	}
	return snap
}

// SetTargetLanguage picks the language for the next submission.
func (o *Orchestrator) SetTargetLanguage(code string) error {
	if _, ok := schema.LookupLanguage(code); !ok {
		return &ValidationError{Field: "language", Message: fmt.Sprintf("%s: %q", msgBadLang, code)}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.target = code
	if o.pending != nil && o.state != StateUploading {
		o.pending.TargetLanguage = code
	}
	return nil
}

// Select validates a candidate file and makes it the pending upload. A
// rejected file leaves the orchestrator idle with no selection.
func (o *Orchestrator) Select(file FileInfo) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateUploading {
		return ErrSubmissionInFlight
	}

	o.errMsg = ""
	o.success = ""
	o.lastErr = nil

	if err := o.validate(file); err != nil {
		o.pending = nil
		o.state = StateIdle
		o.errMsg = err.Error()
		o.lastErr = err
		o.logger.Info("file rejected", "filename", file.Name, "size", file.Size, "reason", err.Error())
		return err
	}

	o.pending = newPending(file, o.target)
	o.jobID = ""
	o.state = StateSelected
	return nil
}

// Reset drops any selection and messages. Rejected while uploading.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateUploading {
		return ErrSubmissionInFlight
	}
	o.state = StateIdle
	o.pending = nil
	o.jobID = ""
	o.errMsg = ""
	o.success = ""
	o.lastErr = nil
	return nil
}

func (o *Orchestrator) validate(file FileInfo) error {
	if file.Open == nil {
		return &ValidationError{Field: "file", Message: msgNoFile}
	}
	if !strings.EqualFold(filepath.Ext(file.Name), supportedExtension) {
		return &ValidationError{Field: "type", Message: msgNotPDF}
	}
	if file.Size < 0 || file.Size > o.maxFileSize {
		return &ValidationError{Field: "size", Message: "File size must be less than " + humanSize(o.maxFileSize)}
	}
	return nil
}

// Submit runs one submission attempt: credential, upload intent, then the
// blob transfer, strictly in that order. Nothing is retried. On success the
// selection is cleared and a job list refresh is scheduled; on failure the
// selection is kept so the user can resubmit.
func (o *Orchestrator) Submit(ctx context.Context) (schema.UploadIntent, error) {
	o.mu.Lock()
	if o.state == StateUploading {
		o.mu.Unlock()
		return schema.UploadIntent{}, ErrSubmissionInFlight
	}
	if o.pending == nil {
		err := &ValidationError{Field: "file", Message: msgNoFile}
		o.errMsg = err.Error()
		o.lastErr = err
		o.mu.Unlock()
		return schema.UploadIntent{}, err
	}
	if !isValidTransition(o.state, StateUploading) {
		from := o.state
		o.mu.Unlock()
		return schema.UploadIntent{}, fmt.Errorf("invalid transition: %s -> %s", from, StateUploading)
	}
	o.state = StateUploading
	o.errMsg = ""
	o.success = ""
	o.lastErr = nil
	o.jobID = ""
	o.pending.TargetLanguage = o.target
	markRequesting(o.pending)
	attempt := *o.pending
	o.mu.Unlock()

	attemptID := uuid.NewString()
	logger := o.logger.With("attempt_id", attemptID, "filename", attempt.File.Name, "target_language", attempt.TargetLanguage)
	base := schema.UploadEvent{
		AttemptID:      attemptID,
		Filename:       attempt.File.Name,
		SizeBytes:      attempt.File.Size,
		TargetLanguage: attempt.TargetLanguage,
	}

	if _, err := o.tokens.Token(ctx); err != nil {
		var authErr *auth.AuthError
		if !errors.As(err, &authErr) {
			err = &auth.AuthError{Cause: err}
		}
		return schema.UploadIntent{}, o.fail(logger, base, err)
	}

	o.emit(base, schema.StageRequestingIntent, nil)
	intent, err := o.api.RequestUploadIntent(ctx, attempt.File.Name, attempt.TargetLanguage, schema.AutoSourceLanguage)
	if err != nil {
		return schema.UploadIntent{}, o.fail(logger, base, err)
	}
	base.JobID = intent.JobID
	logger = logger.With("job_id", intent.JobID)

	o.setPhase(markTransferring)
	o.emit(base, schema.StageTransferring, nil)
	data, err := readFile(attempt.File, o.maxFileSize)
	if err != nil {
		return schema.UploadIntent{}, o.fail(logger, base, &blob.TransferError{Cause: err})
	}
	if err := o.blobs.Transfer(ctx, intent.UploadURL, data, blob.ContentTypePDF); err != nil {
		var trErr *blob.TransferError
		if !errors.As(err, &trErr) {
			err = &blob.TransferError{Cause: err}
		}
		return schema.UploadIntent{}, o.fail(logger, base, err)
	}

	o.mu.Lock()
	markDone(o.pending)
	o.state = StateSucceeded
	o.pending = nil
	o.jobID = intent.JobID
	o.success = fmt.Sprintf("File uploaded successfully! Job ID: %s. Translation will start shortly.", intent.JobID)
	o.mu.Unlock()

	logger.Info("upload completed", "size", attempt.File.Size)
	o.emit(base, schema.StageSucceeded, nil)
	if o.refresher != nil {
		o.refresher.RefreshAfter(o.refreshDelay)
	}
	return intent, nil
}

func (o *Orchestrator) fail(logger *slog.Logger, base schema.UploadEvent, err error) error {
	msg := err.Error()
	if msg == "" {
		msg = msgNotHandled
	}

	o.mu.Lock()
	o.state = StateFailed
	if o.pending != nil {
		markErrored(o.pending, err)
	}
	o.errMsg = msg
	o.lastErr = err
	o.mu.Unlock()

	logger.Error("upload failed", "failure_type", classifyError(err), "err", err)
	o.emit(base, schema.StageFailed, err)
	return err
}

func (o *Orchestrator) setPhase(mark func(*PendingUpload)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != nil {
		mark(o.pending)
	}
}

func (o *Orchestrator) emit(base schema.UploadEvent, stage schema.UploadStage, err error) {
	if o.events == nil {
		return
	}
	evt := base
	evt.Stage = stage
	evt.HappenedAt = time.Now().Unix()
	if err != nil {
		evt.Error = err.Error()
		evt.FailureType = classifyError(err)
	}
	o.events.Upload(evt)
}

func classifyError(err error) schema.FailureType {
	var (
		authErr     *auth.AuthError
		intentErr   *jobapi.IntentError
		transferErr *blob.TransferError
	)
	switch {
	case errors.As(err, &authErr):
		return schema.FailureTypeAuth
	case errors.As(err, &intentErr):
		return schema.FailureTypeIntent
	case errors.As(err, &transferErr):
		return schema.FailureTypeTransfer
	default:
		return schema.FailureTypeUnknown
	}
}

func readFile(file FileInfo, max int64) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, max+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("file grew beyond %s since selection", humanSize(max))
	}
	return data, nil
}

// isValidTransition enforces the allowed submission state machine edges.
func isValidTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateSelected || to == StateIdle
	case StateSelected:
		return to == StateSelected || to == StateIdle || to == StateUploading
	case StateUploading:
		return to == StateSucceeded || to == StateFailed
	case StateSucceeded:
		return to == StateSelected || to == StateIdle
	case StateFailed:
		return to == StateSelected || to == StateIdle || to == StateUploading
	default:
		return false
	}
}

func humanSize(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
