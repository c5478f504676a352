// Package jobapi is a typed client for the translation backend.
package jobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/auth"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/pkg/schema"
)

const (
	opListJobs = "list_jobs"
	opGetJob   = "get_job"

	defaultIntentReason = "Failed to get upload URL"
	maxErrorBody        = 64 << 10
)

// Client talks to the job API. It keeps no state between calls.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  auth.TokenProvider
	logger  *slog.Logger
}

// NewClient builds a client rooted at baseURL. A nil httpClient gets a
// 30 second timeout.
func NewClient(baseURL string, tokens auth.TokenProvider, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, http: httpClient, tokens: tokens, logger: logger}
}

type uploadRequest struct {
	Filename       string `json:"filename"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage"`
}

type errorBody struct {
	Error string `json:"error"`
}

type listJobsResponse struct {
	Jobs []schema.Job `json:"jobs"`
}

// RequestUploadIntent asks the backend for an upload slot and a job id.
func (c *Client) RequestUploadIntent(ctx context.Context, filename, targetLanguage, sourceLanguage string) (schema.UploadIntent, error) {
	if sourceLanguage == "" {
		sourceLanguage = schema.AutoSourceLanguage
	}
	body, err := json.Marshal(uploadRequest{
		Filename:       filename,
		TargetLanguage: targetLanguage,
		SourceLanguage: sourceLanguage,
	})
	if err != nil {
		return schema.UploadIntent{}, fmt.Errorf("encode upload request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/upload", body)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			return schema.UploadIntent{}, err
		}
		return schema.UploadIntent{}, &IntentError{Reason: defaultIntentReason, Cause: err}
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		reason := defaultIntentReason
		var eb errorBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&eb); err == nil && eb.Error != "" {
			reason = eb.Error
		}
		c.logger.Warn("upload intent rejected", "status", resp.StatusCode, "reason", reason)
		return schema.UploadIntent{}, &IntentError{Status: resp.StatusCode, Reason: reason}
	}

	var intent schema.UploadIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return schema.UploadIntent{}, &IntentError{Status: resp.StatusCode, Reason: defaultIntentReason, Cause: fmt.Errorf("decode upload response: %w", err)}
	}
	if intent.UploadURL == "" || intent.JobID == "" {
		return schema.UploadIntent{}, &IntentError{Status: resp.StatusCode, Reason: defaultIntentReason, Cause: errors.New("upload response missing uploadUrl or jobId")}
	}
	return intent, nil
}

// ListJobs returns the user's jobs in the order the backend sent them.
func (c *Client) ListJobs(ctx context.Context) ([]schema.Job, error) {
	var out listJobsResponse
	if err := c.getJSON(ctx, opListJobs, "/jobs", &out); err != nil {
		return nil, err
	}
	if out.Jobs == nil {
		return []schema.Job{}, nil
	}
	return out.Jobs, nil
}

// GetJob returns one job, with its download link when the backend has one.
func (c *Client) GetJob(ctx context.Context, jobID string) (schema.Job, error) {
	var job schema.Job
	if err := c.getJSON(ctx, opGetJob, "/jobs/"+url.PathEscape(jobID), &job); err != nil {
		return schema.Job{}, err
	}
	return job, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			return err
		}
		return &FetchError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return &FetchError{Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &FetchError{Op: op, Status: resp.StatusCode, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// do attaches a freshly acquired credential to every request.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("job api request failed", "method", method, "path", path, "err", err)
		return nil, err
	}
	return resp, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}
