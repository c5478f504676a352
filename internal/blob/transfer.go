// Package blob performs the direct byte transfer to a pre-signed upload target.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ContentTypePDF is the only content type the upload targets accept.
const ContentTypePDF = "application/pdf"

const defaultTransferMessage = "Failed to upload file to storage"

// TransferError reports that the bytes did not reach the blob store.
type TransferError struct {
	Status int
	Cause  error
}

func (e *TransferError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", defaultTransferMessage, e.Cause)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", defaultTransferMessage, e.Status)
	default:
		return defaultTransferMessage
	}
}

func (e *TransferError) Unwrap() error { return e.Cause }

// Transferer uploads a payload to a pre-signed target URL.
type Transferer interface {
	Transfer(ctx context.Context, target string, data []byte, contentType string) error
}

// HTTPTransferer PUTs the raw bytes to the target. Any 2xx is success.
type HTTPTransferer struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTPTransferer(client *http.Client, logger *slog.Logger) *HTTPTransferer {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTransferer{client: client, logger: logger}
}

func (t *HTTPTransferer) Transfer(ctx context.Context, target string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return &TransferError{Cause: fmt.Errorf("build request: %w", err)}
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return &TransferError{Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Warn("blob transfer rejected", "status", resp.StatusCode, "host", req.URL.Host)
		return &TransferError{Status: resp.StatusCode}
	}
	return nil
}

// Router sends Azure SAS targets to the Azure transferer and everything
// else to the plain HTTP one.
type Router struct {
	HTTP  Transferer
	Azure Transferer
}

func (r Router) Transfer(ctx context.Context, target string, data []byte, contentType string) error {
	if r.Azure != nil && IsAzureBlobURL(target) {
		return r.Azure.Transfer(ctx, target, data, contentType)
	}
	return r.HTTP.Transfer(ctx, target, data, contentType)
}

// IsAzureBlobURL reports whether target points at an Azure Storage blob endpoint.
func IsAzureBlobURL(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".blob.core.windows.net")
}
