package upload

import "errors"

// ErrSubmissionInFlight rejects selection or submission while an upload runs.
var ErrSubmissionInFlight = errors.New("an upload is already in progress")

const (
	msgNotPDF     = "Please select a PDF file"
	msgNoFile     = "Please select a file first"
	msgBadLang    = "Unsupported target language"
	msgNotHandled = "An error occurred during upload"
)

// ValidationError is a local rejection that never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
