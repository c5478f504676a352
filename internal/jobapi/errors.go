package jobapi

import "fmt"

// IntentError reports that the backend refused to issue an upload slot.
// Reason carries the backend's own message when it sent one.
type IntentError struct {
	Status int
	Reason string
	Cause  error
}

func (e *IntentError) Error() string {
	return e.Reason
}

func (e *IntentError) Unwrap() error { return e.Cause }

// FetchError reports a failed job listing or job lookup, whatever the cause:
// transport failure, timeout or a non-success status.
type FetchError struct {
	Op     string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	msg := "Failed to fetch jobs"
	if e.Op == opGetJob {
		msg = "Failed to get download URL"
	}
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", msg, e.Status)
	default:
		return msg
	}
}

func (e *FetchError) Unwrap() error { return e.Cause }
