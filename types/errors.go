package types

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrEmptySelection  = errors.New("message and selected chunks are required")
	ErrInvalidDocument = errors.New("invalid document")
	ErrPromptTooLarge  = errors.New("prompt exceeds token budget")
	ErrNoDocumentView  = errors.New("session has no document selected")
)

type ServiceName string

const (
	ServiceExtraction ServiceName = "extraction"
	ServiceCompletion ServiceName = "completion"
)

// ServiceError is a failure reported by an upstream collaborator.
// Status is the HTTP status returned by the upstream, or 0 when none was received.
type ServiceError struct {
	Service ServiceName
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s service: status %d: %s: %v", e.Service, e.Status, e.Message, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s service: status %d: %s", e.Service, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s service: %s: %v", e.Service, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service: %s", e.Service, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// IsRateLimited reports whether err carries an upstream rate-limit signal.
func IsRateLimited(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.RateLimited()
	}
	return false
}
