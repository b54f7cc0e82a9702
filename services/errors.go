package services

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"ragwizard/models"
)

// ErrBusy is returned when the same operation is submitted while one is in flight
var ErrBusy = errors.New("operation already in progress")

// ErrPollInProgress is returned when a second status poll is started for a session
var ErrPollInProgress = errors.New("status poll already running")

// ErrSessionNotFound is returned by session stores for unknown or expired ids
var ErrSessionNotFound = errors.New("wizard session not found")

// NetworkErrorMessage is shown for transport failures
const NetworkErrorMessage = "Network error. Please check your connection and try again."

// ValidationError reports blank or malformed input caught before any network call
type ValidationError struct {
	Slots   []models.ErrorSlot
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConstraintReason says why a file was refused
type ConstraintReason string

const (
	ReasonInvalidType ConstraintReason = "invalid_type"
	ReasonTooLarge    ConstraintReason = "too_large"
	ReasonTooMany     ConstraintReason = "too_many"
)

// UploadConstraintError rejects a single file during selection
type UploadConstraintError struct {
	File   string
	Reason ConstraintReason
}

func (e *UploadConstraintError) Error() string {
	switch e.Reason {
	case ReasonInvalidType:
		return fmt.Sprintf("Invalid file type: %s. Supported formats: PDF, TXT, DOCX", e.File)
	case ReasonTooLarge:
		return fmt.Sprintf("File too large: %s. Maximum size is 50MB", e.File)
	case ReasonTooMany:
		return fmt.Sprintf("Cannot add %s: maximum %d files allowed per chatbot", e.File, MaxFilesPerChatbot)
	}
	return fmt.Sprintf("Cannot add %s", e.File)
}

// ConstraintErrors collects every file rejected by one selection
type ConstraintErrors []*UploadConstraintError

func (e ConstraintErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// UploadError is returned when an upload is attempted with nothing selected
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return e.Message
}

// NetworkError wraps transport failures (DNS, refused connection, timeouts)
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-2xx backend answer
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// TimeoutError is returned when polling exhausts its attempts
type TimeoutError struct {
	Attempts int
}

func (e *TimeoutError) Error() string {
	return ProcessingTimeoutMessage
}

// StepError is returned when an operation is not available on the current step
type StepError struct {
	Op   string
	Step models.WizardStep
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s is not available on step %d", e.Op, e.Step)
}

// UserMessage turns err into the text shown next to the failing control
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var remote *RemoteError
	if errors.As(err, &remote) {
		if remote.Message != "" {
			return remote.Message
		}
		return fallback
	}

	var network *NetworkError
	if errors.As(err, &network) {
		return NetworkErrorMessage
	}

	var validation *ValidationError
	var constraint *UploadConstraintError
	var constraints ConstraintErrors
	var upload *UploadError
	var timeout *TimeoutError
	var step *StepError
	switch {
	case errors.As(err, &validation), errors.As(err, &constraint), errors.As(err, &constraints), errors.As(err, &upload),
		errors.As(err, &timeout), errors.As(err, &step):
		return err.Error()
	}

	if errors.Is(err, ErrBusy) {
		return "Please wait for the current request to finish"
	}
	return fallback
}
