package ocr

import (
	"errors"
	"fmt"
)

// ErrInvalidInput reports an unusable input image.
var ErrInvalidInput = errors.New("invalid input image")

// ErrDisabled reports that recognition is switched off in settings.
var ErrDisabled = errors.New("ocr is disabled")

// DependencyError reports a missing runtime capability, such as absent
// tesseract language data. The message tells the user what to install.
type DependencyError struct {
	Message string
	Cause   error
}

func (e *DependencyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DependencyError) Unwrap() error {
	return e.Cause
}

// InitError reports that the recognizer could not be brought up, after
// retries where the failure looked transient.
type InitError struct {
	Languages []string
	Cause     error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize recognizer for languages %v: %v", e.Languages, e.Cause)
}

func (e *InitError) Unwrap() error {
	return e.Cause
}
