package errors

import (
	"errors"
	"fmt"
)

// Category represents the terminal failure categories of a run
type Category string

const (
	CategoryConfig Category = "config"
	CategoryImage  Category = "image"
	CategoryAuth   Category = "auth"
	CategoryPost   Category = "post"
)

// Exit codes reported to the invoking shell, one per category
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	ExitImage   = 3
	ExitAuth    = 4
	ExitPost    = 5
)

// Error represents a categorized run error with optional HTTP status code
type Error struct {
	Category Category
	Message  string
	Code     int
	Err      error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Category, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error
func NewConfigError(msg string, err error) *Error {
	return &Error{Category: CategoryConfig, Message: msg, Err: err}
}

// NewImageError creates an image loading/processing error
func NewImageError(msg string, err error) *Error {
	return &Error{Category: CategoryImage, Message: msg, Err: err}
}

// NewAuthError creates an authentication error
func NewAuthError(msg string, code int) *Error {
	return &Error{Category: CategoryAuth, Message: msg, Code: code}
}

// NewPostError creates a post submission error
func NewPostError(msg string, code int) *Error {
	return &Error{Category: CategoryPost, Message: msg, Code: code}
}

// CategoryOf returns the category of err, or empty when err is not categorized
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// ExitCode maps an error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch CategoryOf(err) {
	case CategoryConfig:
		return ExitConfig
	case CategoryImage:
		return ExitImage
	case CategoryAuth:
		return ExitAuth
	case CategoryPost:
		return ExitPost
	default:
		return ExitFailure
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable
// failure. Only the image download path consults this; post submission is
// always a single attempt.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
