package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Fetch error kinds.
var (
	ErrNetwork       = errors.New("network error")
	ErrHTTPStatus    = errors.New("unexpected http status")
	ErrEmptyResponse = errors.New("empty response")
	ErrCancelled     = errors.New("fetch cancelled")
	ErrCircuitOpen   = errors.New("circuit open")
)

// Parse error kinds.
var (
	ErrInvalidJSON        = errors.New("invalid json")
	ErrMissingResultArray = errors.New("missing result array")
	ErrUnexpectedShape    = errors.New("unexpected shape")
)

// ConfigurationError reports a request the caller must fix before retrying.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Stage names the pipeline stage that failed.
func (e *ConfigurationError) Stage() string { return "query" }

// FetchError reports a failed page download.
type FetchError struct {
	Kind       error
	StatusCode int    // set for ErrHTTPStatus
	URL        string // never carries credentials
	Err        error
}

func (e *FetchError) Error() string {
	msg := "fetch: " + e.Kind.Error()
	if errors.Is(e.Kind, ErrHTTPStatus) {
		msg += fmt.Sprintf(" %d", e.StatusCode)
	}
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func (e *FetchError) Stage() string { return "fetch" }

// Retryable reports whether repeating the same request may succeed.
func (e *FetchError) Retryable() bool {
	switch {
	case errors.Is(e.Kind, ErrNetwork), errors.Is(e.Kind, ErrEmptyResponse):
		return true
	case errors.Is(e.Kind, ErrHTTPStatus):
		return e.StatusCode == http.StatusRequestTimeout ||
			e.StatusCode == http.StatusTooManyRequests ||
			e.StatusCode >= 500
	default:
		return false
	}
}

// ParseError reports a malformed response envelope.
type ParseError struct {
	Kind error
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse: " + e.Kind.Error() + ": " + e.Err.Error()
	}
	return "parse: " + e.Kind.Error()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func (e *ParseError) Stage() string { return "parse" }

// StageOf returns the pipeline stage an error originated from, or "" when
// the error does not belong to the pipeline taxonomy.
func StageOf(err error) string {
	var staged interface{ Stage() string }
	if errors.As(err, &staged) {
		return staged.Stage()
	}
	return ""
}
