package scraper

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates a timeout while waiting for a rendered page.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the render service rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus is any other non-2xx answer from the render service.
type ErrHTTPStatus struct {
	StatusCode int
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Sprintf("http_status: unexpected status %d", e.StatusCode)
}

// ErrMarkupTooShort indicates a rendered body below the plausibility floor.
type ErrMarkupTooShort struct {
	Length int
	Min    int
}

func (e ErrMarkupTooShort) Error() string {
	return fmt.Sprintf("markup_too_short: %d bytes, need at least %d", e.Length, e.Min)
}

// ErrBlocked indicates the rendered page is a bot-block or challenge page.
type ErrBlocked struct {
	Phrase string
}

func (e ErrBlocked) Error() string {
	return fmt.Sprintf("blocked: page contains %q", e.Phrase)
}

// ErrConfiguration indicates a setup problem that retrying cannot fix.
type ErrConfiguration struct {
	Err error
}

func (e ErrConfiguration) Error() string {
	return fmt.Errorf("configuration: %w", e.Err).Error()
}

func (e ErrConfiguration) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var config ErrConfiguration
	if errors.As(err, &config) {
		return "configuration"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return "http_status"
	}
	var short ErrMarkupTooShort
	if errors.As(err, &short) {
		return "markup_too_short"
	}
	var blocked ErrBlocked
	if errors.As(err, &blocked) {
		return "blocked"
	}
	return "other"
}

// isRetryable reports whether another attempt at the same page could succeed.
func isRetryable(err error) bool {
	var config ErrConfiguration
	if errors.As(err, &config) {
		return false
	}
	var notFound ErrNotFound
	return !errors.As(err, &notFound)
}
