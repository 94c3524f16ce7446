package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNavigationTimeout means the page did not finish loading in time
	ErrorTypeNavigationTimeout ErrorType = "navigation_timeout"
	// ErrorTypeNetwork means the connection was dropped or the page was not found
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeReadinessTimeout means a content-ready marker never appeared
	ErrorTypeReadinessTimeout ErrorType = "readiness_timeout"
	// ErrorTypeStructural means an expected element is missing from the page
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeParsing represents malformed timestamps, counters or scores
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeExhausted means a bounded retry or expansion loop gave up
	ErrorTypeExhausted ErrorType = "exhausted"
	// ErrorTypeUnsupported means the page implementation cannot perform an interaction
	ErrorTypeUnsupported ErrorType = "unsupported"
	// ErrorTypeStorage represents database errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type    ErrorType
	Target  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Target, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Target, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNavigationTimeout, ErrorTypeNetwork, ErrorTypeReadinessTimeout:
		return true
	default:
		return false
	}
}

// IsEntryLocal reports whether the error only spoils the item being processed
func (e *CrawlerError) IsEntryLocal() bool {
	switch e.Type {
	case ErrorTypeStorage, ErrorTypeConfiguration:
		return false
	default:
		return true
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, target, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:    errType,
		Target:  target,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNavigationTimeout creates a new navigation timeout error
func NewNavigationTimeout(target string, err error) *CrawlerError {
	return New(ErrorTypeNavigationTimeout, target, "timed out receiving message from renderer", err)
}

// NewNetwork creates a new network error
func NewNetwork(target, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, target, message, err)
}

// NewReadinessTimeout creates a new readiness timeout error
func NewReadinessTimeout(target, selector string, err error) *CrawlerError {
	return New(ErrorTypeReadinessTimeout, target, fmt.Sprintf("marker %q never appeared", selector), err)
}

// NewStructural creates a new structural absence error
func NewStructural(target, element string) *CrawlerError {
	return New(ErrorTypeStructural, target, fmt.Sprintf("missing %s", element), nil)
}

// NewParsing creates a new parsing error
func NewParsing(target, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, target, message, err)
}

// NewExhausted creates a new exhausted error
func NewExhausted(target, loop string, attempts int) *CrawlerError {
	return New(ErrorTypeExhausted, target, fmt.Sprintf("%s gave up after %d attempts", loop, attempts), nil)
}

// NewUnsupported creates a new unsupported interaction error
func NewUnsupported(target, action string) *CrawlerError {
	return New(ErrorTypeUnsupported, target, fmt.Sprintf("%s is not supported", action), nil)
}

// NewStorage creates a new storage error
func NewStorage(target, message string, err error) *CrawlerError {
	return New(ErrorTypeStorage, target, message, err)
}

// NewCache creates a new cache error
func NewCache(target, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, target, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(target, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, target, message, err)
}

// NewValidation creates a new validation error
func NewValidation(target, message string) *CrawlerError {
	return New(ErrorTypeValidation, target, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// ClassifyNavigation maps a raw navigation failure onto the taxonomy.
// Parent context cancellation is returned untouched so shutdown is not retried.
func ClassifyNavigation(ctx context.Context, target string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce
	}

	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return NewNavigationTimeout(target, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return NewNavigationTimeout(target, err)
	}
	return NewNetwork(target, "connection dropped", err)
}

// TypeOf returns the ErrorType carried by err, or "" when err is not a CrawlerError
func TypeOf(err error) ErrorType {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

// IsRetryable reports whether err is a retryable CrawlerError
func IsRetryable(err error) bool {
	var ce *CrawlerError
	return stderrors.As(err, &ce) && ce.IsRetryable()
}

// IsEntryLocal reports whether err only affects the current item
func IsEntryLocal(err error) bool {
	var ce *CrawlerError
	return stderrors.As(err, &ce) && ce.IsEntryLocal()
}
