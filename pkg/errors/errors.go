package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents network, timeout and non-2xx failures
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeMalformedData represents embedded script data that is not valid JSON
	ErrorTypeMalformedData ErrorType = "malformed_data"
	// ErrorTypePersistence represents listing store read/write failures
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeBrowser represents headless browser failures
	ErrorTypeBrowser ErrorType = "browser"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// DetailError represents an error raised inside the detail pipeline.
// None of these cross the public boundary of the manager; they are logged
// and degrade to less data.
type DetailError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *DetailError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *DetailError) Unwrap() error {
	return e.Err
}

// TypeOf reports the ErrorType of err, or "" when err is not a DetailError.
func TypeOf(err error) ErrorType {
	var de *DetailError
	if stderrors.As(err, &de) {
		return de.Type
	}
	return ""
}

// New creates a new DetailError
func New(errType ErrorType, component, message string, err error) *DetailError {
	return &DetailError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(component, message string, err error) *DetailError {
	return New(ErrorTypeFetch, component, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *DetailError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewMalformedData creates a new malformed embedded data error
func NewMalformedData(component, message string, err error) *DetailError {
	return New(ErrorTypeMalformedData, component, message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(component, message string, err error) *DetailError {
	return New(ErrorTypePersistence, component, message, err)
}

// NewCache creates a new cache error
func NewCache(component, message string, err error) *DetailError {
	return New(ErrorTypeCache, component, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(component, message string, err error) *DetailError {
	return New(ErrorTypePublisher, component, message, err)
}

// NewBrowser creates a new browser automation error
func NewBrowser(component, message string, err error) *DetailError {
	return New(ErrorTypeBrowser, component, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *DetailError {
	return New(ErrorTypeConfiguration, "config", message, err)
}
