package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed query.
type ErrorKind string

const (
	ErrNoTickerFound     ErrorKind = "no_ticker_found"
	ErrNoDataFound       ErrorKind = "no_data_found"
	ErrSchemaMissing     ErrorKind = "schema_missing"
	ErrMalformedTimespan ErrorKind = "malformed_timespan"
	ErrUpstreamQuery     ErrorKind = "upstream_query_error"
	ErrUnclassified      ErrorKind = "unclassified"
)

// QueryError is the error type returned by the extractor and the accessor.
// Cause is kept for logging and never rendered to the user.
type QueryError struct {
	Kind   ErrorKind
	Detail string
	Cause  error
}

// NewQueryError builds a QueryError with a formatted detail.
func NewQueryError(kind ErrorKind, format string, args ...any) *QueryError {
	return &QueryError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WithCause attaches the underlying error.
func (e *QueryError) WithCause(err error) *QueryError {
	e.Cause = err
	return e
}

func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *QueryError) Unwrap() error { return e.Cause }

// Is matches another *QueryError by kind, so errors.Is(err,
// &QueryError{Kind: ErrNoDataFound}) works.
func (e *QueryError) Is(target error) bool {
	var t *QueryError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of a QueryError in err's chain, or
// ErrUpstreamQuery for any other non-nil error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ErrUpstreamQuery
}

// UserMessage is the text shown for an error of the given kind.
func UserMessage(kind ErrorKind, detail string) string {
	switch kind {
	case ErrNoTickerFound:
		if detail != "" {
			return "No ticker found: " + detail + ". Please specify a ticker in parentheses, e.g., (AAPL)."
		}
		return "No ticker found. Please specify a ticker in parentheses, e.g., (AAPL)."
	case ErrNoDataFound:
		if detail != "" {
			return "No data found " + detail + "."
		}
		return "No data found."
	case ErrSchemaMissing:
		return "The data store is missing required tables or columns."
	case ErrMalformedTimespan:
		return "Invalid time span: " + detail + ". Use a positive number of days, months or years."
	case ErrUnclassified:
		return "Sorry, I couldn't understand the query. Please be more specific."
	default:
		return "An error occurred while querying the data store. Please try again later."
	}
}
