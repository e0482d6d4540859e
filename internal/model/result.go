package model

import "errors"

// QueryResult is the outcome of a question. It is one of *TabularRows,
// *AnalysisReport or *ErrorMessage.
type QueryResult interface {
	// Kind returns "table", "analysis" or "error".
	Kind() string
	// Text returns the rendered result.
	Text() string

	sealed()
}

// TabularRows is a header plus row result from a store lookup.
type TabularRows struct {
	Intent   Intent   `json:"intent"`
	Headers  []string `json:"headers"`
	Rows     [][]any  `json:"rows"`
	Rendered string   `json:"text"`
}

func (t *TabularRows) Kind() string { return "table" }
func (t *TabularRows) Text() string { return t.Rendered }
func (*TabularRows) sealed()        {}

// Len returns the number of data rows.
func (t *TabularRows) Len() int { return len(t.Rows) }

// AnalysisReport is the result of a technical-analysis question.
type AnalysisReport struct {
	Ticker  string         `json:"ticker"`
	Summary string         `json:"text"`
	Series  []IndicatorRow `json:"series"`
	Signals []Signal       `json:"signals"`
}

func (a *AnalysisReport) Kind() string { return "analysis" }
func (a *AnalysisReport) Text() string { return a.Summary }
func (*AnalysisReport) sealed()        {}

// ErrorMessage is a user-visible error result.
type ErrorMessage struct {
	ErrKind ErrorKind `json:"error_kind"`
	Detail  string    `json:"detail,omitempty"`
}

func (e *ErrorMessage) Kind() string { return "error" }
func (e *ErrorMessage) Text() string { return UserMessage(e.ErrKind, e.Detail) }
func (*ErrorMessage) sealed()        {}

// ErrorResult converts an error into an *ErrorMessage.
func ErrorResult(err error) *ErrorMessage {
	kind := KindOf(err)
	msg := &ErrorMessage{ErrKind: kind}
	var qe *QueryError
	if errors.As(err, &qe) && kind != ErrUpstreamQuery && kind != ErrSchemaMissing {
		msg.Detail = qe.Detail
	}
	return msg
}
