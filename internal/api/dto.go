package api

import "marketqa/internal/model"

// AskRequest is the body of POST /api/v1/ask and /api/v1/analyze.
type AskRequest struct {
	Question string `json:"question"`
}

// Answer is the JSON form of a model.QueryResult. Exactly one of Table,
// Report and Error is set, matching Kind.
type Answer struct {
	Kind      string                `json:"kind"`
	Text      string                `json:"text"`
	Table     *model.TabularRows    `json:"table,omitempty"`
	Report    *model.AnalysisReport `json:"report,omitempty"`
	Error     *model.ErrorMessage   `json:"error,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
}

// NewAnswer wraps res for the wire.
func NewAnswer(res model.QueryResult, requestID string) Answer {
	a := Answer{Kind: res.Kind(), Text: res.Text(), RequestID: requestID}
	switch r := res.(type) {
	case *model.TabularRows:
		a.Table = r
	case *model.AnalysisReport:
		a.Report = r
	case *model.ErrorMessage:
		a.Error = r
	}
	return a
}

// WSRequest is a question sent over the WebSocket. Type is "ask" (the
// default) or "analyze"; ID is echoed back on the answer.
type WSRequest struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Question string `json:"question"`
}

// WSResponse is the answer to one WSRequest.
type WSResponse struct {
	ID string `json:"id,omitempty"`
	Answer
}

type errorBody struct {
	Error string `json:"error"`
}
