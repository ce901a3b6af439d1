// Package protocol defines the JSON envelopes exchanged with breakpointd
// clients over a websocket.
package protocol

import "encoding/json"

const (
	TypeHello    = "hello"
	TypeResponse = "response"
)

const (
	MethodPing    = "ping"
	MethodCount   = "breakpoints.count"
	MethodColumns = "breakpoints.columns"
	MethodSelect  = "breakpoints.select"
)

const (
	CodeBadParams     = "bad_params"
	CodeDBError       = "db_error"
	CodeUnknownMethod = "unknown_method"
)

type Envelope struct {
	Type      string          `json:"type,omitempty"`
	ID        string          `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    any             `json:"result,omitempty"`
	Error     *Error          `json:"error,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Version   string          `json:"version,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SelectParams struct {
	Columns []string `json:"columns,omitempty"`
	Limit   *int     `json:"limit,omitempty"`
	Offset  *int     `json:"offset,omitempty"`
}
