package daemon

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/yantra-mind/memoryd/core/apperr"
)

// JSON-RPC 2.0 protocol error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Tool-level error codes carried in the error data of a tools/call
// failure.
const (
	toolErrInvalidParams  = "invalid_params"
	toolErrNotFound       = "tool_not_found"
	toolErrExecution      = "tool_execution_error"
	toolErrTimeout        = "timeout"
	toolErrStore          = "store_error"
)

// request is one decoded JSON-RPC 2.0 frame.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// response is one JSON-RPC 2.0 reply frame.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func okResponse(id json.RawMessage, result any) response {
	return response{JSONRPC: "2.0", ID: id, Result: result}
}

func errResponse(id json.RawMessage, code int, message string, data any) response {
	return response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message, Data: data}}
}

// toolErrorCode maps an operation failure onto the tool-level error
// vocabulary clients switch on. An unknown tool name is mapped by the
// dispatcher before execution, so it never reaches this translation.
func toolErrorCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return toolErrTimeout
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return toolErrInvalidParams
	case apperr.KindStore, apperr.KindCapacity:
		return toolErrStore
	default:
		return toolErrExecution
	}
}
