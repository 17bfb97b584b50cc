// Package ipc exposes the audio engine to clients as newline-delimited JSON.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/austinkregel/local-media/audiod/internal/engine"
)

// CommandType represents the type of request
type CommandType string

const (
	CmdProcessAudio    CommandType = engine.TypeProcessAudio
	CmdAnalyzeAudio    CommandType = engine.TypeAnalyzeAudio
	CmdExtractFeatures CommandType = engine.TypeExtractFeatures

	// Daemon commands, answered without touching the engine
	CmdStatus CommandType = "status"
	CmdPing   CommandType = "ping"
)

// Response types of the daemon commands
const (
	TypeStatus = "status"
	TypePong   = "pong"
)

// Request represents a client request. Data is decoded into an engine payload
// for the analysis commands.
type Request struct {
	ID   string          `json:"id,omitempty"`
	Type CommandType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response represents a server response
type Response struct {
	ID    string          `json:"id,omitempty"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  engine.Kind     `json:"code,omitempty"`
}

// Success reports whether the response carries a result
func (r *Response) Success() bool {
	return r.Type != engine.TypeError
}

// StatusResponse is the response to a status command
type StatusResponse struct {
	Pool          engine.PoolStatus `json:"pool"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
}

// EncodeRequest encodes a request to JSON
func EncodeRequest(req *Request) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeRequest decodes a request from JSON
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if req.Type == "" {
		return nil, fmt.Errorf("failed to decode request: missing type")
	}
	return &req, nil
}

// EncodeResponse encodes a response to JSON
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse decodes a response from JSON
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// EngineRequest converts a wire request into an engine request
func (r *Request) EngineRequest() (engine.Request, error) {
	req := engine.Request{ID: r.ID, Type: string(r.Type)}
	if len(r.Data) > 0 && string(r.Data) != "null" {
		if err := json.Unmarshal(r.Data, &req.Payload); err != nil {
			return req, engine.InvalidInput("invalid request data", err)
		}
	}
	return req, nil
}

// NewResponse converts an engine response into its wire form
func NewResponse(resp engine.Response) (*Response, error) {
	out := &Response{
		ID:    resp.ID,
		Type:  resp.Type,
		Error: resp.Error,
		Code:  resp.Code,
	}
	if resp.Data != nil {
		raw, err := json.Marshal(resp.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s data: %w", resp.Type, err)
		}
		out.Data = raw
	}
	return out, nil
}

// NewSuccessResponse creates a response of the given type
func NewSuccessResponse(id, respType string, data interface{}) (*Response, error) {
	return NewResponse(engine.Response{ID: id, Type: respType, Data: data})
}

// NewErrorResponse creates an error response classified from err
func NewErrorResponse(id string, err error) *Response {
	e := engine.ErrorResponse(id, err)
	return &Response{ID: id, Type: e.Type, Error: e.Error, Code: e.Code}
}
