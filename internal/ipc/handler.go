package ipc

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/austinkregel/local-media/audiod/internal/engine"
)

// Dispatcher runs engine requests; *engine.Pool implements it
type Dispatcher interface {
	Do(ctx context.Context, req engine.Request) (engine.Response, error)
	Status() engine.PoolStatus
}

// Router turns one encoded request into one response. The socket server and
// the D-Bus transport share it.
type Router struct {
	dispatcher Dispatcher
	started    time.Time
	verbose    bool
}

// NewRouter creates a router. With verbose set every request and response is logged.
func NewRouter(d Dispatcher, verbose bool) *Router {
	return &Router{dispatcher: d, started: time.Now(), verbose: verbose}
}

// Handle decodes msg, runs it and returns the response. It never returns nil.
func (r *Router) Handle(ctx context.Context, msg []byte) *Response {
	start := time.Now()

	req, err := DecodeRequest(msg)
	if err != nil {
		log.Printf("[IPC] Invalid request format: %v", err)
		return NewErrorResponse("", engine.InvalidInput("invalid request format", err))
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if r.verbose {
		RequestLogger(req)
	}

	resp := r.route(ctx, req)

	if r.verbose {
		ResponseLogger(resp, time.Since(start))
	}
	return resp
}

func (r *Router) route(ctx context.Context, req *Request) *Response {
	switch req.Type {
	case CmdPing:
		return &Response{ID: req.ID, Type: TypePong}

	case CmdStatus:
		resp, err := NewSuccessResponse(req.ID, TypeStatus, StatusResponse{
			Pool:          r.dispatcher.Status(),
			UptimeSeconds: int64(time.Since(r.started).Seconds()),
		})
		if err != nil {
			return NewErrorResponse(req.ID, err)
		}
		return resp

	default:
		engReq, err := req.EngineRequest()
		if err != nil {
			return NewErrorResponse(req.ID, err)
		}

		result, err := r.dispatcher.Do(ctx, engReq)
		if err != nil {
			return NewErrorResponse(req.ID, err)
		}

		resp, err := NewResponse(result)
		if err != nil {
			log.Printf("[IPC] Failed to encode response for %s: %v", req.ID, err)
			return NewErrorResponse(req.ID, engine.InternalError("failed to encode response", err))
		}
		return resp
	}
}

// RequestLogger logs incoming requests (for debugging)
func RequestLogger(req *Request) {
	log.Printf("[IPC] Request: type=%s id=%s data=%s", req.Type, req.ID, formatSize(len(req.Data)))
}

// ResponseLogger logs outgoing responses (for debugging)
func ResponseLogger(resp *Response, duration time.Duration) {
	if resp.Success() {
		log.Printf("[IPC] Response: type=%s id=%s duration=%v", resp.Type, resp.ID, duration)
	} else {
		log.Printf("[IPC] Response: code=%s error=%q id=%s duration=%v", resp.Code, resp.Error, resp.ID, duration)
	}
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
