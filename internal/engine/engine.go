// Package engine dispatches typed audio requests to the decoding, mixing and
// analysis pipeline and converts every outcome into exactly one response.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/austinkregel/local-media/audiod/internal/analysis"
	"github.com/austinkregel/local-media/audiod/internal/audio"
	"github.com/austinkregel/local-media/audiod/internal/types"
)

// Request types
const (
	TypeProcessAudio    = "processAudio"
	TypeAnalyzeAudio    = "analyzeAudio"
	TypeExtractFeatures = "extractFeatures"
)

// Response types
const (
	TypeAudioProcessed        = "audioProcessed"
	TypeAudioAnalysisComplete = "audioAnalysisComplete"
	TypeFeaturesExtracted     = "featuresExtracted"
	TypeError                 = "error"
)

// Payload carries the audio source and options of a request. Exactly one
// source is used, in order of preference: Channels, AudioBytes, AudioRef.
type Payload struct {
	AudioBytes []byte      `json:"audioBytes,omitempty"`
	AudioRef   string      `json:"audioRef,omitempty"`
	Channels   [][]float64 `json:"channels,omitempty"`
	SampleRate int         `json:"sampleRate,omitempty"`
	Quality    string      `json:"quality,omitempty"`
	TrackID    string      `json:"trackId,omitempty"`
}

// Request is a single unit of work
type Request struct {
	ID      string  `json:"id,omitempty"`
	Type    string  `json:"type"`
	Payload Payload `json:"data"`
}

// Response is the single outcome of a request
type Response struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Code  Kind   `json:"code,omitempty"`
}

// ErrorResponse builds the error response for err
func ErrorResponse(id string, err error) Response {
	e := Classify(err)
	return Response{ID: id, Type: TypeError, Error: e.Error(), Code: e.Kind}
}

// Decoder turns encoded bytes into channels
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*types.DecodedAudio, error)
}

// Resolver fetches the encoded bytes an audioRef points at
type Resolver interface {
	Resolve(ctx context.Context, ref string) ([]byte, error)
}

// Handler processes one request at a time
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// Config contains the collaborators of an engine
type Config struct {
	Decoder  Decoder
	Resolver Resolver // optional; without it audioRef is rejected
	Params   analysis.Params
}

// Engine executes requests. It holds no per-request state, but a pool still
// gives every worker its own instance.
type Engine struct {
	decoder  Decoder
	resolver Resolver
	params   analysis.Params
}

// NewEngine creates an engine
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Decoder == nil {
		return nil, fmt.Errorf("engine requires a decoder")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis parameters: %w", err)
	}
	return &Engine{
		decoder:  cfg.Decoder,
		resolver: cfg.Resolver,
		params:   cfg.Params,
	}, nil
}

// Handle executes req and returns exactly one response. Panics raised by the
// pipeline are recovered and reported as InternalError.
func (e *Engine) Handle(ctx context.Context, req Request) (resp Response) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ENGINE] Recovered panic in %s %s: %v", req.Type, req.ID, r)
			resp = ErrorResponse(req.ID, InternalError(fmt.Sprintf("panic: %v", r), nil))
		}
	}()

	data, respType, err := e.dispatch(ctx, req)
	if err != nil {
		resp = ErrorResponse(req.ID, err)
		log.Printf("[ENGINE] %s %s failed (%s) after %v: %s", req.Type, req.ID, resp.Code, time.Since(start), resp.Error)
		return resp
	}

	log.Printf("[ENGINE] %s %s completed in %v", req.Type, req.ID, time.Since(start))
	return Response{ID: req.ID, Type: respType, Data: data}
}

func (e *Engine) dispatch(ctx context.Context, req Request) (any, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", Timeout(err)
	}

	switch req.Type {
	case TypeProcessAudio:
		processed, err := e.processAudio(ctx, req.Payload)
		return processed, TypeAudioProcessed, err

	case TypeAnalyzeAudio:
		decoded, err := e.load(ctx, req.Payload)
		if err != nil {
			return nil, "", err
		}
		result, err := analysis.Analyze(ctx, decoded.Left(), e.params)
		if err != nil {
			return nil, "", fmt.Errorf("analyzing audio: %w", err)
		}
		return result, TypeAudioAnalysisComplete, nil

	case TypeExtractFeatures:
		decoded, err := e.load(ctx, req.Payload)
		if err != nil {
			return nil, "", err
		}
		features := analysis.ExtractFeatures(decoded.Left(), e.params)
		return &features, TypeFeaturesExtracted, nil

	default:
		return nil, "", UnsupportedOperation(fmt.Sprintf("unknown request type: %q", req.Type))
	}
}

func (e *Engine) processAudio(ctx context.Context, p Payload) (*types.ProcessedAudio, error) {
	quality, err := types.ParseQuality(p.Quality)
	if err != nil {
		return nil, InvalidInput("invalid quality", err)
	}

	decoded, err := e.load(ctx, p)
	if err != nil {
		return nil, err
	}

	mixed, err := audio.Mix(decoded.Channels, quality)
	if err != nil {
		return nil, InvalidInput("cannot mix channels", err)
	}

	return &types.ProcessedAudio{
		TrackID:    p.TrackID,
		Samples:    mixed.Samples,
		SampleRate: mixed.SampleRate,
		Duration:   mixed.Duration(),
	}, nil
}

// load produces the decoded channels for whichever source the payload carries
func (e *Engine) load(ctx context.Context, p Payload) (*types.DecodedAudio, error) {
	switch {
	case len(p.Channels) > 0:
		return fromChannels(p.Channels, p.SampleRate)

	case len(p.AudioBytes) > 0:
		return e.decode(ctx, p.AudioBytes)

	case p.AudioRef != "":
		if e.resolver == nil {
			return nil, InvalidInput("audioRef is not supported by this engine", nil)
		}
		data, err := e.resolver.Resolve(ctx, p.AudioRef)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, Timeout(ctxErr)
			}
			return nil, InvalidInput(fmt.Sprintf("cannot resolve %q", p.AudioRef), err)
		}
		return e.decode(ctx, data)

	default:
		return nil, InvalidInput("no audio provided", nil)
	}
}

func (e *Engine) decode(ctx context.Context, data []byte) (*types.DecodedAudio, error) {
	decoded, err := e.decoder.Decode(ctx, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, Timeout(err)
		}
		return nil, DecodeError(err)
	}
	return decoded, nil
}

// fromChannels wraps already decoded channels, duplicating mono input
func fromChannels(channels [][]float64, sampleRate int) (*types.DecodedAudio, error) {
	if sampleRate <= 0 {
		return nil, InvalidInput("sampleRate is required with channels", nil)
	}

	n := len(channels[0])
	if n == 0 {
		return nil, InvalidInput("channels contain no samples", nil)
	}

	seqs := make([]types.SampleSequence, 0, len(channels)+1)
	for i, ch := range channels {
		if len(ch) != n {
			return nil, InvalidInput(fmt.Sprintf("channel %d has %d samples, expected %d", i, len(ch), n), nil)
		}
		seqs = append(seqs, types.SampleSequence{Samples: ch, SampleRate: sampleRate})
	}
	if len(seqs) == 1 {
		seqs = append(seqs, seqs[0])
	}
	return &types.DecodedAudio{Channels: seqs, SampleRate: sampleRate}, nil
}
