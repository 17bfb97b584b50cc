// Package source resolves audioRef values into encoded audio bytes on the host
// side, before a request reaches the engine.
package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"
)

var (
	// ErrOutsideLibrary is returned for file references outside every library path
	ErrOutsideLibrary = errors.New("path is outside the configured library paths")
	// ErrUnsupportedExtension is returned for files that are not audio
	ErrUnsupportedExtension = errors.New("unsupported audio file extension")
	// ErrTooLarge is returned when a source exceeds the size limit
	ErrTooLarge = errors.New("audio source exceeds size limit")
	// ErrRemoteDisabled is returned for http(s) references when remote fetching is off
	ErrRemoteDisabled = errors.New("remote audio references are disabled")
)

// SupportedExtensions are the audio file extensions we recognize
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".wav":  true,
	".wma":  true,
	".alac": true,
	".opus": true,
}

// Config contains configuration for the resolver
type Config struct {
	LibraryPaths []string
	MaxBytes     int64         // 0 = unlimited
	HTTPTimeout  time.Duration // 0 = 30s
	AllowRemote  bool
}

// Resolver dispatches references to the file or HTTP fetcher by URL scheme
type Resolver struct {
	files  *FileResolver
	remote *HTTPResolver
}

// NewResolver creates a resolver
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{files: NewFileResolver(cfg.LibraryPaths, cfg.MaxBytes)}
	if cfg.AllowRemote {
		r.remote = NewHTTPResolver(cfg.HTTPTimeout, cfg.MaxBytes)
	}
	return r
}

// Resolve returns the bytes ref points at. Plain paths and file:// URLs are
// read from the library; http(s) URLs are fetched when enabled.
func (r *Resolver) Resolve(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid audio reference: %w", err)
	}

	var data []byte
	switch u.Scheme {
	case "", "file":
		path := ref
		if u.Scheme == "file" {
			path = u.Path
		}
		data, err = r.files.Resolve(ctx, path)
	case "http", "https":
		if r.remote == nil {
			return nil, ErrRemoteDisabled
		}
		data, err = r.remote.Resolve(ctx, ref)
	default:
		return nil, fmt.Errorf("unsupported reference scheme %q", u.Scheme)
	}
	if err != nil {
		log.Printf("[SOURCE] Failed to resolve %s: %v", ref, err)
		return nil, err
	}

	log.Printf("[SOURCE] Resolved %s (%d bytes)", ref, len(data))
	return data, nil
}
