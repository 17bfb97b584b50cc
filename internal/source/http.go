package source

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPResolver downloads audio over http(s)
type HTTPResolver struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPResolver creates an HTTP resolver
func NewHTTPResolver(timeout time.Duration, maxBytes int64) *HTTPResolver {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPResolver{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Resolve fetches url and returns the body
func (h *HTTPResolver) Resolve(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid audio url: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audio fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audio fetch status %d", resp.StatusCode)
	}
	if h.maxBytes > 0 && resp.ContentLength > h.maxBytes {
		return nil, fmt.Errorf("content length %d: %w", resp.ContentLength, ErrTooLarge)
	}

	data, err := readLimited(resp.Body, h.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("audio fetch read failed: %w", err)
	}
	return data, nil
}
