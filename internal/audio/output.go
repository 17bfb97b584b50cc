package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"github.com/austinkregel/local-media/audiod/internal/types"
)

const (
	defaultSampleRate = 44100
	defaultBitDepth   = 2 // 16-bit = 2 bytes

	// How often Play checks whether the player has drained
	previewPollInterval = 50 * time.Millisecond
)

// Preview plays processed (mono) audio through the system output using Oto.
// Oto allows one context per process, so a Preview is created once and reused.
type Preview struct {
	context    *oto.Context
	sampleRate int
	mu         sync.Mutex
	buffer     *bytes.Reader
	volume     float64 // 0.0 - 1.0
	closed     bool
}

// NewPreview creates an Oto context for mono 16-bit output at sampleRate
func NewPreview(sampleRate int) (*Preview, error) {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	ctx, ready, err := oto.NewContext(sampleRate, 1, defaultBitDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	// Wait for context to be ready
	<-ready

	return &Preview{
		context:    ctx,
		sampleRate: sampleRate,
		buffer:     bytes.NewReader(nil),
		volume:     1.0,
	}, nil
}

// Read implements io.Reader for the Oto player
func (p *Preview) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.EOF
	}

	n, err := p.buffer.Read(b)
	if n > 0 && p.volume < 1.0 {
		p.applyVolume(b[:n])
	}
	return n, err
}

// Play blocks until audio has been played completely or ctx is done
func (p *Preview) Play(ctx context.Context, audio *types.ProcessedAudio) error {
	if audio.SampleRate != p.sampleRate {
		return fmt.Errorf("preview runs at %d Hz, audio is %d Hz", p.sampleRate, audio.SampleRate)
	}

	p.mu.Lock()
	p.buffer = bytes.NewReader(EncodePCM16(audio.Samples))
	p.mu.Unlock()

	player := p.context.NewPlayer(p)
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(previewPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			if !player.IsPlaying() {
				return player.Err()
			}
		}
	}
}

// EncodePCM16 converts normalized samples into signed 16-bit little-endian PCM,
// clipping anything outside [-1, 1]
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		v := int16(math.Round(s * 32767))
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// applyVolume scales 16-bit PCM samples by the current volume
func (p *Preview) applyVolume(data []byte) {
	vol := p.volume
	if vol >= 1.0 {
		return
	}

	// Process 16-bit samples (2 bytes per sample, little-endian)
	for i := 0; i < len(data)-1; i += 2 {
		sample := int16(data[i]) | int16(data[i+1])<<8
		scaled := int16(float64(sample) * vol)
		data[i] = byte(scaled)
		data[i+1] = byte(scaled >> 8)
	}
}

// SetVolume sets the playback volume (0.0 - 1.0)
func (p *Preview) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume = v
}

// GetVolume returns the current volume
func (p *Preview) GetVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Close stops feeding the player; any Read returns EOF afterwards
func (p *Preview) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// SampleRate returns the sample rate
func (p *Preview) SampleRate() int {
	return p.sampleRate
}

// Ensure Preview implements io.Reader
var _ io.Reader = (*Preview)(nil)
