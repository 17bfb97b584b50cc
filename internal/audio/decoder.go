package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/austinkregel/local-media/audiod/internal/types"
)

var (
	// ErrUnsupportedFormat is returned when the bytes are not a recognized container
	ErrUnsupportedFormat = errors.New("unrecognized audio container")
	// ErrEmptyAudio is returned when a container decodes to zero frames
	ErrEmptyAudio = errors.New("audio contains no samples")
	// errWAVEncoding marks WAV files outside the integer PCM the native decoder reads
	errWAVEncoding = errors.New("unsupported wav encoding")
)

// Format identifies a container
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
)

// DetectFormat sniffs the container from the leading bytes
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return FormatMP3
	}
	return FormatUnknown
}

// DecoderConfig contains configuration for the decoder
type DecoderConfig struct {
	// FFmpegFallback decodes unrecognized containers by piping them through ffmpeg
	FFmpegFallback bool
	// SampleRate requested from ffmpeg (default: 44100)
	SampleRate int
}

// Decoder turns encoded audio bytes into per-channel sample sequences
type Decoder struct {
	ffmpeg     *FFmpegDecoder
	sampleRate int

	// Number of decode sessions currently holding resources
	open int64
}

// NewDecoder creates a decoder. When the FFmpeg fallback is requested but
// ffmpeg is not installed, the decoder still works for WAV and MP3.
func NewDecoder(cfg DecoderConfig) *Decoder {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	d := &Decoder{sampleRate: sampleRate}
	if cfg.FFmpegFallback {
		ff, err := NewFFmpegDecoder()
		if err != nil {
			log.Printf("[DECODE] FFmpeg fallback disabled: %v", err)
		} else {
			d.ffmpeg = ff
		}
	}
	return d
}

// OpenSessions returns the number of decode sessions not yet released
func (d *Decoder) OpenSessions() int64 {
	return atomic.LoadInt64(&d.open)
}

// session is the per-call decoding context. It is released exactly once.
type session struct {
	d      *Decoder
	closed bool
	cancel context.CancelFunc
}

func (d *Decoder) openSession(ctx context.Context) (*session, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	atomic.AddInt64(&d.open, 1)
	return &session{d: d, cancel: cancel}, ctx
}

func (s *session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	atomic.AddInt64(&s.d.open, -1)
}

// Decode decodes a complete encoded buffer. Mono input is duplicated so the
// result always carries at least two channels.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*types.DecodedAudio, error) {
	sess, ctx := d.openSession(ctx)
	defer sess.Close()

	var (
		decoded *types.DecodedAudio
		err     error
	)
	switch format := DetectFormat(data); {
	case format == FormatWAV:
		decoded, err = decodeWAV(data)
		if errors.Is(err, errWAVEncoding) && d.ffmpeg != nil {
			log.Printf("[DECODE] %v, retrying with ffmpeg", err)
			decoded, err = d.ffmpeg.DecodeBytes(ctx, data, d.sampleRate)
		}
	case format == FormatMP3:
		decoded, err = decodeMP3(data)
	case d.ffmpeg != nil:
		decoded, err = d.ffmpeg.DecodeBytes(ctx, data, d.sampleRate)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	if len(decoded.Channels) == 0 || decoded.Channels[0].Len() == 0 {
		return nil, ErrEmptyAudio
	}
	if len(decoded.Channels) == 1 {
		decoded.Channels = append(decoded.Channels, decoded.Channels[0])
	}
	return decoded, nil
}

func decodeWAV(data []byte) (*types.DecodedAudio, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %w", ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w %d", errWAVEncoding, dec.WavAudioFormat)
	}
	if dec.BitDepth < 8 || dec.BitDepth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", errWAVEncoding, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav pcm: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %w", ErrUnsupportedFormat)
	}

	return deinterleave(buf, int(dec.BitDepth)), nil
}

// deinterleave splits an integer PCM buffer into normalized channels
func deinterleave(buf *goaudio.IntBuffer, bitDepth int) *types.DecodedAudio {
	numCh := buf.Format.NumChannels
	rate := buf.Format.SampleRate
	frames := len(buf.Data) / numCh

	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = 128
	}

	channels := make([]types.SampleSequence, numCh)
	for c := range channels {
		samples := make([]float64, frames)
		for i := 0; i < frames; i++ {
			samples[i] = (float64(buf.Data[i*numCh+c]) - offset) / scale
		}
		channels[c] = types.SampleSequence{Samples: samples, SampleRate: rate}
	}
	return &types.DecodedAudio{Channels: channels, SampleRate: rate}
}

func decodeMP3(data []byte) (*types.DecodedAudio, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decoding mp3: %w", err)
	}

	// go-mp3 always yields signed 16-bit little-endian stereo
	return pcm16ToChannels(pcm, 2, dec.SampleRate()), nil
}

// pcm16ToChannels converts interleaved s16le PCM into normalized channels
func pcm16ToChannels(pcm []byte, numCh, rate int) *types.DecodedAudio {
	const bytesPerSample = 2
	frames := len(pcm) / (bytesPerSample * numCh)

	channels := make([]types.SampleSequence, numCh)
	for c := range channels {
		samples := make([]float64, frames)
		for i := 0; i < frames; i++ {
			off := (i*numCh + c) * bytesPerSample
			sample := int16(pcm[off]) | int16(pcm[off+1])<<8
			samples[i] = float64(sample) / 32768.0
		}
		channels[c] = types.SampleSequence{Samples: samples, SampleRate: rate}
	}
	return &types.DecodedAudio{Channels: channels, SampleRate: rate}
}

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)
