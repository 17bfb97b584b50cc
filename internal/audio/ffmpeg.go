package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"

	"github.com/austinkregel/local-media/audiod/internal/types"
)

// Upper bound on decoded PCM read back from ffmpeg: 10 minutes of stereo 16-bit @ 44100Hz
const maxFFmpegPCMBytes = 44100 * 2 * 2 * 600

// FFmpegDecoder uses FFmpeg for containers the native decoders do not handle
type FFmpegDecoder struct {
	ffmpegPath string
}

// NewFFmpegDecoder creates a new FFmpeg-based decoder
func NewFFmpegDecoder() (*FFmpegDecoder, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}, nil
}

// DecodeBytes pipes an encoded buffer through ffmpeg and returns stereo channels
// at sampleRate
func (d *FFmpegDecoder) DecodeBytes(ctx context.Context, data []byte, sampleRate int) (*types.DecodedAudio, error) {
	// Output format: signed 16-bit little-endian, stereo
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "2",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// Ensure process is killed and reaped on any exit path
	waited := false
	defer func() {
		if !waited && cmd.Process != nil {
			cmd.Process.Kill()
			cmd.Wait()
		}
	}()

	var pcm bytes.Buffer
	if _, err := io.Copy(&pcm, io.LimitReader(stdout, maxFFmpegPCMBytes)); err != nil {
		return nil, fmt.Errorf("read ffmpeg output: %w", err)
	}

	if pcm.Len() >= maxFFmpegPCMBytes {
		// Stop ffmpeg before waiting, it may still be blocked on a full pipe
		log.Printf("[DECODE] FFmpeg output truncated at %d bytes", pcm.Len())
		cmd.Process.Kill()
		cmd.Wait()
		waited = true
		return pcm16ToChannels(pcm.Bytes(), 2, sampleRate), nil
	}

	waited = true
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %s", msg)
	}

	return pcm16ToChannels(pcm.Bytes(), 2, sampleRate), nil
}
