package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Toolkit joins encoded audio files and measures their duration.
type Toolkit interface {
	Concat(ctx context.Context, inputs []string, output string) error
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// FFmpeg implements Toolkit with the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpeg returns a toolkit that finds both binaries on PATH.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
}

// Check verifies both binaries can be found.
func (f *FFmpeg) Check() error {
	if _, err := exec.LookPath(f.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(f.FFprobePath); err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	return nil
}

// Concat joins inputs into output with the concat demuxer, copying streams
// without re-encoding. A single input is copied as-is.
func (f *FFmpeg) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat: no input files")
	}
	if len(inputs) == 1 {
		data, err := os.ReadFile(inputs[0])
		if err != nil {
			return fmt.Errorf("concat: read input: %w", err)
		}
		return os.WriteFile(output, data, 0o644)
	}

	listPath := output + ".txt"
	lines := make([]string, len(inputs))
	for i, in := range inputs {
		lines[i] = "file '" + strings.ReplaceAll(in, "'", `'\''`) + "'"
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("concat: write list: %w", err)
	}
	defer os.Remove(listPath)

	cmd := exec.CommandContext(ctx, f.FFmpegPath,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		output,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, out)
	}
	return nil
}

// Duration probes the container duration of an audio file.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return ParseSeconds(string(out))
}

// ParseSeconds converts ffprobe's decimal seconds output to a duration.
func ParseSeconds(s string) (time.Duration, error) {
	sec, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(s), err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

var _ Toolkit = (*FFmpeg)(nil)
