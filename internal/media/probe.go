// Package media inspects recording files and meeting metadata
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrInvalidMedia indicates the file has no readable video stream
var ErrInvalidMedia = fmt.Errorf("no video stream found")

// VideoInfo holds the properties of a recording's video stream
type VideoInfo struct {
	DurationSeconds float64
	FrameRate       float64
}

// Prober defines the interface for inspecting video files
type Prober interface {
	Probe(ctx context.Context, path string) (*VideoInfo, error)
}

type ffprobeImpl struct {
	binary string
}

// NewProber creates a prober backed by the ffprobe binary
func NewProber() Prober {
	return &ffprobeImpl{binary: "ffprobe"}
}

// Probe runs ffprobe on the file and returns its video stream properties.
// Returns ErrInvalidMedia when the file has no video stream.
func (p *ffprobeImpl) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-show_streams",
		"-select_streams", "v:0",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	return parseProbeOutput(output)
}

// probeOutput represents the ffprobe JSON document
type probeOutput struct {
	Streams []struct {
		Duration  string `json:"duration"`
		FrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// parseProbeOutput extracts duration and frame rate from ffprobe JSON.
// Kept separate from Probe so the parsing is testable without the binary.
func parseProbeOutput(data []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(out.Streams) == 0 {
		return nil, ErrInvalidMedia
	}

	stream := out.Streams[0]
	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid stream duration %q: %w", stream.Duration, err)
	}

	rate, err := parseFrameRate(stream.FrameRate)
	if err != nil {
		return nil, err
	}

	return &VideoInfo{
		DurationSeconds: duration,
		FrameRate:       rate,
	}, nil
}

// parseFrameRate evaluates ffprobe's fractional rate notation, e.g. "30000/1001"
func parseFrameRate(raw string) (float64, error) {
	num, den, found := strings.Cut(raw, "/")
	if !found {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid frame rate %q: %w", raw, err)
		}
		return rate, nil
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", raw, err)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", raw, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q: zero denominator", raw)
	}

	return n / d, nil
}
