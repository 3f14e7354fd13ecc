package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{"streams":[{"duration":"125.500000","r_frame_rate":"30000/1001"}]}`)
	info, err := parseProbeOutput(data)
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}

	if info.DurationSeconds != 125.5 {
		t.Errorf("duration = %f, want 125.5", info.DurationSeconds)
	}
	want := 30000.0 / 1001.0
	if info.FrameRate != want {
		t.Errorf("frame rate = %f, want %f", info.FrameRate, want)
	}
}

func TestParseProbeOutputNoStreams(t *testing.T) {
	// ffprobe on an audio-only or corrupted file yields an empty streams list
	info, err := parseProbeOutput([]byte(`{"streams":[]}`))
	if !errors.Is(err, ErrInvalidMedia) {
		t.Fatalf("expected ErrInvalidMedia, got %v (info=%+v)", err, info)
	}

	_, err = parseProbeOutput([]byte(`{}`))
	if !errors.Is(err, ErrInvalidMedia) {
		t.Fatalf("expected ErrInvalidMedia for missing streams key, got %v", err)
	}
}

func TestParseProbeOutputMalformed(t *testing.T) {
	if _, err := parseProbeOutput([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := parseProbeOutput([]byte(`{"streams":[{"duration":"abc","r_frame_rate":"30/1"}]}`)); err == nil {
		t.Error("expected error for non-numeric duration")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"30/1", 30, false},
		{"25", 25, false},
		{"30000/1001", 30000.0 / 1001.0, false},
		{"30/0", 0, true},
		{"x/y", 0, true},
	}

	for _, tt := range tests {
		got, err := parseFrameRate(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseFrameRate(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFrameRate(%q) failed: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFrameRate(%q) = %f, want %f", tt.raw, got, tt.want)
		}
	}
}

func TestLoadMeetingInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meeting.json")
	data := `{"MeetingTitle":"Quarterly Review","ParticpantNames":["Ada Lovelace","Grace Hopper"],"StartTime":"2026-03-01 10:30:00"}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}

	info, err := LoadMeetingInfo(path)
	if err != nil {
		t.Fatalf("LoadMeetingInfo failed: %v", err)
	}
	if info.MeetingTitle != "Quarterly Review" {
		t.Errorf("title = %q", info.MeetingTitle)
	}
	if len(info.ParticipantNames) != 2 || info.ParticipantNames[0] != "Ada Lovelace" {
		t.Errorf("participants = %v", info.ParticipantNames)
	}
	if info.StartTime != "2026-03-01 10:30:00" {
		t.Errorf("start time = %q", info.StartTime)
	}
}

func TestLoadMeetingInfoErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadMeetingInfo(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := LoadMeetingInfo(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestGongStartTime(t *testing.T) {
	got, err := GongStartTime("2026-03-01 10:30:00")
	if err != nil {
		t.Fatalf("GongStartTime failed: %v", err)
	}
	if got != "2026-03-01T10:30:00Z" {
		t.Errorf("GongStartTime = %q, want 2026-03-01T10:30:00Z", got)
	}

	if _, err := GongStartTime("March 1st"); err == nil {
		t.Error("expected error for unparseable start time")
	}
}
