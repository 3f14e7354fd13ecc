package media

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// MeetingInfo represents the metadata JSON bundled with each recording.
// The ParticpantNames key is misspelled in the source system; the tag must
// match it exactly.
type MeetingInfo struct {
	MeetingTitle     string   `json:"MeetingTitle"`
	ParticipantNames []string `json:"ParticpantNames"`
	StartTime        string   `json:"StartTime"`
}

// LoadMeetingInfo reads and parses a meeting metadata file
func LoadMeetingInfo(path string) (*MeetingInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read meeting metadata %s: %w", path, err)
	}

	var info MeetingInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse meeting metadata %s: %w", path, err)
	}

	return &info, nil
}

// GongStartTime converts the metadata's "2006-01-02 15:04:05" start time to
// the RFC 3339 UTC form the call platform expects.
func GongStartTime(raw string) (string, error) {
	t, err := time.Parse("2006-01-02 15:04:05", raw)
	if err != nil {
		return "", fmt.Errorf("invalid meeting start time %q: %w", raw, err)
	}
	return t.Format("2006-01-02T15:04:05Z"), nil
}
