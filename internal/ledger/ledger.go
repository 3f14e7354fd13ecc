// Package ledger provides the append-only outcome ledgers that make the
// pipeline resumable across restarts.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Failure reasons recorded in the error ledger.
const (
	ReasonAlreadyUploaded = "Already uploaded"
	ReasonMaxAttempts     = "Max attempts reached"
)

// CompletedRecord is one row of the completed ledger.
type CompletedRecord struct {
	ID               string
	Title            string
	CallID           string
	URL              string
	ParticipantNames []string
}

// SkippedRecord is one row of the short-video ledger.
type SkippedRecord struct {
	ID    string
	Title string
}

// FailedRecord is one row of the error ledger.
type FailedRecord struct {
	ID     string
	Title  string
	Reason string
}

var (
	completedHeader = []string{"id", "title", "call_id", "url", "participant_names"}
	skippedHeader   = []string{"id", "title"}
	failedHeader    = []string{"id", "title", "reason"}
)

// csvLedger is the shared append-only CSV mechanism. Every write re-opens the
// file in append mode so no ledger stays exclusively locked across restarts,
// and a per-ledger mutex serializes concurrent writers.
type csvLedger struct {
	filePath string
	header   []string
	mu       sync.Mutex
}

// newCSVLedger creates the ledger file with its header when it does not yet
// exist or is empty. An existing non-empty file is left untouched.
func newCSVLedger(filePath string, header []string) (*csvLedger, error) {
	ledger := &csvLedger{
		filePath: filePath,
		header:   header,
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		dir := filepath.Dir(filePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := ledger.writeHeader(); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check ledger file: %w", err)
	}

	return ledger, nil
}

// writeHeader writes the CSV header to a fresh ledger file
func (l *csvLedger) writeHeader() error {
	file, err := os.Create(l.filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(l.header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return writer.Error()
}

// appendRecord appends a single record under the ledger's lock
func (l *csvLedger) appendRecord(record []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger for append: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return writer.Error()
}

// CompletedLedger records successfully migrated items.
type CompletedLedger struct {
	*csvLedger
}

// NewCompletedLedger opens (or creates) the completed ledger.
func NewCompletedLedger(filePath string) (*CompletedLedger, error) {
	ledger, err := newCSVLedger(filePath, completedHeader)
	if err != nil {
		return nil, err
	}
	return &CompletedLedger{ledger}, nil
}

// Append records one completed item. Participant names are pipe-joined so the
// column stays a single CSV field.
func (l *CompletedLedger) Append(rec CompletedRecord) error {
	return l.appendRecord([]string{
		rec.ID,
		rec.Title,
		rec.CallID,
		rec.URL,
		strings.Join(rec.ParticipantNames, "|"),
	})
}

// ShortLedger records items skipped for being below the minimum duration or
// having unreadable media.
type ShortLedger struct {
	*csvLedger
}

// NewShortLedger opens (or creates) the short-video ledger.
func NewShortLedger(filePath string) (*ShortLedger, error) {
	ledger, err := newCSVLedger(filePath, skippedHeader)
	if err != nil {
		return nil, err
	}
	return &ShortLedger{ledger}, nil
}

// Append records one skipped item.
func (l *ShortLedger) Append(rec SkippedRecord) error {
	return l.appendRecord([]string{rec.ID, rec.Title})
}

// ErrorLedger records terminally failed items.
type ErrorLedger struct {
	*csvLedger
}

// NewErrorLedger opens (or creates) the error ledger.
func NewErrorLedger(filePath string) (*ErrorLedger, error) {
	ledger, err := newCSVLedger(filePath, failedHeader)
	if err != nil {
		return nil, err
	}
	return &ErrorLedger{ledger}, nil
}

// Append records one failed item.
func (l *ErrorLedger) Append(rec FailedRecord) error {
	return l.appendRecord([]string{rec.ID, rec.Title, rec.Reason})
}

// LoadIDs reads a ledger file and returns the set of item IDs it contains.
// A missing file is a first run and yields an empty set; malformed content in
// an existing file is an error so a corrupted ledger never silently shrinks
// the handled set.
func LoadIDs(filePath string) (map[string]struct{}, error) {
	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err == io.EOF {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("malformed ledger %s: %w", filePath, err)
	}

	idCol := -1
	for i, col := range header {
		if col == "id" {
			idCol = i
			break
		}
	}
	if idCol == -1 {
		return nil, fmt.Errorf("malformed ledger %s: no id column in header %v", filePath, header)
	}

	ids := make(map[string]struct{})
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed ledger %s: %w", filePath, err)
		}
		ids[record[idCol]] = struct{}{}
	}

	return ids, nil
}
