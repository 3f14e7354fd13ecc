// Package manifest loads the universe of candidate work items and computes
// the pending set for a run.
package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Item is a single recorded-meeting bundle to migrate. Identity is the
// source store file ID; Attempt is incremented by the caller on requeue.
type Item struct {
	ID          string // stable file ID in the source store
	Title       string // display title, also the bundle file name
	MimeType    string
	Destination string // local path the bundle is fetched to
	Attempt     int
}

// universeHeader is the column set written by the list-files command.
var universeHeader = []string{"title", "mimeType", "id"}

// LoadUniverse reads the full candidate set from the universe CSV.
// Destination is left empty; the caller assigns it when seeding the queue.
func LoadUniverse(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open universe file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("universe file %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read universe header: %w", err)
	}
	if len(header) != len(universeHeader) {
		return nil, fmt.Errorf("unexpected universe header in %s: %v", path, header)
	}
	for i, col := range universeHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected universe header in %s: %v", path, header)
		}
	}

	var items []Item
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed universe file %s: %w", path, err)
		}
		items = append(items, Item{
			ID:       record[2],
			Title:    record[0],
			MimeType: record[1],
		})
	}

	return items, nil
}

// WriteUniverse replaces the universe CSV with the given items
func WriteUniverse(path string, items []Item) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create universe file %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(universeHeader); err != nil {
		return fmt.Errorf("failed to write universe header: %w", err)
	}
	for _, item := range items {
		if err := writer.Write([]string{item.Title, item.MimeType, item.ID}); err != nil {
			return fmt.Errorf("failed to write universe row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush universe file: %w", err)
	}

	return nil
}

// ComputePending returns the items whose ID appears in none of the supplied
// handled sets, preserving universe order.
func ComputePending(universe []Item, handled ...map[string]struct{}) []Item {
	pending := make([]Item, 0, len(universe))
	for _, item := range universe {
		seen := false
		for _, set := range handled {
			if _, ok := set[item.ID]; ok {
				seen = true
				break
			}
		}
		if !seen {
			pending = append(pending, item)
		}
	}
	return pending
}
