// Package archive unpacks recording bundles into a working directory
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrBundleContents indicates the bundle does not hold exactly one video and
// one metadata file
var ErrBundleContents = fmt.Errorf("bundle must contain exactly one .mp4 and one .json file")

// Workspace holds the extracted contents of a recording bundle
type Workspace struct {
	Dir       string
	MediaPath string
	InfoPath  string
}

// Cleanup removes the extraction directory and everything in it
func (w *Workspace) Cleanup() error {
	var result *multierror.Error
	if err := os.RemoveAll(w.Dir); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to remove workspace %s: %w", w.Dir, err))
	}
	return result.ErrorOrNil()
}

// Unpack extracts a recording bundle next to the archive and removes the
// archive on success. The bundle must contain exactly one .mp4 and one .json
// entry; anything else returns ErrBundleContents.
func Unpack(zipPath string) (*Workspace, error) {
	extractDir := strings.TrimSuffix(zipPath, ".zip")
	if extractDir == zipPath {
		extractDir = zipPath + ".extracted"
	}

	// A stale directory from an interrupted run would confuse the
	// one-mp4-one-json check below.
	if err := os.RemoveAll(extractDir); err != nil {
		return nil, fmt.Errorf("failed to clear extraction directory: %w", err)
	}
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle %s: %w", zipPath, err)
	}
	defer reader.Close()

	ws := &Workspace{Dir: extractDir}
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		dest, err := safeJoin(extractDir, entry.Name)
		if err != nil {
			return nil, err
		}

		if err := extractEntry(entry, dest); err != nil {
			return nil, err
		}

		switch strings.ToLower(filepath.Ext(entry.Name)) {
		case ".mp4":
			if ws.MediaPath != "" {
				return nil, ErrBundleContents
			}
			ws.MediaPath = dest
		case ".json":
			if ws.InfoPath != "" {
				return nil, ErrBundleContents
			}
			ws.InfoPath = dest
		}
	}

	if ws.MediaPath == "" || ws.InfoPath == "" {
		return nil, ErrBundleContents
	}

	if err := os.Remove(zipPath); err != nil {
		return nil, fmt.Errorf("failed to remove bundle after extraction: %w", err)
	}

	return ws, nil
}

// safeJoin joins an archive entry name to the extraction root, rejecting
// entries that would escape it.
func safeJoin(root, name string) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(name))
	if !strings.HasPrefix(dest, filepath.Clean(root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("bundle entry %q escapes extraction directory", name)
	}
	return dest, nil
}

func extractEntry(entry *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open bundle entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}

	return out.Close()
}
