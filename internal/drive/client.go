package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// File represents a file entry in a Drive folder listing
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// APIError represents an error response from the Drive API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drive API error: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client defines the interface for Drive API operations
type Client interface {
	ListFolder(ctx context.Context, folderID string) ([]File, error)
	Download(ctx context.Context, fileID, destPath string) error
}

type clientImpl struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

// NewClient creates a new Drive API client
func NewClient(baseURL string, tokens TokenSource) Client {
	return &clientImpl{
		baseURL: baseURL,
		tokens:  tokens,
		client: &http.Client{
			Timeout: 10 * time.Minute, // Downloads can be large
		},
	}
}

// listResponse represents a page of a folder listing
type listResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []File `json:"files"`
}

// ListFolder returns all non-trashed files directly inside the given folder,
// following pagination until the listing is exhausted.
func (c *clientImpl) ListFolder(ctx context.Context, folderID string) ([]File, error) {
	var all []File
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("q", fmt.Sprintf("'%s' in parents and trashed=false", folderID))
		params.Set("fields", "nextPageToken,files(id,name,mimeType)")
		params.Set("pageSize", "100")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		endpoint := fmt.Sprintf("%s/files?%s", c.baseURL, params.Encode())
		resp, err := c.doRequest(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		var page listResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse folder listing: %w", err)
		}

		all = append(all, page.Files...)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return all, nil
}

// Download streams file content to destPath. A partially written file is
// removed when the download fails.
func (c *clientImpl) Download(ctx context.Context, fileID, destPath string) error {
	endpoint := fmt.Sprintf("%s/files/%s?alt=media", c.baseURL, url.PathEscape(fileID))
	resp, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to download file %s: %w", fileID, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to finalize download of %s: %w", fileID, err)
	}

	return nil
}

// doRequest performs an authenticated GET and returns the response when the
// status is 200. Non-200 responses become an *APIError.
func (c *clientImpl) doRequest(ctx context.Context, endpoint string) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return resp, nil
}
