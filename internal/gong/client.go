// Package gong provides a client for the Gong call platform API
package gong

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// duplicateMediaMessage is the exact phrase the API returns when the same
// media content was uploaded before. Matching it is the only way to tell a
// duplicate apart from other 4xx failures.
const duplicateMediaMessage = "A media file with the same content has been uploaded in the past"

// maxTitleLength is the API limit on call titles.
const maxTitleLength = 1024

// ErrAlreadyUploaded indicates the media content already exists on the platform
var ErrAlreadyUploaded = fmt.Errorf("media already uploaded")

// Party represents a call participant
type Party struct {
	Name   string `json:"name"`
	UserID string `json:"userId,omitempty"`
}

// CreateCallRequest represents the payload for creating a call record
type CreateCallRequest struct {
	ClientUniqueID string  `json:"clientUniqueId"`
	Title          string  `json:"title"`
	ActualStart    string  `json:"actualStart"`
	Parties        []Party `json:"parties"`
	PrimaryUser    string  `json:"primaryUser"`
	Direction      string  `json:"direction"`
}

// User represents a Gong user account
type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	EmailAddress string `json:"emailAddress"`
	Active       bool   `json:"active"`
	Settings     struct {
		TelephonyCallsImported bool `json:"telephonyCallsImported"`
	} `json:"settings"`
}

// HTTPError represents a non-success response from the Gong API
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gong API error: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client defines the interface for Gong API operations
type Client interface {
	CreateCall(ctx context.Context, req CreateCallRequest) (string, error)
	UploadMedia(ctx context.Context, callID, mediaPath string) (string, error)
	ListUsers(ctx context.Context) ([]User, error)
}

type clientImpl struct {
	baseURL      string
	accessKey    string
	accessSecret string
	client       *http.Client
}

// NewClient creates a new Gong API client using basic authentication
func NewClient(baseURL, accessKey, accessSecret string) Client {
	return &clientImpl{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		accessKey:    accessKey,
		accessSecret: accessSecret,
		client: &http.Client{
			Timeout: 15 * time.Minute, // Media uploads can be large
		},
	}
}

// TruncateTitle shortens a title to the API's limit without splitting a rune
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLength {
		return title
	}
	return string(runes[:maxTitleLength])
}

// createCallResponse represents the response from POST /v2/calls
type createCallResponse struct {
	CallID json.Number `json:"callId"`
}

// CreateCall creates a call record and returns its call ID
func (c *clientImpl) CreateCall(ctx context.Context, callReq CreateCallRequest) (string, error) {
	callReq.Title = TruncateTitle(callReq.Title)

	payload, err := json.Marshal(callReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/calls", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.accessKey, c.accessSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create call request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read create call response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var callResp createCallResponse
	if err := json.Unmarshal(body, &callResp); err != nil {
		return "", fmt.Errorf("failed to parse create call response: %w", err)
	}
	if callResp.CallID == "" {
		return "", fmt.Errorf("create call response missing callId: %s", string(body))
	}

	return callResp.CallID.String(), nil
}

// uploadMediaResponse represents the response from PUT /v2/calls/{id}/media
type uploadMediaResponse struct {
	URL string `json:"url"`
}

// UploadMedia attaches a media file to a call and returns the call URL.
// Returns ErrAlreadyUploaded when the platform rejects the file as a
// duplicate of previously uploaded content.
func (c *clientImpl) UploadMedia(ctx context.Context, callID, mediaPath string) (string, error) {
	file, err := os.Open(mediaPath)
	if err != nil {
		return "", fmt.Errorf("failed to open media file: %w", err)
	}
	defer file.Close()

	// Stream the multipart body through a pipe so the file is never
	// buffered in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("mediaFile", filepath.Base(mediaPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	endpoint := fmt.Sprintf("%s/v2/calls/%s/media", c.baseURL, callID)
	req, err := http.NewRequestWithContext(ctx, "PUT", endpoint, pr)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.SetBasicAuth(c.accessKey, c.accessSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read media upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if strings.Contains(string(body), duplicateMediaMessage) {
			return "", ErrAlreadyUploaded
		}
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var uploadResp uploadMediaResponse
	if err := json.Unmarshal(body, &uploadResp); err != nil {
		return "", fmt.Errorf("failed to parse media upload response: %w", err)
	}

	return uploadResp.URL, nil
}

// usersResponse represents a page of the users listing
type usersResponse struct {
	Users   []User `json:"users"`
	Records struct {
		Cursor string `json:"cursor"`
	} `json:"records"`
}

// ListUsers returns all users, following cursor pagination
func (c *clientImpl) ListUsers(ctx context.Context) ([]User, error) {
	var all []User
	cursor := ""

	for {
		endpoint := c.baseURL + "/v2/users"
		if cursor != "" {
			endpoint += "?cursor=" + cursor
		}

		req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.SetBasicAuth(c.accessKey, c.accessSecret)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list users request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read users response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		var page usersResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse users response: %w", err)
		}

		all = append(all, page.Users...)

		if page.Records.Cursor == "" {
			break
		}
		cursor = page.Records.Cursor
	}

	return all, nil
}
