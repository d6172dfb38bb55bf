// Package hosting uploads images to a temporary file host so that
// URL-only consumers (the reverse image search) can reach them.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://tmpfiles.org"
	uploadTimeout  = 30 * time.Second
)

// UploadError reports a non-success response from the file host.
// Upload failures are fatal to the image being analyzed, so callers can
// inspect the status for diagnostics.
type UploadError struct {
	Status int
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("temporary upload failed with status %d", e.Status)
}

// Client uploads files to tmpfiles.org.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a tmpfiles.org client. An empty baseURL selects the
// public service.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: uploadTimeout},
	}
}

// uploadResponse is the relevant part of the tmpfiles.org response.
type uploadResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload posts the image and returns a publicly fetchable URL.
// tmpfiles.org answers with a landing-page URL of the form
// https://tmpfiles.org/12345/image.png; the direct download link needs
// the /dl/ prefix, so the returned URL is rewritten accordingly.
func (c *Client) Upload(ctx context.Context, imageData []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return "", fmt.Errorf("could not create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return "", fmt.Errorf("could not write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("could not close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/upload", &body)
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not send upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UploadError{Status: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read upload response: %w", err)
	}

	var result uploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("could not unmarshal upload response: %w", err)
	}
	if result.Data.URL == "" {
		return "", fmt.Errorf("upload response carried no URL: %s", respBody)
	}

	return strings.Replace(result.Data.URL, "tmpfiles.org/", "tmpfiles.org/dl/", 1), nil
}
