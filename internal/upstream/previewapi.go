package upstream

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

	"github.com/addintools/docgateway/internal/models"
)

// Preview uploads are IO-bound, not CPU-bound, so the deadline is tighter
// than conversion but still generous enough for large binaries.
const DefaultPreviewTimeout = time.Minute

// PreviewConfig holds the settings for one PreviewClient.
type PreviewConfig struct {
	Endpoint      string
	APIKey        string
	ViewerBaseURL string
	Timeout       time.Duration
}

// PreviewClient forwards a converted binary to the preview-hosting API and
// returns the opaque document identifier the viewer URL is built from.
type PreviewClient struct {
	config     PreviewConfig
	httpClient *http.Client
}

// NewPreviewClient creates a client for the preview-hosting API.
func NewPreviewClient(config PreviewConfig) *PreviewClient {
	if config.Timeout <= 0 {
		config.Timeout = DefaultPreviewTimeout
	}
	return &PreviewClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// previewUploadResult covers both identifier field names the hosting API has
// been observed to use across versions.
type previewUploadResult struct {
	DocumentID string `json:"document_id"`
	ID         string `json:"id"`
}

// Upload sends the binary as a single-file multipart upload and extracts the
// document identifier from the JSON response.
func (c *PreviewClient) Upload(ctx context.Context, filename string, data []byte) (models.PreviewHandle, error) {
	if c.config.APIKey == "" {
		return "", models.Misconfigured("preview API key not configured")
	}
	if len(data) == 0 {
		return "", models.BadRequest("no file provided")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", models.Internal("failed to assemble preview upload", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", models.Internal("failed to assemble preview upload", err)
	}
	if err := mw.Close(); err != nil {
		return "", models.Internal("failed to assemble preview upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, &buf)
	if err != nil {
		return "", models.Internal("failed to build preview request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(apiKeyHeader, c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", models.Internal("preview service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		details, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", models.UpstreamFailure(resp.StatusCode, "preview service returned an error", string(details))
	}

	var result previewUploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", models.UpstreamFailure(0, "malformed upstream response", err.Error())
	}

	// The hosting API has shipped both field names; accept either, but a
	// response with neither is a failure, never an empty handle.
	switch {
	case result.DocumentID != "":
		return models.PreviewHandle(result.DocumentID), nil
	case result.ID != "":
		return models.PreviewHandle(result.ID), nil
	default:
		return "", models.UpstreamFailure(0, "malformed upstream response", "no document identifier in response")
	}
}

// ViewURL builds the user-facing preview URL for an uploaded document.
func (c *PreviewClient) ViewURL(handle models.PreviewHandle) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.config.ViewerBaseURL, "/"), handle)
}
