package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/addintools/docgateway/internal/gcp"
	"github.com/addintools/docgateway/internal/models"
	"github.com/addintools/docgateway/internal/upstream"
)

// PreviewConfig holds all configuration for the preview relay.
type PreviewConfig struct {
	PreviewEndpoint string
	PreviewAPIKey   string
	ViewerBaseURL   string
	PreviewTimeout  time.Duration
}

// PreviewFunction holds the dependencies for the preview relay logic.
type PreviewFunction struct {
	previewer *upstream.PreviewClient
	config    PreviewConfig
}

func loadPreviewConfig() (*PreviewConfig, error) {
	endpoint := gcp.GetEnv("PREVIEW_API_URL", "")
	if endpoint == "" {
		return nil, fmt.Errorf("PREVIEW_API_URL environment variable must be set")
	}

	timeout, err := time.ParseDuration(gcp.GetEnv("PREVIEW_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PREVIEW_TIMEOUT: %w", err)
	}

	return &PreviewConfig{
		PreviewEndpoint: endpoint,
		PreviewAPIKey:   gcp.GetEnv("PREVIEW_API_KEY", ""),
		ViewerBaseURL:   gcp.GetEnv("PREVIEW_VIEWER_BASE_URL", ""),
		PreviewTimeout:  timeout,
	}, nil
}

// NewPreview creates a new PreviewFunction instance. Same credential policy
// as NewConvert: warn at startup, reject per request.
func NewPreview(ctx context.Context) (*PreviewFunction, error) {
	config, err := loadPreviewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if config.PreviewAPIKey == "" {
		slog.Warn("PREVIEW_API_KEY is not set; preview uploads will be rejected.")
	}

	previewer := upstream.NewPreviewClient(upstream.PreviewConfig{
		Endpoint:      config.PreviewEndpoint,
		APIKey:        config.PreviewAPIKey,
		ViewerBaseURL: config.ViewerBaseURL,
		Timeout:       config.PreviewTimeout,
	})

	slog.Info("Preview relay initialized.", "endpoint", config.PreviewEndpoint, "timeout", config.PreviewTimeout.String())
	return &PreviewFunction{previewer: previewer, config: *config}, nil
}

// NewPreviewWithClient wires an explicit client; used by tests.
func NewPreviewWithClient(previewer *upstream.PreviewClient) *PreviewFunction {
	return &PreviewFunction{previewer: previewer}
}

// Handle implements POST /preview-upload: forward the binary to the
// preview-hosting service and return the opaque document identifier.
func (f *PreviewFunction) Handle(w http.ResponseWriter, r *http.Request) {
	logCtx := slog.With("handler", "preview-upload")

	if r.Method != http.MethodPost {
		writeError(w, logCtx, models.BadRequest("method not allowed, use POST"))
		return
	}

	doc, err := readSourceDocument(w, r)
	if err != nil {
		writeError(w, logCtx, err)
		return
	}
	logCtx = logCtx.With("filename", doc.Filename, "sizeBytes", len(doc.Data))

	handle, err := f.previewer.Upload(r.Context(), doc.Filename, doc.Data)
	if err != nil {
		writeError(w, logCtx, err)
		return
	}

	logCtx.Info("Preview upload complete.", "documentId", string(handle))
	writeJSON(w, logCtx, models.PreviewUploadResponse{Success: true, DocumentID: string(handle)})
}
