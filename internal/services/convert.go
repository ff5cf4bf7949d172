package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/addintools/docgateway/internal/gcp"
	"github.com/addintools/docgateway/internal/models"
	"github.com/addintools/docgateway/internal/upstream"
)

// maxUploadBytes caps the inbound document. Documents are held fully in
// memory for the duration of a request, so this also bounds memory per call.
const maxUploadBytes = 100 << 20

// ConvertConfig holds all configuration for the conversion proxy.
type ConvertConfig struct {
	ConvertEndpoint string
	ConvertAPIKey   string
	ConvertTimeout  time.Duration
}

// ConvertFunction holds the dependencies for the conversion proxy logic.
type ConvertFunction struct {
	converter *upstream.ConversionClient
	config    ConvertConfig
}

// loadConvertConfig loads and validates the environment for this service.
func loadConvertConfig() (*ConvertConfig, error) {
	endpoint := gcp.GetEnv("CONVERT_API_URL", "")
	if endpoint == "" {
		return nil, fmt.Errorf("CONVERT_API_URL environment variable must be set")
	}

	timeout, err := time.ParseDuration(gcp.GetEnv("CONVERT_TIMEOUT", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONVERT_TIMEOUT: %w", err)
	}

	return &ConvertConfig{
		ConvertEndpoint: endpoint,
		ConvertAPIKey:   gcp.GetEnv("CONVERT_API_KEY", ""),
		ConvertTimeout:  timeout,
	}, nil
}

// NewConvert creates a new ConvertFunction instance. A missing API key is
// logged here once but only fails at request time, so the operator gets a
// "not configured" message instead of a dead function.
func NewConvert(ctx context.Context) (*ConvertFunction, error) {
	config, err := loadConvertConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if config.ConvertAPIKey == "" {
		slog.Warn("CONVERT_API_KEY is not set; conversion requests will be rejected.")
	}

	converter := upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: config.ConvertEndpoint,
		APIKey:   config.ConvertAPIKey,
		Timeout:  config.ConvertTimeout,
	})

	slog.Info("Conversion proxy initialized.", "endpoint", config.ConvertEndpoint, "timeout", config.ConvertTimeout.String())
	return &ConvertFunction{converter: converter, config: *config}, nil
}

// NewConvertWithClient wires an explicit client; used by tests.
func NewConvertWithClient(converter *upstream.ConversionClient) *ConvertFunction {
	return &ConvertFunction{converter: converter}
}

// Handle implements POST /convert: validate the multipart request, forward
// document and instructions upstream, and relay the converted binary back
// with download headers.
func (f *ConvertFunction) Handle(w http.ResponseWriter, r *http.Request) {
	logCtx := slog.With("handler", "convert")

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

	rawInstr := r.FormValue("instructions")
	if rawInstr == "" {
		writeError(w, logCtx, models.BadRequest("no instructions provided"))
		return
	}
	instr, err := models.ParseInstructions([]byte(rawInstr))
	if err != nil {
		writeError(w, logCtx, models.BadRequest(fmt.Sprintf("malformed instructions: %v", err)))
		return
	}

	logCtx.Info("Forwarding document for conversion.", "ocr", instr.OCR, "redact", instr.Redact)
	result, err := f.converter.Convert(r.Context(), doc, instr)
	if err != nil {
		writeError(w, logCtx, err)
		return
	}

	w.Header().Set("Content-Type", result.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	if _, err := w.Write(result.Data); err != nil {
		logCtx.Error("Failed to write converted document", "error", err)
		return
	}
	logCtx.Info("Conversion complete.", "outputFilename", result.Filename, "outputBytes", len(result.Data))
}

// readSourceDocument extracts the uploaded file part from a multipart
// request. Absence or emptiness of the file is the caller's fault.
func readSourceDocument(w http.ResponseWriter, r *http.Request) (*models.SourceDocument, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, models.BadRequest("no file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, models.Internal("failed to read uploaded file", err)
	}
	if len(data) == 0 {
		return nil, models.BadRequest("no file provided")
	}

	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	return &models.SourceDocument{
		Filename:  header.Filename,
		MediaType: mediaType,
		Data:      data,
	}, nil
}
