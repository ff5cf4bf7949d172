// Package upstream holds the HTTP clients for the two remote collaborators:
// the document conversion API and the preview-hosting API. Both services are
// opaque; the clients only assemble multipart requests, enforce per-call
// deadlines and translate failures into the gateway error taxonomy.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/addintools/docgateway/internal/models"
)

const (
	apiKeyHeader = "X-Api-Key"

	// Error bodies from the remote services are relayed as details; cap
	// them so a misbehaving upstream cannot balloon our responses.
	maxErrorBodyBytes = 64 << 10

	// Conversion is CPU-heavy upstream (OCR especially); a short timeout
	// here is a correctness bug, not a tuning knob.
	DefaultConvertTimeout = 5 * time.Minute
)

// ConversionConfig holds the settings for one ConversionClient.
type ConversionConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// ConversionClient forwards a document plus instructions to the remote
// conversion API and returns the converted binary verbatim.
type ConversionClient struct {
	config     ConversionConfig
	httpClient *http.Client
}

// NewConversionClient creates a client for the remote conversion API. A
// missing API key is deliberately not an error here: it is reported
// per-request as a Misconfigured failure so the function stays up and the
// operator sees an actionable message.
func NewConversionClient(config ConversionConfig) *ConversionClient {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConvertTimeout
	}
	return &ConversionClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Convert sends the document and instructions upstream and returns the
// converted bytes. The credential check happens before anything touches the
// network so a misconfigured deployment never leaks the filename upstream.
func (c *ConversionClient) Convert(ctx context.Context, doc *models.SourceDocument, instr *models.ProcessingInstructions) (*models.ConversionResult, error) {
	if c.config.APIKey == "" {
		return nil, models.Misconfigured("conversion API key not configured")
	}
	if len(doc.Data) == 0 {
		return nil, models.BadRequest("no file provided")
	}
	if instr == nil {
		return nil, models.BadRequest("no instructions provided")
	}

	body, contentType, err := buildConvertBody(doc, instr)
	if err != nil {
		return nil, models.Internal("failed to assemble conversion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, models.Internal("failed to build conversion request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(apiKeyHeader, c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.Internal("conversion service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		details, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, models.UpstreamFailure(resp.StatusCode, "conversion service returned an error", string(details))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.Internal("failed to read conversion response", err)
	}

	return &models.ConversionResult{
		Data:      data,
		MediaType: "application/pdf",
		Filename:  DerivePDFName(doc.Filename),
	}, nil
}

// buildConvertBody assembles the multipart payload: the file part with its
// original filename and media type, the instructions as a JSON form field,
// and the filename echoed separately for upstream telemetry.
func buildConvertBody(doc *models.SourceDocument, instr *models.ProcessingInstructions) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Filename))
	mediaType := doc.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	header.Set("Content-Type", mediaType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	instrJSON, err := json.Marshal(instr)
	if err != nil {
		return nil, "", fmt.Errorf("marshal instructions: %w", err)
	}
	if err := mw.WriteField("instructions", string(instrJSON)); err != nil {
		return nil, "", fmt.Errorf("write instructions field: %w", err)
	}
	if err := mw.WriteField("filename", doc.Filename); err != nil {
		return nil, "", fmt.Errorf("write filename field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// DerivePDFName replaces the source filename's extension with .pdf.
// Extensionless names get .pdf appended; an empty name falls back to
// "document.pdf".
func DerivePDFName(source string) string {
	if source == "" {
		return "document.pdf"
	}
	stem := strings.TrimSuffix(source, filepath.Ext(source))
	if stem == "" {
		stem = "document"
	}
	return stem + ".pdf"
}
