package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/addintools/docgateway/internal/models"
	"github.com/addintools/docgateway/internal/upstream"
)

// Gateway clients implement the pipeline stages over the deployed gateway
// functions. This is the add-in side of the system: it talks to /convert and
// /preview-upload, never to the remote vendor APIs directly.

const gatewayErrorBodyLimit = 64 << 10

// GatewayConverter calls a deployed conversion-proxy function.
type GatewayConverter struct {
	Endpoint   string
	HTTPClient *http.Client
}

// Convert posts the document and instructions to the /convert function and
// returns the converted bytes it relays back.
func (g *GatewayConverter) Convert(ctx context.Context, doc *models.SourceDocument, instr *models.ProcessingInstructions) (*models.ConversionResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Filename))
	if doc.MediaType != "" {
		header.Set("Content-Type", doc.MediaType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, models.Internal("failed to assemble conversion request", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, models.Internal("failed to assemble conversion request", err)
	}

	instrJSON, err := json.Marshal(instr)
	if err != nil {
		return nil, models.Internal("failed to encode instructions", err)
	}
	if err := mw.WriteField("instructions", string(instrJSON)); err != nil {
		return nil, models.Internal("failed to assemble conversion request", err)
	}
	if err := mw.Close(); err != nil {
		return nil, models.Internal("failed to assemble conversion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, &buf)
	if err != nil {
		return nil, models.Internal("failed to build conversion request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.client().Do(req)
	if err != nil {
		return nil, models.Internal("conversion gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, gatewayError(resp, "conversion failed")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.Internal("failed to read converted document", err)
	}

	return &models.ConversionResult{
		Data:      data,
		MediaType: contentTypeOrPDF(resp),
		Filename:  dispositionFilename(resp, doc.Filename),
	}, nil
}

func (g *GatewayConverter) client() *http.Client {
	if g.HTTPClient != nil {
		return g.HTTPClient
	}
	return http.DefaultClient
}

// GatewayPreviewer calls a deployed preview-relay function.
type GatewayPreviewer struct {
	Endpoint      string
	ViewerBaseURL string
	HTTPClient    *http.Client
}

// Upload posts the binary to the /preview-upload function and returns the
// document identifier from its JSON response.
func (g *GatewayPreviewer) Upload(ctx context.Context, filename string, data []byte) (models.PreviewHandle, error) {
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, &buf)
	if err != nil {
		return "", models.Internal("failed to build preview request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.client().Do(req)
	if err != nil {
		return "", models.Internal("preview gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", gatewayError(resp, "preview upload failed")
	}

	var payload models.PreviewUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", models.UpstreamFailure(0, "malformed gateway response", err.Error())
	}
	if payload.DocumentID == "" {
		return "", models.UpstreamFailure(0, "malformed gateway response", "no document identifier in response")
	}
	return models.PreviewHandle(payload.DocumentID), nil
}

// ViewURL builds the user-facing preview URL for an uploaded document.
func (g *GatewayPreviewer) ViewURL(handle models.PreviewHandle) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(g.ViewerBaseURL, "/"), handle)
}

func (g *GatewayPreviewer) client() *http.Client {
	if g.HTTPClient != nil {
		return g.HTTPClient
	}
	return http.DefaultClient
}

// gatewayError turns a non-200 gateway response into a taxonomy error,
// preserving the status for pass-through and the JSON error body as details.
func gatewayError(resp *http.Response, message string) *models.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, gatewayErrorBodyLimit))

	var errBody models.ErrorResponse
	details := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error != "" {
		message = errBody.Error
		details = errBody.Details
	}
	return models.UpstreamFailure(resp.StatusCode, message, details)
}

func contentTypeOrPDF(resp *http.Response) string {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/pdf"
}

// dispositionFilename extracts the suggested name from Content-Disposition,
// falling back to deriving one from the source filename.
func dispositionFilename(resp *http.Response, source string) string {
	disposition := resp.Header.Get("Content-Disposition")
	if idx := strings.Index(disposition, `filename="`); idx >= 0 {
		rest := disposition[idx+len(`filename="`):]
		if end := strings.Index(rest, `"`); end > 0 {
			return rest[:end]
		}
	}
	return upstream.DerivePDFName(source)
}

// DefaultHTTPClient is a convenience client for CLI callers; conversion can
// legitimately take minutes, so the timeout is generous.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 6 * time.Minute}
}
