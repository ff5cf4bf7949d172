package services

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/addintools/docgateway/internal/models"
	"github.com/addintools/docgateway/internal/upstream"
)

// multipartRequest builds a /convert-style request. Empty filename omits the
// file part entirely; empty instructions omits that field.
func multipartRequest(t *testing.T, target, filename string, fileData []byte, instructions string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}
	if instructions != "" {
		require.NoError(t, mw.WriteField("instructions", instructions))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func echoConvertServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		require.NoError(t, r.ParseMultipartForm(32<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(data)
	}))
}

func TestConvertHandlerSuccess(t *testing.T) {
	t.Parallel()

	var calls int32
	server := echoConvertServer(t, &calls)
	defer server.Close()

	f := NewConvertWithClient(upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: server.URL,
		APIKey:   "secret-key",
	}))

	payload := []byte("source document bytes")
	rec := httptest.NewRecorder()
	f.Handle(rec, multipartRequest(t, "/convert", "report.docx", payload, `{"ocr":true}`))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="report.pdf"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, payload, rec.Body.Bytes())
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestConvertHandlerDerivesPDFNameWithoutExtension(t *testing.T) {
	t.Parallel()

	var calls int32
	server := echoConvertServer(t, &calls)
	defer server.Close()

	f := NewConvertWithClient(upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: server.URL,
		APIKey:   "secret-key",
	}))

	rec := httptest.NewRecorder()
	f.Handle(rec, multipartRequest(t, "/convert", "scan", []byte("bytes"), `{}`))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `attachment; filename="scan.pdf"`, rec.Header().Get("Content-Disposition"))
}

func TestConvertHandlerMissingFile(t *testing.T) {
	t.Parallel()

	f := NewConvertWithClient(upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: "http://unused.invalid",
		APIKey:   "secret-key",
	}))

	rec := httptest.NewRecorder()
	f.Handle(rec, multipartRequest(t, "/convert", "", nil, `{}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec).Error, "file")
}

func TestConvertHandlerMissingInstructions(t *testing.T) {
	t.Parallel()

	f := NewConvertWithClient(upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: "http://unused.invalid",
		APIKey:   "secret-key",
	}))

	rec := httptest.NewRecorder()
	f.Handle(rec, multipartRequest(t, "/convert", "report.docx", []byte("bytes"), ""))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec).Error, "instructions")
}

func TestConvertHandlerMalformedInstructions(t *testing.T) {
	t.Parallel()

	f := NewConvertWithClient(upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: "http://unused.invalid",
		APIKey:   "secret-key",
	}))

	rec := httptest.NewRecorder()
	f.Handle(rec, multipartRequest(t, "/convert", "report.docx", []byte("bytes"), `{"format":`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec).Error, "malformed instructions")
}

func TestConvertHandlerMissingCredential(t *testing.T) {
	t.Parallel()

	var calls int32
	server := echoConvertServer(t, &calls)
	defer server.Close()

	f := NewConvertWithClient(upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: server.URL, // key deliberately absent
	}))

	rec := httptest.NewRecorder()
	f.Handle(rec, multipartRequest(t, "/convert", "report.docx", []byte("bytes"), `{}`))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, decodeError(t, rec).Error, "not configured")
	require.Zero(t, atomic.LoadInt32(&calls), "credential precheck must come before the upstream call")
}

func TestConvertHandlerUpstreamStatusPassThrough(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "converter overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewConvertWithClient(upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: server.URL,
		APIKey:   "secret-key",
	}))

	rec := httptest.NewRecorder()
	f.Handle(rec, multipartRequest(t, "/convert", "report.docx", []byte("bytes"), `{}`))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeError(t, rec)
	require.NotEmpty(t, body.Error)
	require.Contains(t, body.Details, "converter overloaded")
}

func TestConvertHandlerRejectsGET(t *testing.T) {
	t.Parallel()

	f := NewConvertWithClient(upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: "http://unused.invalid",
		APIKey:   "secret-key",
	}))

	rec := httptest.NewRecorder()
	f.Handle(rec, httptest.NewRequest(http.MethodGet, "/convert", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
