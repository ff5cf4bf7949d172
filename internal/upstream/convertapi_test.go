package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/addintools/docgateway/internal/models"
)

func testDocument() *models.SourceDocument {
	return &models.SourceDocument{
		Filename:  "report.docx",
		MediaType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Data:      []byte("fake docx bytes"),
	}
}

func TestConvertRoundTrip(t *testing.T) {
	t.Parallel()

	// The upstream echoes the file bytes back; the client must relay them
	// verbatim and derive a .pdf download name.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, r.ParseMultipartForm(32<<20))

		var instr models.ProcessingInstructions
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("instructions")), &instr))
		require.True(t, instr.OCR)
		require.Equal(t, "report.docx", r.FormValue("filename"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "report.docx", header.Filename)

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	client := NewConversionClient(ConversionConfig{Endpoint: server.URL, APIKey: "secret-key"})
	result, err := client.Convert(context.Background(), testDocument(), &models.ProcessingInstructions{OCR: true})
	require.NoError(t, err)
	require.Equal(t, []byte("fake docx bytes"), result.Data)
	require.Equal(t, "application/pdf", result.MediaType)
	require.Equal(t, "report.pdf", result.Filename)
}

func TestConvertMissingKeySkipsNetwork(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewConversionClient(ConversionConfig{Endpoint: server.URL})
	_, err := client.Convert(context.Background(), testDocument(), &models.ProcessingInstructions{})

	var gerr *models.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, models.KindMisconfigured, gerr.Kind)
	require.Contains(t, gerr.Message, "not configured")
	require.Zero(t, atomic.LoadInt32(&calls), "misconfigured client must not touch the network")
}

func TestConvertUpstreamStatusPassThrough(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "converter overloaded")
	}))
	defer server.Close()

	client := NewConversionClient(ConversionConfig{Endpoint: server.URL, APIKey: "secret-key"})
	_, err := client.Convert(context.Background(), testDocument(), &models.ProcessingInstructions{})

	var gerr *models.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, models.KindUpstream, gerr.Kind)
	require.Equal(t, http.StatusServiceUnavailable, gerr.UpstreamStatus)
	require.Contains(t, gerr.Details, "converter overloaded")
}

func TestConvertEmptyDocumentRejected(t *testing.T) {
	t.Parallel()

	client := NewConversionClient(ConversionConfig{Endpoint: "http://unused.invalid", APIKey: "secret-key"})
	_, err := client.Convert(context.Background(), &models.SourceDocument{Filename: "empty.docx"}, &models.ProcessingInstructions{})

	var gerr *models.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, models.KindBadRequest, gerr.Kind)
}

func TestDerivePDFName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		source string
		want   string
	}{
		{"report.docx", "report.pdf"},
		{"scan", "scan.pdf"},
		{"archive.backup.docx", "archive.backup.pdf"},
		{"notes.PDF", "notes.pdf"},
		{"", "document.pdf"},
		{".docx", "document.pdf"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DerivePDFName(tc.source), "source=%q", tc.source)
	}
}
