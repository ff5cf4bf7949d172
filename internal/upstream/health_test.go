package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefreshReportsBothUpstreamsReady(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Even an auth rejection proves the endpoint is reachable.
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	checker := NewHealthChecker(
		NewConversionClient(ConversionConfig{Endpoint: server.URL, APIKey: "a"}),
		NewPreviewClient(PreviewConfig{Endpoint: server.URL, APIKey: "b"}),
	)

	status := checker.Refresh(context.Background())
	require.True(t, status.OK())
	require.True(t, status.ConversionReady)
	require.True(t, status.PreviewReady)
	require.False(t, status.CheckedAt.IsZero())
}

func TestRefreshFlagsMissingCredential(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	checker := NewHealthChecker(
		NewConversionClient(ConversionConfig{Endpoint: server.URL}),
		NewPreviewClient(PreviewConfig{Endpoint: server.URL, APIKey: "b"}),
	)

	status := checker.Refresh(context.Background())
	require.False(t, status.OK())
	require.False(t, status.ConversionReady)
	require.Contains(t, status.ConversionError, "not configured")
	require.True(t, status.PreviewReady)
}

func TestRefreshFlagsUnreachableEndpoint(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // probe must fail to connect

	checker := NewHealthChecker(
		NewConversionClient(ConversionConfig{Endpoint: server.URL, APIKey: "a"}),
		NewPreviewClient(PreviewConfig{Endpoint: server.URL, APIKey: "b"}),
	)

	status := checker.Refresh(context.Background())
	require.False(t, status.OK())
	require.Contains(t, status.ConversionError, "unreachable")
	require.Contains(t, status.PreviewError, "unreachable")
}
