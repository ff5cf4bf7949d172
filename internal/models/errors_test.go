package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusBadRequest, BadRequest("no file provided").HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, Misconfigured("key missing").HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, Internal("boom", nil).HTTPStatus())
}

func TestHTTPStatusUpstreamPassThrough(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusServiceUnavailable, UpstreamFailure(503, "down", "").HTTPStatus())
	require.Equal(t, http.StatusUnprocessableEntity, UpstreamFailure(422, "rejected", "").HTTPStatus())
}

func TestHTTPStatusUpstreamInvalidStatusDefaultsTo500(t *testing.T) {
	t.Parallel()

	// A malformed success body carries no usable error status.
	require.Equal(t, http.StatusInternalServerError, UpstreamFailure(0, "malformed upstream response", "").HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, UpstreamFailure(302, "redirect", "").HTTPStatus())
}

func TestInternalKeepsCauseForLogsOnly(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("dial tcp: connection refused")
	err := Internal("conversion service unreachable", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "conversion service unreachable", err.Message)
}

func TestErrorsAsFindsWrappedError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("pipeline: %w", UpstreamFailure(503, "down", "busy"))

	var gerr *Error
	require.True(t, errors.As(wrapped, &gerr))
	require.Equal(t, KindUpstream, gerr.Kind)
	require.Equal(t, 503, gerr.UpstreamStatus)
}
