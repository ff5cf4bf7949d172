package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/addintools/docgateway/internal/models"
)

// writeJSON encodes a success payload.
func writeJSON(w http.ResponseWriter, logCtx *slog.Logger, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logCtx.Error("Failed to write response", "error", err)
	}
}

// writeError maps any failure onto the shared error taxonomy and writes the
// JSON error body. Unexpected errors collapse to a redacted internal error;
// the original goes to the log only.
func writeError(w http.ResponseWriter, logCtx *slog.Logger, err error) {
	var gerr *models.Error
	if !errors.As(err, &gerr) {
		gerr = models.Internal("document processing failed", err)
	}

	switch gerr.Kind {
	case models.KindBadRequest:
		logCtx.Warn("Rejecting invalid request", "error", err)
	default:
		logCtx.Error("Request failed", "kind", gerr.Kind.String(), "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(gerr.HTTPStatus())
	if encErr := json.NewEncoder(w).Encode(models.ErrorResponse{Error: gerr.Message, Details: gerr.Details}); encErr != nil {
		logCtx.Error("Failed to write error response", "error", encErr)
	}
}
