package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/addintools/docgateway/internal/services"
)

var (
	previewInstance *services.PreviewFunction
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	// "HandlePreviewUpload" is the entry point name configured in GCP.
	functions.HTTP("HandlePreviewUpload", handlePreviewUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// handlePreviewUpload is the HTTP handler for the preview relay.
func handlePreviewUpload(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		previewInstance, initErr = services.NewPreview(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: preview relay initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	previewInstance.Handle(w, r)
}
