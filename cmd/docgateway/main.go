// docgateway is a developer CLI for the conversion gateway. It runs the same
// convert-then-preview pipeline the add-in runs, against deployed gateway
// endpoints, and writes the converted artifact to disk.
//
// Usage:
//
//	docgateway -file report.docx [-instructions '{"ocr":true}'] [-out dir]
//	docgateway -check
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/addintools/docgateway/internal/gcp"
	"github.com/addintools/docgateway/internal/models"
	"github.com/addintools/docgateway/internal/pipeline"
	"github.com/addintools/docgateway/internal/upstream"
)

func main() {
	filePath := flag.String("file", "", "document to convert")
	rawInstr := flag.String("instructions", "{}", "processing instructions as JSON")
	outDir := flag.String("out", "", "output directory (defaults to the source directory)")
	check := flag.Bool("check", false, "probe both upstream services and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Local development reads credentials and endpoints from .env.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env file.")
	}

	if *check {
		os.Exit(runCheck())
	}

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: docgateway -file <document> [-instructions <json>] [-out <dir>] | docgateway -check")
		os.Exit(2)
	}
	os.Exit(runConvert(*filePath, *rawInstr, *outDir))
}

func runConvert(filePath, rawInstr, outDir string) int {
	instr, err := models.ParseInstructions([]byte(rawInstr))
	if err != nil {
		slog.Error("Invalid instructions", "error", err)
		return 2
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Error("Could not read source document", "error", err)
		return 1
	}

	convertURL := gcp.GetEnv("GATEWAY_CONVERT_URL", "")
	previewURL := gcp.GetEnv("GATEWAY_PREVIEW_URL", "")
	if convertURL == "" || previewURL == "" {
		slog.Error("GATEWAY_CONVERT_URL and GATEWAY_PREVIEW_URL must be set")
		return 2
	}

	doc := &models.SourceDocument{
		Filename:  filepath.Base(filePath),
		MediaType: "application/octet-stream",
		Data:      data,
	}

	httpClient := pipeline.DefaultHTTPClient()
	orchestrator := pipeline.New(
		&pipeline.GatewayConverter{Endpoint: convertURL, HTTPClient: httpClient},
		&pipeline.GatewayPreviewer{
			Endpoint:      previewURL,
			ViewerBaseURL: gcp.GetEnv("PREVIEW_VIEWER_BASE_URL", ""),
			HTTPClient:    httpClient,
		},
		pipeline.Config{
			ConvertTimeout: upstream.DefaultConvertTimeout,
			PreviewTimeout: upstream.DefaultPreviewTimeout,
		},
	)

	outcome := orchestrator.Run(context.Background(), doc, instr)
	if !outcome.Success {
		slog.Error("Conversion failed", "error", outcome.Err)
		return 1
	}

	if outDir == "" {
		outDir = filepath.Dir(filePath)
	}
	outPath := filepath.Join(outDir, outcome.Artifact.Filename)
	if err := os.WriteFile(outPath, outcome.Artifact.Data, 0o644); err != nil {
		slog.Error("Could not write converted artifact", "error", err)
		return 1
	}

	fmt.Printf("converted: %s (%d bytes)\n", outPath, len(outcome.Artifact.Data))
	if outcome.PreviewURL != "" {
		fmt.Printf("preview:   %s\n", outcome.PreviewURL)
	}
	if outcome.PreviewWarning != "" {
		fmt.Printf("warning:   %s\n", outcome.PreviewWarning)
	}
	return 0
}

// runCheck probes the vendor APIs directly with the server-held credentials,
// so operators can verify a deployment's configuration before wiring up the
// add-in.
func runCheck() int {
	conversion := upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: gcp.GetEnv("CONVERT_API_URL", ""),
		APIKey:   gcp.GetEnv("CONVERT_API_KEY", ""),
	})
	preview := upstream.NewPreviewClient(upstream.PreviewConfig{
		Endpoint: gcp.GetEnv("PREVIEW_API_URL", ""),
		APIKey:   gcp.GetEnv("PREVIEW_API_KEY", ""),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status := upstream.NewHealthChecker(conversion, preview).Refresh(ctx)
	fmt.Printf("checked at %s\n", status.CheckedAt.Format(time.RFC3339))
	printProbe("conversion", status.ConversionReady, status.ConversionError)
	printProbe("preview", status.PreviewReady, status.PreviewError)

	if !status.OK() {
		return 1
	}
	return 0
}

func printProbe(name string, ready bool, errMsg string) {
	if ready {
		fmt.Printf("%-10s ok\n", name)
		return
	}
	fmt.Printf("%-10s FAILED: %s\n", name, errMsg)
}
