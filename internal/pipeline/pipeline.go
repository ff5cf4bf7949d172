// Package pipeline sequences the two-stage conversion-and-preview flow:
// convert first (hard dependency), then publish the result for preview
// (best effort). A preview failure downgrades to a warning on an otherwise
// successful outcome; it never voids the converted artifact.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/addintools/docgateway/internal/models"
)

// Converter produces a converted artifact for one document.
type Converter interface {
	Convert(ctx context.Context, doc *models.SourceDocument, instr *models.ProcessingInstructions) (*models.ConversionResult, error)
}

// Previewer publishes a converted binary and builds its viewer URL.
type Previewer interface {
	Upload(ctx context.Context, filename string, data []byte) (models.PreviewHandle, error)
	ViewURL(handle models.PreviewHandle) string
}

// State names one node of the per-run state machine. Runs are strictly
// sequential; the machine exists so the partial-failure rule is explicit:
// StatePreviewFailed still reaches StateDone with a successful outcome.
type State string

const (
	StateIdle             State = "Idle"
	StateConverting       State = "Converting"
	StateConversionFailed State = "ConversionFailed"
	StateConverted        State = "Converted"
	StatePreviewUploading State = "PreviewUploading"
	StatePreviewReady     State = "PreviewReady"
	StatePreviewFailed    State = "PreviewFailed"
	StateDone             State = "Done"
)

// Config bounds each outbound call separately. Conversion and preview upload
// have different acceptable latencies, so there is no whole-pipeline
// deadline. Zero values mean the caller's context is the only bound.
type Config struct {
	ConvertTimeout time.Duration
	PreviewTimeout time.Duration
}

// Orchestrator runs the two-step pipeline. It holds no per-run state and is
// safe to share across runs.
type Orchestrator struct {
	converter Converter
	previewer Previewer
	config    Config
}

// New creates an Orchestrator over the given stage implementations.
func New(converter Converter, previewer Previewer, config Config) *Orchestrator {
	return &Orchestrator{converter: converter, previewer: previewer, config: config}
}

// Run executes one pipeline invocation for a single document. Conversion
// failure aborts the run and the previewer is never invoked. On conversion
// success the outcome is successful no matter what the preview stage does;
// a preview failure only sets PreviewWarning. There are no retries.
func (o *Orchestrator) Run(ctx context.Context, doc *models.SourceDocument, instr *models.ProcessingInstructions) models.PipelineOutcome {
	logCtx := slog.With("filename", doc.Filename, "sizeBytes", len(doc.Data))
	state := StateIdle

	state = transition(logCtx, state, StateConverting)
	result, err := o.convert(ctx, doc, instr)
	if err != nil {
		state = transition(logCtx, state, StateConversionFailed)
		transition(logCtx, state, StateDone)
		logCtx.Error("Conversion failed, aborting pipeline.", "error", err)
		return models.PipelineOutcome{Success: false, Err: err}
	}
	state = transition(logCtx, state, StateConverted)

	artifact := &models.ArtifactRef{
		Data:      result.Data,
		MediaType: result.MediaType,
		Filename:  result.Filename,
	}

	state = transition(logCtx, state, StatePreviewUploading)
	previewURL, warning := o.preview(ctx, logCtx, result)
	if warning != "" {
		state = transition(logCtx, state, StatePreviewFailed)
	} else {
		state = transition(logCtx, state, StatePreviewReady)
	}
	transition(logCtx, state, StateDone)

	return models.PipelineOutcome{
		Success:        true,
		Artifact:       artifact,
		PreviewURL:     previewURL,
		PreviewWarning: warning,
	}
}

func (o *Orchestrator) convert(ctx context.Context, doc *models.SourceDocument, instr *models.ProcessingInstructions) (*models.ConversionResult, error) {
	if o.config.ConvertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.ConvertTimeout)
		defer cancel()
	}
	return o.converter.Convert(ctx, doc, instr)
}

// preview uploads the converted binary and returns either a viewer URL or a
// non-fatal warning, never both.
func (o *Orchestrator) preview(ctx context.Context, logCtx *slog.Logger, result *models.ConversionResult) (url, warning string) {
	if o.config.PreviewTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.PreviewTimeout)
		defer cancel()
	}

	handle, err := o.previewer.Upload(ctx, result.Filename, result.Data)
	if err != nil {
		logCtx.Warn("Preview upload failed; delivering artifact without preview.", "error", err)
		return "", fmt.Sprintf("preview unavailable: %v", err)
	}
	return o.previewer.ViewURL(handle), ""
}

func transition(logCtx *slog.Logger, from, to State) State {
	logCtx.Debug("Pipeline state change.", "from", string(from), "to", string(to))
	return to
}
