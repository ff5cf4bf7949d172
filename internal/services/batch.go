package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/addintools/docgateway/internal/gcp"
	"github.com/addintools/docgateway/internal/models"
	"github.com/addintools/docgateway/internal/pipeline"
	"github.com/addintools/docgateway/internal/upstream"
)

// Batch job status lifecycle.
const (
	jobStatusReceived   = "RECEIVED"
	jobStatusConverting = "CONVERTING"
	jobStatusDone       = "DONE"
	jobStatusFailed     = "FAILED"
)

// BatchConfig holds all configuration for the batch converter.
type BatchConfig struct {
	ProjectID      string
	OutputBucket   string
	CollectionName string
	Instructions   models.ProcessingInstructions
}

// BatchFunction converts every document dropped into the input bucket
// through the same convert-then-preview pipeline the add-in uses, writes the
// PDF to the output bucket and tracks the job in Firestore.
type BatchFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	orchestrator    *pipeline.Orchestrator
	config          BatchConfig
}

func loadBatchConfig() (*BatchConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	outputBucket := gcp.GetEnv("OUTPUT_BUCKET", "")
	if outputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}

	// Batch runs have no interactive caller; the options come from the
	// environment once, validated the same way as per-request ones.
	instr, err := models.ParseInstructions([]byte(gcp.GetEnv("BATCH_INSTRUCTIONS", "{}")))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_INSTRUCTIONS: %w", err)
	}

	return &BatchConfig{
		ProjectID:      projectID,
		OutputBucket:   outputBucket,
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "conversionJobs"),
		Instructions:   *instr,
	}, nil
}

// NewBatch creates a new BatchFunction instance.
func NewBatch(ctx context.Context) (*BatchFunction, error) {
	config, err := loadBatchConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	convertCfg, err := loadConvertConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversion configuration: %w", err)
	}
	previewCfg, err := loadPreviewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load preview configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	converter := upstream.NewConversionClient(upstream.ConversionConfig{
		Endpoint: convertCfg.ConvertEndpoint,
		APIKey:   convertCfg.ConvertAPIKey,
		Timeout:  convertCfg.ConvertTimeout,
	})
	previewer := upstream.NewPreviewClient(upstream.PreviewConfig{
		Endpoint:      previewCfg.PreviewEndpoint,
		APIKey:        previewCfg.PreviewAPIKey,
		ViewerBaseURL: previewCfg.ViewerBaseURL,
		Timeout:       previewCfg.PreviewTimeout,
	})

	f := &BatchFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		orchestrator:    pipeline.New(converter, previewer, pipeline.Config{}),
		config:          *config,
	}
	slog.Info("Batch converter initialized.", "outputBucket", config.OutputBucket, "collection", config.CollectionName)
	return f, nil
}

// Process handles one storage-finalize event end to end.
func (f *BatchFunction) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new document upload.")

	data, err := gcp.ReadObject(ctx, f.storageClient, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source document", "error", err)
		return err
	}

	fileHash := hashBytes(data)
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, existingID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate document detected. Skipping.", "existingJobId", existingID)
		return nil
	}

	jobRef, err := f.createJob(ctx, fileHash, e.Name)
	if err != nil {
		logCtx.Error("Failed to create job record", "error", err)
		return err
	}
	logCtx = logCtx.With("jobId", jobRef.ID)
	logCtx.Info("Created conversion job record.")

	if err := f.updateStatus(ctx, jobRef, jobStatusConverting, ""); err != nil {
		return f.handleError(ctx, logCtx, jobRef, "failed to update status to CONVERTING", err)
	}

	doc := &models.SourceDocument{
		Filename:  e.Name,
		MediaType: "application/octet-stream",
		Data:      data,
	}
	outcome := f.orchestrator.Run(ctx, doc, &f.config.Instructions)
	if !outcome.Success {
		return f.handleError(ctx, logCtx, jobRef, "conversion pipeline failed", outcome.Err)
	}
	if outcome.PreviewWarning != "" {
		logCtx.Warn("Preview unavailable for batch job.", "warning", outcome.PreviewWarning)
	}

	objectName := fmt.Sprintf("%s/%s", jobRef.ID, outcome.Artifact.Filename)
	bucketHandle := f.storageClient.Bucket(f.config.OutputBucket)
	if err := gcp.WriteObjectAtomically(ctx, bucketHandle, objectName, outcome.Artifact.Data); err != nil {
		return f.handleError(ctx, logCtx, jobRef, "failed to write converted artifact", err)
	}
	outputGCSUri := fmt.Sprintf("gs://%s/%s", f.config.OutputBucket, objectName)

	pageCount := countPages(logCtx, outcome.Artifact.Data)

	updates := []firestore.Update{
		{Path: "status", Value: jobStatusDone},
		{Path: "outputGcsUri", Value: outputGCSUri},
	}
	if pageCount > 0 {
		updates = append(updates, firestore.Update{Path: "pageCount", Value: pageCount})
	}
	if outcome.PreviewURL != "" {
		updates = append(updates, firestore.Update{Path: "previewUrl", Value: outcome.PreviewURL})
	}
	if _, err := jobRef.Update(ctx, updates); err != nil {
		return f.handleError(ctx, logCtx, jobRef, "failed to finalize job record", err)
	}

	logCtx.Info("Batch conversion complete.", "outputGcsUri", outputGCSUri, "pageCount", pageCount)
	return nil
}

func (f *BatchFunction) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (f *BatchFunction) createJob(ctx context.Context, fileHash, filename string) (*firestore.DocumentRef, error) {
	job := models.ConversionJob{
		FileHash:         fileHash,
		OriginalFilename: filename,
		Status:           jobStatusReceived,
		CreatedAt:        time.Now(),
	}
	jobRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}
	return jobRef, nil
}

func (f *BatchFunction) handleError(ctx context.Context, logCtx *slog.Logger, jobRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, jobRef, jobStatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update job status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}

func (f *BatchFunction) updateStatus(ctx context.Context, jobRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := jobRef.Update(ctx, updates)
	return err
}

// countPages inspects the converted artifact for the job record. The
// upstream converter owns correctness of its output, so inspection failures
// only log; they never fail a completed conversion.
func countPages(logCtx *slog.Logger, data []byte) int {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	pageCount, err := api.PageCount(bytes.NewReader(data), cfg)
	if err != nil {
		logCtx.Warn("Could not determine page count of converted artifact.", "error", err)
		return 0
	}
	return pageCount
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
