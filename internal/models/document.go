package models

import "time"

// SourceDocument is one captured document on its way through a single
// pipeline run. It is immutable once captured and discarded when the run ends.
type SourceDocument struct {
	Filename  string
	MediaType string
	Data      []byte
}

// ConversionResult is the converted binary as returned by the conversion
// gateway, together with the transport metadata a caller needs to hand it on.
type ConversionResult struct {
	Data      []byte
	MediaType string
	Filename  string // suggested download name, always .pdf
}

// PreviewHandle is the opaque identifier the preview-hosting service returns.
// Its only use is constructing a viewer URL.
type PreviewHandle string

// ArtifactRef is the locally addressable handle to a converted binary. It is
// built from a ConversionResult and exists independent of preview success.
type ArtifactRef struct {
	Data      []byte
	MediaType string
	Filename  string
}

// PipelineOutcome is the single value a pipeline run exposes to its caller.
// Success implies Artifact is non-nil. PreviewURL is optional even on
// success: preview hosting is best-effort and its failure only populates
// PreviewWarning.
type PipelineOutcome struct {
	Success        bool
	Artifact       *ArtifactRef
	PreviewURL     string
	PreviewWarning string
	Err            error // set only when Success is false
}

// ConversionJob is the Firestore record for one batch conversion. It tracks
// the status lifecycle of a document dropped into the input bucket.
type ConversionJob struct {
	FileHash         string    `firestore:"fileHash,omitempty"`
	OriginalFilename string    `firestore:"originalFilename,omitempty"`
	Status           string    `firestore:"status,omitempty"`
	ErrorDetails     string    `firestore:"errorDetails,omitempty"`
	PageCount        int       `firestore:"pageCount,omitempty"`
	OutputGCSUri     string    `firestore:"outputGcsUri,omitempty"`
	PreviewURL       string    `firestore:"previewUrl,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt,omitempty"`
}
