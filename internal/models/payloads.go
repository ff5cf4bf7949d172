package models

// These structs define the JSON payloads exchanged between the add-in and
// the gateway functions.

// ErrorResponse is the error body every gateway function returns on failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// PreviewUploadResponse is the success body of the preview-upload function.
type PreviewUploadResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId"`
}

// GCSEvent is the payload of the storage-finalize event that triggers the
// batch converter.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
