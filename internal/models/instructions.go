package models

import (
	"encoding/json"
	"fmt"
)

// Supported target formats and action kinds. The instruction set is closed:
// anything outside these values is rejected at the boundary instead of being
// silently forwarded upstream.
const (
	FormatPDF = "pdf"

	ActionConvert = "convert"
	ActionRedact  = "redact"
)

// ProcessingInstructions is the flat option set the add-in sends alongside a
// document. Absent fields mean the feature is disabled; the gateway never
// invents defaults beyond the documented zero-value behavior (Format ""
// means PDF, Action "" means convert).
type ProcessingInstructions struct {
	Format        string `json:"format,omitempty"`
	Action        string `json:"action,omitempty"`
	OCR           bool   `json:"ocr,omitempty"`
	Redact        bool   `json:"redact,omitempty"`
	StripMetadata bool   `json:"stripMetadata,omitempty"`
}

// ParseInstructions decodes and validates the JSON instruction payload.
func ParseInstructions(raw []byte) (*ProcessingInstructions, error) {
	var instr ProcessingInstructions
	if err := json.Unmarshal(raw, &instr); err != nil {
		return nil, fmt.Errorf("invalid instructions JSON: %w", err)
	}
	if err := instr.Validate(); err != nil {
		return nil, err
	}
	return &instr, nil
}

// Validate checks the enumerated fields against their closed value sets.
func (p *ProcessingInstructions) Validate() error {
	switch p.Format {
	case "", FormatPDF:
	default:
		return fmt.Errorf("unsupported target format %q", p.Format)
	}
	switch p.Action {
	case "", ActionConvert, ActionRedact:
	default:
		return fmt.Errorf("unsupported action %q", p.Action)
	}
	return nil
}
