package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInstructionsDefaults(t *testing.T) {
	t.Parallel()

	instr, err := ParseInstructions([]byte(`{}`))
	require.NoError(t, err)
	require.False(t, instr.OCR)
	require.False(t, instr.Redact)
	require.False(t, instr.StripMetadata)
	require.Empty(t, instr.Format)
	require.Empty(t, instr.Action)
}

func TestParseInstructionsAllFields(t *testing.T) {
	t.Parallel()

	instr, err := ParseInstructions([]byte(`{"format":"pdf","action":"redact","ocr":true,"redact":true,"stripMetadata":true}`))
	require.NoError(t, err)
	require.Equal(t, FormatPDF, instr.Format)
	require.Equal(t, ActionRedact, instr.Action)
	require.True(t, instr.OCR)
	require.True(t, instr.Redact)
	require.True(t, instr.StripMetadata)
}

func TestParseInstructionsRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := ParseInstructions([]byte(`{ocr: yes}`))
	require.Error(t, err)
}

func TestParseInstructionsRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := ParseInstructions([]byte(`{"format":"docx"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "format")
}

func TestParseInstructionsRejectsUnknownAction(t *testing.T) {
	t.Parallel()

	_, err := ParseInstructions([]byte(`{"action":"translate"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "action")
}
