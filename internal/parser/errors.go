package parser

import (
	"fmt"

	"sheet-translator/internal/util"
)

const rawPreviewRunes = 300

// ParseExhaustedError indicates that no repair strategy produced valid JSON.
// It carries the original text (truncated) and the last underlying parse
// error for diagnostics.
type ParseExhaustedError struct {
	Raw     string
	LastErr error
}

func (e *ParseExhaustedError) Error() string {
	return fmt.Sprintf("all parse strategies failed: %v (raw: %s)",
		e.LastErr, util.TruncateString(e.Raw, rawPreviewRunes))
}

func (e *ParseExhaustedError) Unwrap() error {
	return e.LastErr
}
