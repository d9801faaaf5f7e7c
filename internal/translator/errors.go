package translator

import (
	"fmt"

	"sheet-translator/internal/util"
)

// HeaderMismatchError means the translated header count differs from the
// original. Column alignment is a correctness invariant, so this is fatal
// for the whole job.
type HeaderMismatchError struct {
	Expected int
	Got      int
	Raw      string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("header translation returned %d columns, expected %d (response: %s)",
		e.Got, e.Expected, util.TruncateString(e.Raw, 200))
}

// ResultCountMismatchError means a chunk came back with a different number
// of translated rows than were sent. The job aborts instead of silently
// dropping rows.
type ResultCountMismatchError struct {
	Chunk    int
	Expected int
	Got      int
}

func (e *ResultCountMismatchError) Error() string {
	return fmt.Sprintf("chunk %d returned %d translated rows, expected %d", e.Chunk, e.Got, e.Expected)
}
