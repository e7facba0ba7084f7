package validate

import (
	"errors"
	"fmt"
)

// Fatal errors: the run is aborted and no partial result is produced.
var (
	// ErrUnknownFramework is returned when no rule set exists for the
	// requested framework
	ErrUnknownFramework = errors.New("unknown framework")

	// ErrDocumentNotFound is returned when the document is absent or has
	// no extracted segments
	ErrDocumentNotFound = errors.New("document not found")
)

// MalformedResponseError indicates the LLM's output did not match the
// expected verdict schema. It is recovered by a single stricter retry, then
// degraded to a needs_review verdict; it never aborts a run.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed LLM response: %s", e.Reason)
}
