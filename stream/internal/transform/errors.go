// Package transform converts CDC envelopes into sink-ready entities, one transformer
// per (tool, destination) pair.
package transform

import (
	"errors"
	"fmt"
)

// ErrSkip reports that an envelope carries nothing for a destination, such as
// the delete of a tool event. Routes record it as skipped, not failed.
var ErrSkip = errors.New("nothing to deliver")

// TransformError reports that an entity could not be produced from an envelope.
type TransformError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: field %q: %s", e.Tool, e.Field, e.Reason)
}
