package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Output formats for PrintSink.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Printed is one entry written by a PrintSink.
type Printed[E any] struct {
	Destination model.Destination `json:"destination" yaml:"destination"`
	Entity      E                 `json:"entity" yaml:"entity"`
}

// PrintSink writes entities to a writer instead of a store.
type PrintSink[E any] struct {
	mu     *sync.Mutex
	w      io.Writer
	format string
	dest   model.Destination
}

// NewPrintSink creates a PrintSink. Sinks sharing mu can share w.
func NewPrintSink[E any](w io.Writer, mu *sync.Mutex, format string, dest model.Destination) (*PrintSink[E], error) {
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &PrintSink[E]{mu: mu, w: w, format: format, dest: dest}, nil
}

// Push writes e.
func (s *PrintSink[E]) Push(_ context.Context, e E) error {
	entry := Printed[E]{Destination: s.dest, Entity: e}

	var (
		data []byte
		err  error
	)
	if s.format == FormatYAML {
		data, err = yaml.Marshal(entry)
		data = append([]byte("---\n"), data...)
	} else {
		data, err = json.MarshalIndent(entry, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return Fatal(s.dest, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return Retryable(s.dest, err)
	}
	return nil
}
