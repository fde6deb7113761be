package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// DefaultSearchIndex is the OpenSearch index receiving log records.
const DefaultSearchIndex = "openframe-logs"

// SearchSink indexes UnifiedLogRecords into OpenSearch, one document per
// tool event id. Reindexing the same record overwrites it.
type SearchSink struct {
	transport opensearchapi.Transport
	index     string
}

// NewSearchSink creates a sink over an OpenSearch client (or any Transport).
func NewSearchSink(transport opensearchapi.Transport, index string) *SearchSink {
	if index == "" {
		index = DefaultSearchIndex
	}
	return &SearchSink{transport: transport, index: index}
}

// Push indexes r.
func (s *SearchSink) Push(ctx context.Context, r *model.UnifiedLogRecord) error {
	if r == nil {
		return Fatal(model.DestinationSearch, errors.New("nil record"))
	}

	body, err := json.Marshal(r)
	if err != nil {
		return Fatal(model.DestinationSearch, fmt.Errorf("marshal record: %w", err))
	}

	req := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: r.ToolEventID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.transport)
	if err != nil {
		return Retryable(model.DestinationSearch, fmt.Errorf("index document: %w", err))
	}
	defer res.Body.Close()

	if !res.IsError() {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	err = fmt.Errorf("opensearch returned %s: %s", res.Status(), bytes.TrimSpace(detail))
	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
		return Retryable(model.DestinationSearch, err)
	}
	return Fatal(model.DestinationSearch, err)
}
