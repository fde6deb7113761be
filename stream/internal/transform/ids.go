package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// toolEventNamespace scopes the name-based UUIDs generated for tool events.
var toolEventNamespace = uuid.MustParse("3c1f7d2a-8b4e-5f60-9a71-0d2e4b6c8f13")

// CompositeKey builds "<tool>_<table>_id_<pk>", or "<tool>_<table>_hash_<sha256>"
// when the row has no primary key.
func CompositeKey(tool model.ToolType, table, pk string, doc model.Document) string {
	table = strings.TrimSpace(table)
	if table == "" {
		table = "events"
	}
	if pk != "" {
		return fmt.Sprintf("%s_%s_id_%s", tool.Name(), table, pk)
	}
	return fmt.Sprintf("%s_%s_hash_%s", tool.Name(), table, contentHash(doc))
}

// ToolEventID returns a deterministic UUID for a source row, so redeliveries of
// the same row produce the same log store primary key.
func ToolEventID(tool model.ToolType, table, pk string, doc model.Document) string {
	return uuid.NewSHA1(toolEventNamespace, []byte(CompositeKey(tool, table, pk, doc))).String()
}

// contentHash hashes the canonical JSON of doc. encoding/json sorts map keys.
func contentHash(doc model.Document) string {
	data, err := json.Marshal(doc)
	if err != nil {
		data = []byte(fmt.Sprint(doc))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
