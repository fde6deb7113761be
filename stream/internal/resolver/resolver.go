// Package resolver maps a CDC envelope's source database, and for OpenFrame's
// inventory database its collection, to a message type.
package resolver

import (
	"fmt"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Resolver is an exact-match table from source database name to message type.
// It is built once and read-only afterwards.
type Resolver struct {
	table       map[string]model.MessageType
	inventoryDB string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithInventoryDatabase resolves the machines, tags and machine_tags
// collections of db to the inventory message types. An empty db disables them.
func WithInventoryDatabase(db string) Option {
	return func(r *Resolver) { r.inventoryDB = db }
}

// New creates a resolver with the built-in tool databases plus aliases.
// aliases maps extra database names to a tool ("fleet", "TACTICAL", "tactical_rmm" ...).
// Inventory collections resolve under model.OpenFrameDatabase unless overridden.
func New(aliases map[string]string, opts ...Option) (*Resolver, error) {
	table := make(map[string]model.MessageType, len(model.Tools)+len(aliases))
	for _, tool := range model.Tools {
		table[tool.Database()] = model.MessageTypeFor(tool)
	}

	for db, toolName := range aliases {
		tool, ok := model.ParseToolType(toolName)
		if !ok {
			return nil, fmt.Errorf("source alias %q: unknown tool %q", db, toolName)
		}
		if db == "" {
			return nil, fmt.Errorf("source alias for %q: empty database name", toolName)
		}
		table[db] = model.MessageTypeFor(tool)
	}

	r := &Resolver{table: table, inventoryDB: model.OpenFrameDatabase}
	for _, opt := range opts {
		opt(r)
	}
	if _, ok := table[r.inventoryDB]; ok && r.inventoryDB != "" {
		return nil, fmt.Errorf("inventory database %q is already a tool database", r.inventoryDB)
	}
	return r, nil
}

// Default returns a resolver with only the built-in tool databases.
func Default() *Resolver {
	r, _ := New(nil)
	return r
}

// Resolve returns the message type for env. Unknown databases, and
// collections of the inventory database other than the three projected ones,
// return false.
func (r *Resolver) Resolve(env *model.CdcEnvelope) (model.MessageType, bool) {
	if env == nil {
		return "", false
	}
	if r.inventoryDB != "" && env.SourceDatabase == r.inventoryDB {
		mt, ok := model.InventoryCollections[env.Table]
		return mt, ok
	}
	mt, ok := r.table[env.SourceDatabase]
	return mt, ok
}

// Databases returns the number of recognised database names.
func (r *Resolver) Databases() int {
	return len(r.table)
}
