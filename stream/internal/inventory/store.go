// Package inventory projects OpenFrame's own machines, tags and machine tags
// into the shared cache and publishes denormalized machine rows for Pinot.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// DefaultTTL matches the lifetime of the machine and tag caches in OpenFrame.
const DefaultTTL = 30 * 24 * time.Hour

// Cache key prefixes shared with the rest of OpenFrame.
const (
	machinePrefix    = "machine:"
	tagPrefix        = "tag:"
	machineTagPrefix = "machineTag:"
)

// Cache is the key/value store the projection lives in.
// enrichment.RedisCache and enrichment.MemoryCache satisfy it.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Store reads and writes inventory records. Updates of one machine are
// read-modify-write, so callers must apply a machine's changes in order.
type Store struct {
	cache Cache
	ttl   time.Duration
}

// NewStore creates a store over cache. A non-positive ttl uses DefaultTTL.
func NewStore(cache Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: cache, ttl: ttl}
}

func machineKey(id string) string {
	return machinePrefix + id
}

func tagKey(id string) string {
	return tagPrefix + id
}

func machineTagKey(machineID, tagID string) string {
	return machineTagPrefix + machineID + ":" + tagID
}

// Machine returns the cached machine.
func (s *Store) Machine(ctx context.Context, id string) (*model.Machine, bool, error) {
	raw, ok, err := s.cache.Get(ctx, machineKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	var m model.Machine
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, false, fmt.Errorf("decode machine %s: %w", id, err)
	}
	return &m, true, nil
}

func (s *Store) putMachine(ctx context.Context, m *model.Machine) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode machine %s: %w", m.MachineID, err)
	}
	return s.cache.Set(ctx, machineKey(m.MachineID), string(data), s.ttl)
}

// SaveMachine stores m, keeping the tag bindings already cached for it.
// It returns the stored record.
func (s *Store) SaveMachine(ctx context.Context, m *model.Machine) (*model.Machine, error) {
	saved := *m
	prev, ok, err := s.Machine(ctx, m.MachineID)
	if err != nil {
		return nil, err
	}
	if ok {
		saved.TagIDs = prev.TagIDs
	}
	if err := s.putMachine(ctx, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteMachine drops the cached machine.
func (s *Store) DeleteMachine(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, machineKey(id))
}

// SaveTag stores t.
func (s *Store) SaveTag(ctx context.Context, t *model.Tag) error {
	return s.cache.Set(ctx, tagKey(t.ID), t.Name, s.ttl)
}

// DeleteTag drops the cached tag.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, tagKey(id))
}

// TagName returns the cached name of a tag.
func (s *Store) TagName(ctx context.Context, id string) (string, bool, error) {
	return s.cache.Get(ctx, tagKey(id))
}

// TagNames resolves m's tag ids in order. Tags that are not cached are left out.
func (s *Store) TagNames(ctx context.Context, m *model.Machine) ([]string, error) {
	names := make([]string, 0, len(m.TagIDs))
	for _, id := range m.TagIDs {
		name, ok, err := s.TagName(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Bind records that mt's tag is attached to its machine. It returns the
// machine with the tag added and whether the machine itself is cached. An
// uncached machine keeps only its bindings until its own document arrives.
func (s *Store) Bind(ctx context.Context, mt *model.MachineTag) (*model.Machine, bool, error) {
	if err := s.cache.Set(ctx, machineTagKey(mt.MachineID, mt.TagID), mt.TagID, s.ttl); err != nil {
		return nil, false, err
	}
	return s.updateTags(ctx, mt.MachineID, func(ids []string) []string {
		if slices.Contains(ids, mt.TagID) {
			return ids
		}
		return append(ids, mt.TagID)
	})
}

// Unbind removes mt's tag from its machine.
func (s *Store) Unbind(ctx context.Context, mt *model.MachineTag) (*model.Machine, bool, error) {
	if err := s.cache.Delete(ctx, machineTagKey(mt.MachineID, mt.TagID)); err != nil {
		return nil, false, err
	}
	return s.updateTags(ctx, mt.MachineID, func(ids []string) []string {
		return slices.DeleteFunc(ids, func(id string) bool { return id == mt.TagID })
	})
}

func (s *Store) updateTags(ctx context.Context, machineID string, update func([]string) []string) (*model.Machine, bool, error) {
	m, known, err := s.Machine(ctx, machineID)
	if err != nil {
		return nil, false, err
	}
	if !known {
		m = &model.Machine{MachineID: machineID}
	}
	m.TagIDs = update(m.TagIDs)
	if err := s.putMachine(ctx, m); err != nil {
		return nil, false, err
	}
	return m, known && described(m), nil
}

// described reports whether m came from a machine document rather than from
// bindings seen before it.
func described(m *model.Machine) bool {
	return m.OrganizationID != "" || m.DeviceType != "" || m.Status != "" || m.OSType != ""
}
