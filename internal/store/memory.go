package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// MemoryStore is an in-process entry store for tests and single-node
// development. Meta snapshots are copied on read
type MemoryStore struct {
	entries map[api.EntryID]*api.Entry
	forms   map[api.FormID]*api.Form
	steps   map[api.FormID][]*api.Step
	meta    map[api.EntryID]api.Meta
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-process entry store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[api.EntryID]*api.Entry{},
		forms:   map[api.FormID]*api.Form{},
		steps:   map[api.FormID][]*api.Step{},
		meta:    map[api.EntryID]api.Meta{},
	}
}

func (s *MemoryStore) Form(
	_ context.Context, id api.FormID,
) (*api.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	form, ok := s.forms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	return form, nil
}

func (s *MemoryStore) PutForm(_ context.Context, form *api.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[form.ID] = form
	return nil
}

func (s *MemoryStore) Entry(
	_ context.Context, id api.EntryID,
) (*api.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return entry, nil
}

func (s *MemoryStore) PutEntry(_ context.Context, entry *api.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

func (s *MemoryStore) EntryMeta(
	_ context.Context, id api.EntryID,
) (api.Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := api.Meta{}
	for k, v := range s.meta[id] {
		snapshot[k] = v
	}
	return snapshot, nil
}

func (s *MemoryStore) SetMeta(
	_ context.Context, id api.EntryID, key, value string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[id]
	if !ok {
		m = api.Meta{}
		s.meta[id] = m
	}
	m[key] = value
	return nil
}

func (s *MemoryStore) SetMetaIfAbsent(
	_ context.Context, id api.EntryID, key, value string,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[id]
	if !ok {
		m = api.Meta{}
		s.meta[id] = m
	}
	if _, exists := m[key]; exists {
		return false, nil
	}
	m[key] = value
	return true, nil
}

func (s *MemoryStore) DeleteMeta(
	_ context.Context, id api.EntryID, key string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meta[id], key)
	return nil
}

// MemoryDeduper is an in-process send-record keeper for tests
type MemoryDeduper struct {
	sent map[string]struct{}
	mu   sync.Mutex
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{sent: map[string]struct{}{}}
}

func (d *MemoryDeduper) MarkSent(
	_ context.Context, key string,
) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sent[key]; ok {
		return false, nil
	}
	d.sent[key] = struct{}{}
	return true, nil
}
