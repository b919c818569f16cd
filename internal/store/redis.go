package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turnstilehq/turnstile/pkg/api"
)

type (
	// RedisStore persists entries and their workflow meta in Redis. Each
	// entry's meta lives in a single hash, so EntryMeta returns one
	// consistent snapshot per call and SetMetaIfAbsent maps to HSETNX
	RedisStore struct {
		client *redis.Client
		prefix string
	}

	// RedisDeduper records notification sends with SETNX so concurrent
	// invocations of the same step run deliver at most once per recipient
	RedisDeduper struct {
		client *redis.Client
		prefix string
		ttl    time.Duration
	}
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrFormNotFound  = errors.New("form not found")

	// DefaultDedupeTTL bounds how long send records are retained
	DefaultDedupeTTL = 30 * 24 * time.Hour
)

// NewRedisStore creates an entry store on an existing Redis client
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Entry fetches and decodes an entry record
func (s *RedisStore) Entry(
	ctx context.Context, id api.EntryID,
) (*api.Entry, error) {
	data, err := s.client.Get(ctx, s.entryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var entry api.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// PutEntry stores an entry record, replacing any previous version
func (s *RedisStore) PutEntry(ctx context.Context, entry *api.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.entryKey(entry.ID), data, 0).Err()
}

// EntryMeta returns the entry's full meta hash as one snapshot
func (s *RedisStore) EntryMeta(
	ctx context.Context, id api.EntryID,
) (api.Meta, error) {
	raw, err := s.client.HGetAll(ctx, s.metaKey(id)).Result()
	if err != nil {
		return nil, err
	}
	return api.Meta(raw), nil
}

// SetMeta writes one meta value
func (s *RedisStore) SetMeta(
	ctx context.Context, id api.EntryID, key, value string,
) error {
	return s.client.HSet(ctx, s.metaKey(id), key, value).Err()
}

// SetMetaIfAbsent writes one meta value only when the key has no value yet,
// reporting whether this caller won the write
func (s *RedisStore) SetMetaIfAbsent(
	ctx context.Context, id api.EntryID, key, value string,
) (bool, error) {
	return s.client.HSetNX(ctx, s.metaKey(id), key, value).Result()
}

// DeleteMeta removes one meta key
func (s *RedisStore) DeleteMeta(
	ctx context.Context, id api.EntryID, key string,
) error {
	return s.client.HDel(ctx, s.metaKey(id), key).Err()
}

// Form fetches and decodes a form definition
func (s *RedisStore) Form(
	ctx context.Context, id api.FormID,
) (*api.Form, error) {
	data, err := s.client.Get(ctx, s.formKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var form api.Form
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

// PutForm stores a form definition
func (s *RedisStore) PutForm(ctx context.Context, form *api.Form) error {
	data, err := json.Marshal(form)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.formKey(form.ID), data, 0).Err()
}

func (s *RedisStore) formKey(id api.FormID) string {
	return fmt.Sprintf("%s:form:%s", s.prefix, id)
}

func (s *RedisStore) entryKey(id api.EntryID) string {
	return fmt.Sprintf("%s:entry:%s", s.prefix, id)
}

func (s *RedisStore) metaKey(id api.EntryID) string {
	return fmt.Sprintf("%s:meta:%s", s.prefix, id)
}

// NewRedisDeduper creates a durable send-record keeper. A zero ttl uses
// DefaultDedupeTTL
func NewRedisDeduper(
	client *redis.Client, prefix string, ttl time.Duration,
) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &RedisDeduper{client: client, prefix: prefix, ttl: ttl}
}

// MarkSent records a send, reporting whether this is the first record for
// the key
func (d *RedisDeduper) MarkSent(
	ctx context.Context, key string,
) (bool, error) {
	return d.client.SetNX(
		ctx, fmt.Sprintf("%s:sent:%s", d.prefix, key), "1", d.ttl,
	).Result()
}
