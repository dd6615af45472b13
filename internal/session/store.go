// Package session implements server-side sessions: the authenticated user
// id, the one-time flash queue and the post-login return path live in the
// backend under a random id; the client only ever holds that id inside a
// signed cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when the id does not resolve to stored state,
// typically because it expired or the backend restarted.
var ErrNoSession = errors.New("session not found")

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Kind string `json:"kind"` // "success" or "error"
	Text string `json:"text"`
}

type data struct {
	UserID   uint64  `json:"user_id,omitempty"`
	Flashes  []Flash `json:"flashes,omitempty"`
	ReturnTo string  `json:"return_to,omitempty"`
}

// Session is one user's server-side state. Mutations mark it dirty; the
// session middleware persists dirty sessions after the handler returns.
type Session struct {
	ID    string
	data  data
	dirty bool
}

func (s *Session) UserID() uint64 { return s.data.UserID }

func (s *Session) SetUserID(id uint64) {
	s.data.UserID = id
	s.dirty = true
}

// ClearUser logs the session out but keeps it alive for flashes.
func (s *Session) ClearUser() {
	s.data.UserID = 0
	s.dirty = true
}

// AddFlash queues a one-time message.
func (s *Session) AddFlash(kind, text string) {
	s.data.Flashes = append(s.data.Flashes, Flash{Kind: kind, Text: text})
	s.dirty = true
}

// PopFlashes drains the flash queue.
func (s *Session) PopFlashes() []Flash {
	if len(s.data.Flashes) == 0 {
		return nil
	}
	out := s.data.Flashes
	s.data.Flashes = nil
	s.dirty = true
	return out
}

// SetReturnTo remembers the path an unauthenticated user tried to reach.
func (s *Session) SetReturnTo(path string) {
	s.data.ReturnTo = path
	s.dirty = true
}

// PopReturnTo consumes the saved path, if any.
func (s *Session) PopReturnTo() string {
	p := s.data.ReturnTo
	if p != "" {
		s.data.ReturnTo = ""
		s.dirty = true
	}
	return p
}

func (s *Session) Dirty() bool { return s.dirty }

// Backend is the minimal key-value surface the store needs. Production
// uses Redis; when Redis is unavailable an in-process map keeps the
// application usable on a single node.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Store creates, loads and persists sessions.
type Store struct {
	backend Backend
	ttl     time.Duration
}

// NewStore builds a session store over the given Redis client. A nil
// client selects the in-memory fallback backend.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if rdb == nil {
		log.Printf("session: redis unavailable, using in-memory store")
		return &Store{backend: newMemoryBackend(), ttl: ttl}
	}
	return &Store{backend: &redisBackend{rdb: rdb}, ttl: ttl}
}

// NewMemoryStore returns a store over the in-memory backend. Used in tests.
func NewMemoryStore(ttl time.Duration) *Store {
	return &Store{backend: newMemoryBackend(), ttl: ttl}
}

func (st *Store) TTL() time.Duration { return st.ttl }

// New creates an empty session with a fresh random id. It is not persisted
// until Save.
func (st *Store) New() (*Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return &Session{ID: hex.EncodeToString(b), dirty: true}, nil
}

// Get loads the session stored under id.
func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, ok, err := st.backend.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSession
	}
	var d data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, ErrNoSession
	}
	return &Session{ID: id, data: d}, nil
}

// Save persists the session and resets its dirty flag. Each save renews
// the TTL, so active sessions slide forward.
func (st *Store) Save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	if err := st.backend.Set(ctx, sessionKey(s.ID), raw, st.ttl); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Delete discards the stored session state.
func (st *Store) Delete(ctx context.Context, id string) error {
	return st.backend.Del(ctx, sessionKey(id))
}

func sessionKey(id string) string { return "sess:" + id }

type redisBackend struct{ rdb *redis.Client }

func (b *redisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := b.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (b *redisBackend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return b.rdb.Set(ctx, key, val, ttl).Err()
}

func (b *redisBackend) Del(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

type memoryEntry struct {
	val     []byte
	expires time.Time
}

type memoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{entries: make(map[string]memoryEntry)}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expires) {
		delete(b.entries, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = memoryEntry{val: val, expires: time.Now().Add(ttl)}
	return nil
}

func (b *memoryBackend) Del(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}
