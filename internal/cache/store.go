package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss means no document is stored.
var ErrMiss = errors.New("cache miss")

type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// FileStore keeps the document as indented JSON on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *FileStore) Save(_ context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// RedisStore keeps the document under one key with the cache TTL as expiry.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (*Document, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return &doc, nil
}

func (s *RedisStore) Save(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

type MemoryStore struct {
	mu  sync.Mutex
	doc *Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrMiss
	}
	cp := *s.doc
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.doc = &cp
	return nil
}
