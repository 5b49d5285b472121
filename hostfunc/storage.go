package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/caffeineduck/pagekit/serial"
)

const (
	DefaultMaxKeySize   = 256
	DefaultMaxValueSize = 64 << 10 // 64KB
	DefaultMaxEntries   = 1000
)

var (
	ErrKeyTooLarge   = errors.New("key too large")
	ErrValueTooLarge = errors.New("value too large")
	ErrStorageFull   = errors.New("storage full")
)

type StorageConfig struct {
	MaxKeySize   int
	MaxValueSize int
	MaxEntries   int
}

func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		MaxKeySize:   DefaultMaxKeySize,
		MaxValueSize: DefaultMaxValueSize,
		MaxEntries:   DefaultMaxEntries,
	}
}

type StorageOption func(*StorageConfig)

func WithMaxKeySize(n int) StorageOption {
	return func(c *StorageConfig) { c.MaxKeySize = n }
}

func WithMaxValueSize(n int) StorageOption {
	return func(c *StorageConfig) { c.MaxValueSize = n }
}

func WithMaxEntries(n int) StorageOption {
	return func(c *StorageConfig) { c.MaxEntries = n }
}

// Storage is a string key/value store with browser localStorage semantics:
// values are stored as text and missing keys read as null. A single Storage
// may be shared by several runs to persist state between them.
type Storage struct {
	cfg  StorageConfig
	mu   sync.RWMutex
	data map[string]string
}

func NewStorage(cfg StorageConfig) *Storage {
	def := DefaultStorageConfig()
	if cfg.MaxKeySize <= 0 {
		cfg.MaxKeySize = def.MaxKeySize
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = def.MaxValueSize
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &Storage{cfg: cfg, data: make(map[string]string)}
}

// NewStorageWith builds a Storage from the defaults adjusted by opts.
func NewStorageWith(opts ...StorageOption) *Storage {
	cfg := DefaultStorageConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewStorage(cfg)
}

func (s *Storage) Register(r *Registry) {
	r.Register("storage_get", s.Get)
	r.Register("storage_set", s.Set)
	r.Register("storage_remove", s.Remove)
	r.Register("storage_keys", s.Keys)
}

func (s *Storage) Get(ctx context.Context, args map[string]any) (any, error) {
	var req StorageKeyRequest
	if err := bind(args, &req); err != nil {
		return nil, err
	}

	s.mu.RLock()
	val, ok := s.data[req.Key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return val, nil
}

func (s *Storage) Set(ctx context.Context, args map[string]any) (any, error) {
	var req StorageSetRequest
	if err := bind(args, &req); err != nil {
		return nil, err
	}
	if len(req.Key) > s.cfg.MaxKeySize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrKeyTooLarge, len(req.Key), s.cfg.MaxKeySize)
	}

	val := serial.Coerce(req.Value)
	if len(val) > s.cfg.MaxValueSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrValueTooLarge, len(val), s.cfg.MaxValueSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[req.Key]; !exists && len(s.data) >= s.cfg.MaxEntries {
		return nil, fmt.Errorf("%w: %d entries", ErrStorageFull, s.cfg.MaxEntries)
	}
	s.data[req.Key] = val
	return "ok", nil
}

func (s *Storage) Remove(ctx context.Context, args map[string]any) (any, error) {
	var req StorageKeyRequest
	if err := bind(args, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.data, req.Key)
	s.mu.Unlock()
	return "ok", nil
}

// Keys returns the stored keys in sorted order.
func (s *Storage) Keys(ctx context.Context, args map[string]any) (any, error) {
	return s.List(), nil
}

func (s *Storage) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
