package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// DefaultCleanupInterval is the default interval for sweeping expired
// entries from a Memory store.
const DefaultCleanupInterval = 1 * time.Minute

// entry holds either a scalar value or a list, never both, plus an
// optional expiration. A zero expiresAt means the entry never expires.
type entry struct {
	value     []byte
	list      []string
	isList    bool
	expiresAt time.Time
}

// Memory is an in-process Store with the same command semantics as the
// Redis backend. It is safe for concurrent use. Expired entries are
// treated as absent on read and swept by a background goroutine.
type Memory struct {
	mu              sync.RWMutex
	entries         map[string]entry
	now             func() time.Time
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// MemoryOption is a functional option for configuring a Memory store.
type MemoryOption func(*Memory)

// WithCleanupInterval sets the interval for sweeping expired entries.
func WithCleanupInterval(interval time.Duration) MemoryOption {
	return func(m *Memory) {
		m.cleanupInterval = interval
	}
}

// WithNow replaces the store's clock. Tests use this to step time forward
// instead of sleeping through TTLs.
func WithNow(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an in-process store with the given options.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:         make(map[string]entry),
		now:             time.Now,
		cleanupInterval: DefaultCleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	go m.cleanupLoop()

	return m
}

// live reports whether e exists as far as callers are concerned.
func (m *Memory) live(e entry) bool {
	return e.expiresAt.IsZero() || m.now().Before(e.expiresAt)
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: append([]byte(nil), value...)}
	return nil
}

func (m *Memory) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, found := m.entries[key]
	if !found || !m.live(e) {
		// Expired entries are not deleted here to avoid a lock upgrade;
		// the cleanup goroutine handles deletion.
		return nil, ErrNotFound
	}
	if e.isList {
		return nil, ErrWrongType
	}
	return append([]byte(nil), e.value...), nil
}

func (m *Memory) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	e, found := m.entries[key]
	if found && m.live(e) {
		if e.isList {
			return 0, ErrWrongType
		}
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("store: value of %q is not an integer", key)
		}
		n = parsed
	} else {
		e = entry{}
	}
	n++
	e.value = strconv.AppendInt(nil, n, 10)
	m.entries[key] = e
	return n, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, found := m.entries[key]
	return found && m.live(e), nil
}

func (m *Memory) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, found := m.entries[key]
	if !found || !m.live(e) {
		e = entry{isList: true}
	} else if !e.isList {
		return 0, ErrWrongType
	}
	e.list = append(e.list, values...)
	m.entries[key] = e
	return int64(len(e.list)), nil
}

func (m *Memory) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, found := m.entries[key]
	if !found || !m.live(e) {
		return []string{}, nil
	}
	if !e.isList {
		return nil, ErrWrongType
	}

	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return []string{}, nil
	}
	return append([]string(nil), e.list[start:stop+1]...), nil
}

func (m *Memory) FlushDB(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	return nil
}

// Close terminates the cleanup goroutine. The store remains usable
// afterwards; expired entries are then only reaped lazily on read.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
	})
	return nil
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.deleteExpired()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Memory) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, key)
		}
	}
}
