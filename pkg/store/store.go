// Package store abstracts the key-value primitives the rest of the module
// is built on: plain set/get, atomic counters, append-only lists, and
// expiring entries. Two backends are provided, one backed by Redis and one
// fully in-process, so components can swap a real store for a local one in
// tests without changing code.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("store: key not found")
	// ErrWrongType is returned when an operation targets a key holding a
	// different kind of value, e.g. GET on a list.
	ErrWrongType = errors.New("store: operation against a key holding the wrong kind of value")
)

// Store is a thin facade over a key-value database. Counters, lists, and
// scalar values share a single keyspace, as they do in Redis. Atomicity of
// each call is the backend's responsibility; no locking, retry, or timeout
// layer is added on top.
type Store interface {
	// Set stores value under key with no expiration, overwriting any
	// existing entry (and clearing any TTL it had).
	Set(ctx context.Context, key string, value []byte) error

	// SetEx stores value under key with the given time-to-live. Once the
	// TTL elapses the key reads as absent.
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Incr atomically increments the integer stored at key, creating it
	// at zero first if absent, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Exists reports whether key currently holds a live entry.
	Exists(ctx context.Context, key string) (bool, error)

	// RPush appends values to the list stored at key, creating the list
	// if absent, and returns the resulting length.
	RPush(ctx context.Context, key string, values ...string) (int64, error)

	// LRange returns list elements between start and stop inclusive.
	// Negative indices count from the end, so LRange(key, 0, -1) returns
	// the whole list. An absent key yields an empty slice.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// FlushDB removes every key in the store's namespace. It does not
	// return until the namespace is empty.
	FlushDB(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}
