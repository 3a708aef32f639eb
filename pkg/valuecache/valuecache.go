// Package valuecache stores opaque scalar values under generated unique
// identifiers, instrumenting every write with a call counter and a call
// history kept in the same store.
package valuecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/spounge-ai/rediskit/pkg/store"
	"github.com/spounge-ai/rediskit/pkg/trace"
)

// OpStore is the instrumented name of the Store operation. It doubles as
// the store key of the operation's call counter; the associated histories
// live under OpStore + ":inputs" and OpStore + ":outputs".
const OpStore = "Cache.Store"

// ErrUnsupportedType is returned by Store for values that are not text,
// bytes, or numeric scalars.
var ErrUnsupportedType = errors.New("valuecache: unsupported value type")

// Cache persists values under random identifiers with usage
// instrumentation. On construction it flushes its entire store namespace,
// so each instance assumes exclusive ownership of the target database.
type Cache struct {
	kv      store.Store
	logger  *slog.Logger
	storeOp trace.Op
}

// Option is a functional option for configuring a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a Cache on kv. The store namespace is cleared synchronously
// before the cache is ready; any previously stored keys are gone once New
// returns.
func New(ctx context.Context, kv store.Store, opts ...Option) (*Cache, error) {
	c := &Cache{
		kv:     kv,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if kv != nil {
		if err := kv.FlushDB(ctx); err != nil {
			return nil, fmt.Errorf("valuecache: flush namespace: %w", err)
		}
		c.logger.DebugContext(ctx, "value cache namespace flushed")
	}

	c.storeOp = trace.Instrument(kv, OpStore, c.rawStore)

	return c, nil
}

// Store persists value under a fresh random identifier and returns the
// identifier. Accepted value types are string, []byte, and integer or
// float scalars; anything else fails with ErrUnsupportedType before any
// instrumentation fires. Each successful call increments the OpStore
// counter and appends to the input and output histories.
func (c *Cache) Store(ctx context.Context, value any) (string, error) {
	if _, err := encode(value); err != nil {
		return "", err
	}
	return c.storeOp(ctx, value)
}

func (c *Cache) rawStore(ctx context.Context, args ...any) (string, error) {
	raw, err := encode(args[0])
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := c.kv.Set(ctx, id, raw); err != nil {
		return "", fmt.Errorf("valuecache: store %q: %w", id, err)
	}
	return id, nil
}

// Get returns the raw bytes stored under key. An absent key yields
// (nil, nil) rather than an error, mirroring the store's null reply.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return raw, err
}

// GetString returns the value stored under key decoded as UTF-8 text.
func (c *Cache) GetString(ctx context.Context, key string) (string, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GetInt returns the value stored under key parsed as a base-10 integer.
// Parsing the null reply of an absent key fails, as does any non-numeric
// value.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("valuecache: value of %q is not an integer: %w", key, err)
	}
	return n, nil
}

// GetAs reads the raw bytes under key and applies fn to them. The
// transform also runs on the nil reply of an absent key; transforms that
// cannot take nil input should check for it.
func GetAs[T any](ctx context.Context, c *Cache, key string, fn func([]byte) (T, error)) (T, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(raw)
}

// Replay writes the recorded Store call history to w.
func (c *Cache) Replay(ctx context.Context, w io.Writer) error {
	return trace.Replay(ctx, w, c.kv, OpStore)
}

func encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
}
