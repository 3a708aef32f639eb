// Package trace instruments operations with store-backed call counters and
// call histories, and can replay recorded calls for diagnostics.
//
// Per instrumented operation the store holds three keys: the operation name
// itself (an atomic call counter), "<name>:inputs", and "<name>:outputs"
// (index-aligned lists of recorded arguments and results).
package trace

import (
	"context"
	"fmt"
	"strings"

	"github.com/spounge-ai/rediskit/pkg/store"
)

// Op is an instrumentable operation: it takes positional arguments and
// produces a single string result.
type Op func(ctx context.Context, args ...any) (string, error)

// Middleware wraps an Op with additional behavior.
type Middleware func(next Op) Op

// Chain applies middlewares to op in order, so the last middleware given is
// the first to run when the resulting Op is called.
func Chain(op Op, mws ...Middleware) Op {
	for _, mw := range mws {
		op = mw(op)
	}
	return op
}

// CountCalls increments the counter stored under name on every invocation.
// A nil store makes the middleware a pass-through, which lets instrumented
// components run against a stub during testing.
func CountCalls(kv store.Store, name string) Middleware {
	return func(next Op) Op {
		if kv == nil {
			return next
		}
		return func(ctx context.Context, args ...any) (string, error) {
			if _, err := kv.Incr(ctx, name); err != nil {
				return "", fmt.Errorf("trace: increment %q: %w", name, err)
			}
			return next(ctx, args...)
		}
	}
}

// RecordHistory appends the formatted arguments to "<name>:inputs" before
// the operation runs and the result to "<name>:outputs" after it returns.
// A failed operation leaves no output entry. A nil store makes the
// middleware a pass-through.
func RecordHistory(kv store.Store, name string) Middleware {
	inKey := name + ":inputs"
	outKey := name + ":outputs"
	return func(next Op) Op {
		if kv == nil {
			return next
		}
		return func(ctx context.Context, args ...any) (string, error) {
			if _, err := kv.RPush(ctx, inKey, formatArgs(args)); err != nil {
				return "", fmt.Errorf("trace: record input for %q: %w", name, err)
			}
			result, err := next(ctx, args...)
			if err != nil {
				return "", err
			}
			if _, err := kv.RPush(ctx, outKey, result); err != nil {
				return "", fmt.Errorf("trace: record output for %q: %w", name, err)
			}
			return result, nil
		}
	}
}

// Instrument wraps op with the full instrumentation stack for name. On each
// call the counter increments first, then the input is recorded, the
// operation runs, and finally the output is recorded.
func Instrument(kv store.Store, name string, op Op) Op {
	return Chain(op, RecordHistory(kv, name), CountCalls(kv, name))
}

// formatArgs renders positional arguments in their textual form. Byte
// slices are rendered as text rather than as numeric slices.
func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if b, ok := arg.([]byte); ok {
			parts[i] = string(b)
			continue
		}
		parts[i] = fmt.Sprint(arg)
	}
	return strings.Join(parts, ", ")
}
