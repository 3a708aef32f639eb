package trace

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spounge-ai/rediskit/pkg/store"
)

// Replay writes the recorded call history of the named operation to w: a
// header with the call count, then one "<name>(<input>) -> <output>" line
// per recorded pair in call order. A counter that does not exist reads as
// zero calls. A nil store is a silent no-op, and a nil writer defaults to
// standard output.
func Replay(ctx context.Context, w io.Writer, kv store.Store, name string) error {
	if kv == nil {
		return nil
	}
	if w == nil {
		w = os.Stdout
	}

	var count int64
	exists, err := kv.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("trace: check counter %q: %w", name, err)
	}
	if exists {
		raw, err := kv.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("trace: read counter %q: %w", name, err)
		}
		count, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("trace: counter %q is not an integer: %w", name, err)
		}
	}
	fmt.Fprintf(w, "%s was called %d times:\n", name, count)

	inputs, err := kv.LRange(ctx, name+":inputs", 0, -1)
	if err != nil {
		return fmt.Errorf("trace: read inputs for %q: %w", name, err)
	}
	outputs, err := kv.LRange(ctx, name+":outputs", 0, -1)
	if err != nil {
		return fmt.Errorf("trace: read outputs for %q: %w", name, err)
	}

	n := len(inputs)
	if len(outputs) < n {
		n = len(outputs)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%s(%s) -> %s\n", name, inputs[i], outputs[i])
	}
	return nil
}
