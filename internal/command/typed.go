package command

import (
	"context"
	"fmt"
)

// Typed adapts an action over a concrete parameter type. A nil parameter is
// passed as T's zero value; any other type mismatch faults the run with
// ErrParamType.
func Typed[T any](fn func(ctx context.Context, param T) error) Action {
	return func(ctx context.Context, param any) error {
		var v T
		if param != nil {
			p, ok := param.(T)
			if !ok {
				return fmt.Errorf("%w: want %T, got %T", ErrParamType, v, param)
			}
			v = p
		}
		return fn(ctx, v)
	}
}
