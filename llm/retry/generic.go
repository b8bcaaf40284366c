package retry

import "context"

// DoWithResultTyped wraps Retryer.DoWithResult for a concrete result type.
//
//	completion, err := retry.DoWithResultTyped[*llm.Completion](r, ctx, func() (*llm.Completion, error) {
//	    return provider.Invoke(ctx, req)
//	})
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func() (T, error)) (T, error) {
	result, err := r.DoWithResult(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
