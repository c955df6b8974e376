package cache

import (
	"context"
	"fmt"
)

// Func is a function whose results are cached in a Store, keyed by its
// signature name and bound arguments.
type Func[T any] struct {
	store *Store
	sig   Signature
	fn    func(context.Context, Binding) (T, error)
}

// Wrap returns a cached version of fn. Arguments are bound against sig before
// digesting, so positional and keyword spellings of the same call share one
// item. A nil store yields a Func that always calls fn.
func Wrap[T any](s *Store, sig Signature, fn func(context.Context, Binding) (T, error)) (*Func[T], error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %s: function is nil", ErrInvalidSignature, sig.Name)
	}
	return &Func[T]{store: s, sig: sig, fn: fn}, nil
}

// Signature returns the declared signature.
func (f *Func[T]) Signature() Signature {
	return f.sig
}

// Call invokes the function with positional arguments.
func (f *Func[T]) Call(ctx context.Context, args ...any) (T, error) {
	return f.CallWith(ctx, args, nil)
}

// CallWith invokes the function with positional and keyword arguments.
func (f *Func[T]) CallWith(ctx context.Context, args []any, kwargs map[string]any) (T, error) {
	binding, err := f.sig.Bind(args, kwargs)
	if err != nil {
		var zero T
		return zero, err
	}
	compute := func(ctx context.Context) (T, error) {
		return f.fn(ctx, binding)
	}
	return GetOrCompute(ctx, f.store, CallKey{Function: f.sig.Name, Args: binding}, compute)
}

// Item returns the item that caches the call with args.
func (f *Func[T]) Item(ctx context.Context, args ...any) (*Item, error) {
	if f.store == nil {
		return nil, ErrNilStore
	}
	return f.store.ItemForCall(ctx, f.sig, args, nil)
}

// Forget deletes the cached result of the call with args.
func (f *Func[T]) Forget(ctx context.Context, args ...any) error {
	it, err := f.Item(ctx, args...)
	if err != nil {
		return err
	}
	return it.Delete(ctx)
}

// Memoize caches a single-argument function under name. The argument is
// bound as parameter "arg", so Memoize and an equivalent Wrap share items.
func Memoize[A, T any](s *Store, name string, fn func(context.Context, A) (T, error)) func(context.Context, A) (T, error) {
	sig := NewSignature(name, Required("arg"))
	return func(ctx context.Context, arg A) (T, error) {
		binding, err := sig.Bind([]any{arg}, nil)
		if err != nil {
			var zero T
			return zero, err
		}
		return GetOrCompute(ctx, s, CallKey{Function: name, Args: binding}, func(ctx context.Context) (T, error) {
			return fn(ctx, arg)
		})
	}
}
