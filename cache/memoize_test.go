package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func powerFunc(t *testing.T, s *Store, calls *int) *Func[int] {
	t.Helper()
	sig := NewSignature("mathx.Power", Required("base"), Optional("exp", 2))
	f, err := Wrap(s, sig, func(_ context.Context, b Binding) (int, error) {
		*calls++
		base, _ := b.Get("base")
		exp, _ := b.Get("exp")
		out := 1
		for range exp.(int) {
			out *= base.(int)
		}
		return out, nil
	})
	require.NoError(t, err)
	return f
}

func TestFunc_EquivalentCallsShareResult(t *testing.T) {
	ctx := context.Background()
	calls := 0
	f := powerFunc(t, newTestStore(t), &calls)

	got, err := f.Call(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 9, got)

	got, err = f.CallWith(ctx, nil, map[string]any{"base": 3})
	require.NoError(t, err)
	assert.Equal(t, 9, got)

	got, err = f.Call(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 9, got)

	assert.Equal(t, 1, calls)

	got, err = f.Call(ctx, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 27, got)
	assert.Equal(t, 2, calls)
}

func TestFunc_Forget(t *testing.T) {
	ctx := context.Background()
	calls := 0
	f := powerFunc(t, newTestStore(t), &calls)

	_, err := f.Call(ctx, 2)
	require.NoError(t, err)

	it, err := f.Item(ctx, 2)
	require.NoError(t, err)
	require.True(t, it.Exists())

	require.NoError(t, f.Forget(ctx, 2))
	assert.False(t, it.Exists())

	_, err = f.Call(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFunc_BadArguments(t *testing.T) {
	calls := 0
	f := powerFunc(t, newTestStore(t), &calls)

	_, err := f.Call(context.Background())
	assert.ErrorIs(t, err, ErrInvalidCall)
	_, err = f.CallWith(context.Background(), []any{1}, map[string]any{"nope": 1})
	assert.ErrorIs(t, err, ErrInvalidCall)
	assert.Zero(t, calls)
}

func TestFunc_NilStore(t *testing.T) {
	ctx := context.Background()
	calls := 0
	f := powerFunc(t, nil, &calls)

	for range 2 {
		got, err := f.Call(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 4, got)
	}
	assert.Equal(t, 2, calls)

	_, err := f.Item(ctx, 2)
	assert.ErrorIs(t, err, ErrNilStore)
}

func TestWrap_Invalid(t *testing.T) {
	s := newTestStore(t)
	fn := func(context.Context, Binding) (int, error) { return 0, nil }

	_, err := Wrap(s, NewSignature(""), fn)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = Wrap[int](s, NewSignature("pkg.f"), nil)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestMemoize(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	calls := 0
	upper := Memoize(s, "strings.Upper", func(_ context.Context, in string) (string, error) {
		calls++
		return in + "!", nil
	})

	for range 3 {
		got, err := upper(ctx, "hi")
		require.NoError(t, err)
		assert.Equal(t, "hi!", got)
	}
	assert.Equal(t, 1, calls)

	// Memoize keys calls like Wrap with a single "arg" parameter.
	it, err := s.ItemForCall(ctx, NewSignature("strings.Upper", Required("arg")), []any{"hi"}, nil)
	require.NoError(t, err)
	assert.True(t, it.Exists())
}
