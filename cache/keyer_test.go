package cache

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{32}$`)

func mustDigest(t *testing.T, k Keyer, key any) string {
	t.Helper()
	d, err := k.Digest(key)
	require.NoError(t, err)
	return d
}

func TestDefaultKeyer_Format(t *testing.T) {
	d := mustDigest(t, NewDefaultKeyer(""), "sample")
	assert.Regexp(t, hexDigest, d)
	assert.Len(t, d, DigestSize*2)
}

func TestDefaultKeyer_Deterministic(t *testing.T) {
	k := NewDefaultKeyer("")

	tests := []struct {
		name string
		a, b any
	}{
		{"map insertion order", map[string]any{"b": 2, "a": 1, "c": 3}, map[string]any{"c": 3, "a": 1, "b": 2}},
		{"integer widths", int8(7), uint64(7)},
		{"int and int64", []any{1, 2}, []any{int64(1), int64(2)}},
		{"pointer and value", ptr("x"), "x"},
		{"nil pointer and nil", (*int)(nil), nil},
		{"array and slice", [2]string{"a", "b"}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, mustDigest(t, k, tt.a), mustDigest(t, k, tt.b))
		})
	}
}

func TestDefaultKeyer_Distinguishes(t *testing.T) {
	k := NewDefaultKeyer("")

	tests := []struct {
		name string
		a, b any
	}{
		{"values", "sample", "other"},
		{"int and float", 1, 1.0},
		{"int and string", 1, "1"},
		{"list order", []int{1, 2, 3}, []int{3, 2, 1}},
		{"bytes and string", []byte("ab"), "ab"},
		{"nested", map[string]any{"a": []int{1}}, map[string]any{"a": []int{2}}},
		{"struct types", pointA{X: 1, Y: 2}, pointB{X: 1, Y: 2}},
		{"empty list and nil", []int{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, mustDigest(t, k, tt.a), mustDigest(t, k, tt.b))
		})
	}
}

func TestDefaultKeyer_SourceSalts(t *testing.T) {
	plain := mustDigest(t, NewDefaultKeyer(""), "sample")
	salted := mustDigest(t, NewDefaultKeyer("main.go"), "sample")
	other := mustDigest(t, NewDefaultKeyer("other.go"), "sample")

	assert.NotEqual(t, plain, salted)
	assert.NotEqual(t, salted, other)
	assert.Equal(t, salted, mustDigest(t, NewDefaultKeyer("main.go"), "sample"))
	assert.Equal(t, "main.go", NewDefaultKeyer("main.go").Source())
}

type pointA struct{ X, Y int }
type pointB struct{ X, Y int }

type withHidden struct {
	Name  string
	cache map[string]int
}

type withSkipped struct {
	Name  string
	cache map[string]int `tempcache:"-"`
}

type versionKey struct{ major, minor int }

func (v versionKey) MarshalCacheKey() ([]byte, error) {
	return []byte{byte(v.major), '.', byte(v.minor)}, nil
}

type failingKey struct{}

func (failingKey) MarshalCacheKey() ([]byte, error) {
	return nil, errors.New("no stable form")
}

type node struct {
	Next *node
}

func ptr[T any](v T) *T { return &v }

func TestDefaultKeyer_Structs(t *testing.T) {
	k := NewDefaultKeyer("")

	_, err := k.Digest(withHidden{Name: "a"})
	require.ErrorIs(t, err, ErrSerialization)

	a := mustDigest(t, k, withSkipped{Name: "a", cache: map[string]int{"x": 1}})
	b := mustDigest(t, k, withSkipped{Name: "a"})
	assert.Equal(t, a, b, "tagged fields are excluded")

	assert.NotEqual(t,
		mustDigest(t, k, versionKey{1, 2}),
		mustDigest(t, k, versionKey{1, 3}))
}

func TestDefaultKeyer_TextMarshaler(t *testing.T) {
	k := NewDefaultKeyer("")
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, mustDigest(t, k, t0), mustDigest(t, k, t0.Add(0)))
	assert.NotEqual(t, mustDigest(t, k, t0), mustDigest(t, k, t0.Add(time.Second)))
}

func TestDefaultKeyer_Unsupported(t *testing.T) {
	k := NewDefaultKeyer("")
	cyclic := &node{}
	cyclic.Next = cyclic

	tests := []struct {
		name string
		key  any
	}{
		{"func", func() {}},
		{"chan", make(chan int)},
		{"nested func", map[string]any{"f": func() {}}},
		{"cycle", cyclic},
		{"marshaler error", failingKey{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Digest(tt.key)
			assert.ErrorIs(t, err, ErrSerialization)
		})
	}
}

func TestDigestCall_PositionalAndKeywordMatch(t *testing.T) {
	k := NewDefaultKeyer("")
	sig := NewSignature("pkg.f", Required("x"), Optional("y", 10))

	positional, err := DigestCall(k, sig, []any{1}, nil)
	require.NoError(t, err)
	keyword, err := DigestCall(k, sig, nil, map[string]any{"x": 1})
	require.NoError(t, err)
	explicitDefault, err := DigestCall(k, sig, []any{1, 10}, nil)
	require.NoError(t, err)

	assert.Equal(t, positional, keyword)
	assert.Equal(t, positional, explicitDefault)

	other, err := DigestCall(k, sig, []any{1, 11}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, positional, other)
}

func TestDigestCall_FunctionIdentity(t *testing.T) {
	k := NewDefaultKeyer("")

	f, err := DigestCall(k, NewSignature("pkg.f", Required("x")), []any{1}, nil)
	require.NoError(t, err)
	g, err := DigestCall(k, NewSignature("pkg.g", Required("x")), []any{1}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, f, g)
}

func TestDigestCall_DiffersFromPlainKey(t *testing.T) {
	k := NewDefaultKeyer("")

	call, err := DigestCall(k, NewSignature("pkg.f", Required("x")), []any{"sample"}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, call, mustDigest(t, k, "sample"))
	assert.NotEqual(t, call, mustDigest(t, k, []any{"pkg.f", "sample"}))
}

func TestDigestCall_BindErrorPropagates(t *testing.T) {
	_, err := DigestCall(NewDefaultKeyer(""), NewSignature("pkg.f", Required("x")), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCall)
}

func TestDigestCall_ParameterNamesAreDelimited(t *testing.T) {
	k := NewDefaultKeyer("")

	two, err := DigestCall(k, NewSignature("pkg.F", Required("a"), Required("b")), []any{1, 2}, nil)
	require.NoError(t, err)
	one, err := DigestCall(k, NewSignature("pkg.F", Required("a=1,b")), []any{2}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, two, one)

	paren, err := DigestCall(k, NewSignature("pkg.F", Required("a"), Required("b)(c")), []any{1, 2}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, two, paren)
}
