package cache

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
)

// Param describes one declared parameter of a cached function.
type Param struct {
	Name       string
	Default    any
	HasDefault bool
}

// Required declares a parameter without a default.
func Required(name string) Param {
	return Param{Name: name}
}

// Optional declares a parameter with a default value.
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// Signature describes a cached function: its qualified identity and its
// declared parameters. Go cannot recover parameter names or defaults from a
// func value, so callers declare them.
type Signature struct {
	// Name is the fully qualified function identity, e.g. "pkg.Func".
	Name string

	// Params are the declared parameters in positional order.
	Params []Param

	// Variadic, when set, names a trailing parameter that collects surplus
	// positional arguments as a []any.
	Variadic string
}

// NewSignature builds a Signature from a name and its parameters.
func NewSignature(name string, params ...Param) Signature {
	return Signature{Name: name, Params: params}
}

// Validate checks the signature is well formed.
func (s Signature) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: function name is empty", ErrInvalidSignature)
	}
	seen := make(map[string]bool, len(s.Params)+1)
	optional := false
	for _, p := range s.Params {
		if p.Name == "" {
			return fmt.Errorf("%w: %s: parameter name is empty", ErrInvalidSignature, s.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %s: duplicate parameter %q", ErrInvalidSignature, s.Name, p.Name)
		}
		seen[p.Name] = true
		if p.HasDefault {
			optional = true
		} else if optional {
			return fmt.Errorf("%w: %s: required parameter %q follows an optional one",
				ErrInvalidSignature, s.Name, p.Name)
		}
	}
	if s.Variadic != "" && seen[s.Variadic] {
		return fmt.Errorf("%w: %s: duplicate parameter %q", ErrInvalidSignature, s.Name, s.Variadic)
	}
	return nil
}

// Bind matches positional and keyword arguments against the signature and
// fills unsupplied parameters with their defaults. The result is independent
// of how the caller passed each argument, so f(1) and f(x=1) bind equally.
func (s Signature) Bind(args []any, kwargs map[string]any) (Binding, error) {
	if err := s.Validate(); err != nil {
		return Binding{}, err
	}

	n := len(s.Params)
	if len(args) > n && s.Variadic == "" {
		return Binding{}, fmt.Errorf("%w: %s takes %d positional arguments but %d were given",
			ErrInvalidCall, s.Name, n, len(args))
	}

	values := make([]any, n)
	bound := make([]bool, n)
	for i := 0; i < n && i < len(args); i++ {
		values[i] = args[i]
		bound[i] = true
	}

	index := make(map[string]int, n)
	for i, p := range s.Params {
		index[p.Name] = i
	}
	for name, v := range kwargs {
		i, ok := index[name]
		if !ok {
			return Binding{}, fmt.Errorf("%w: %s got an unexpected keyword argument %q",
				ErrInvalidCall, s.Name, name)
		}
		if bound[i] {
			return Binding{}, fmt.Errorf("%w: %s got multiple values for argument %q",
				ErrInvalidCall, s.Name, name)
		}
		values[i] = v
		bound[i] = true
	}

	for i, p := range s.Params {
		if bound[i] {
			continue
		}
		if !p.HasDefault {
			return Binding{}, fmt.Errorf("%w: %s missing required argument %q",
				ErrInvalidCall, s.Name, p.Name)
		}
		values[i] = p.Default
	}

	names := make([]string, n, n+1)
	for i, p := range s.Params {
		names[i] = p.Name
	}
	if s.Variadic != "" {
		extra := []any{}
		if len(args) > n {
			extra = append(extra, args[n:]...)
		}
		names = append(names, s.Variadic)
		values = append(values, extra)
	}

	return Binding{names: names, values: values}, nil
}

// Binding is the ordered result of binding a call against a Signature. Every
// declared parameter is present, in declaration order.
type Binding struct {
	names  []string
	values []any
}

// Len returns the number of bound parameters.
func (b Binding) Len() int { return len(b.names) }

// Name returns the name of the i-th parameter.
func (b Binding) Name(i int) string { return b.names[i] }

// Value returns the value of the i-th parameter.
func (b Binding) Value(i int) any { return b.values[i] }

// Get returns the value bound to name.
func (b Binding) Get(name string) (any, bool) {
	for i, n := range b.names {
		if n == name {
			return b.values[i], true
		}
	}
	return nil, false
}

// Args returns the bound values in declaration order.
func (b Binding) Args() []any {
	return append([]any(nil), b.values...)
}

func (b Binding) writeCanonical(buf *bytes.Buffer, depth int) error {
	buf.WriteByte('(')
	for i, name := range b.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(name))
		buf.WriteByte('=')
		if err := encodeKey(buf, reflect.ValueOf(b.values[i]), depth+1); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}
	buf.WriteByte(')')
	return nil
}

// CallKey is the canonical key of a function call: its qualified identity
// and its normalized argument binding.
type CallKey struct {
	Function string
	Args     Binding
}

func (k CallKey) writeCanonical(buf *bytes.Buffer, depth int) error {
	buf.WriteString("call:")
	buf.WriteString(strconv.Quote(k.Function))
	return k.Args.writeCanonical(buf, depth+1)
}
