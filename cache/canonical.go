package cache

import (
	"bytes"
	"encoding"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// KeyMarshaler is implemented by key types that supply their own stable
// encoding. Equal keys must return identical bytes.
type KeyMarshaler interface {
	MarshalCacheKey() ([]byte, error)
}

// maxKeyDepth bounds recursion so cyclic values fail instead of looping.
const maxKeyDepth = 64

// keyTag is the struct tag consulted during key encoding. A value of "-"
// excludes the field.
const keyTag = "tempcache"

var (
	keyMarshalerType    = reflect.TypeFor[KeyMarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	canonicalWriterType = reflect.TypeFor[canonicalWriter]()
)

// canonicalWriter is implemented by package types with a fixed key layout.
type canonicalWriter interface {
	writeCanonical(buf *bytes.Buffer, depth int) error
}

// canonicalize produces a deterministic byte representation of v.
//
// Equal values always produce equal bytes: map entries are sorted by their
// encoded key, integers of any width share one decimal form, and struct
// fields are written in declaration order.
func canonicalize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeKey(&buf, reflect.ValueOf(v), 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeKey(buf *bytes.Buffer, v reflect.Value, depth int) error {
	if depth > maxKeyDepth {
		return fmt.Errorf("%w: key nested deeper than %d levels", ErrSerialization, maxKeyDepth)
	}
	if !v.IsValid() {
		buf.WriteString("null")
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
	}

	if v.CanInterface() {
		if handled, err := encodeCustom(buf, v, depth); handled {
			return err
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return encodeKey(buf, v.Elem(), depth+1)

	case reflect.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		writeFloat(buf, v.Float(), v.Type().Bits())

	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		bits := v.Type().Bits() / 2
		buf.WriteString("complex(")
		writeFloat(buf, real(c), bits)
		buf.WriteByte(',')
		writeFloat(buf, imag(c), bits)
		buf.WriteByte(')')

	case reflect.String:
		buf.WriteString(strconv.Quote(v.String()))

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			buf.WriteString("0x")
			buf.WriteString(hex.EncodeToString(v.Bytes()))
			return nil
		}
		return encodeList(buf, v, depth)

	case reflect.Array:
		return encodeList(buf, v, depth)

	case reflect.Map:
		return encodeMap(buf, v, depth)

	case reflect.Struct:
		return encodeStruct(buf, v, depth)

	default:
		return fmt.Errorf("%w: unsupported key type %s", ErrSerialization, v.Type())
	}
	return nil
}

// encodeCustom handles types that define their own key encoding.
func encodeCustom(buf *bytes.Buffer, v reflect.Value, depth int) (bool, error) {
	t := v.Type()
	switch {
	case t.Implements(canonicalWriterType):
		w, _ := v.Interface().(canonicalWriter) //nolint:errcheck // guarded by Implements
		return true, w.writeCanonical(buf, depth)

	case t.Implements(keyMarshalerType):
		m, _ := v.Interface().(KeyMarshaler) //nolint:errcheck // guarded by Implements
		b, err := m.MarshalCacheKey()
		if err != nil {
			return true, fmt.Errorf("%w: %s: %w", ErrSerialization, t, err)
		}
		writeTagged(buf, t, b)
		return true, nil

	case t.Implements(textMarshalerType):
		m, _ := v.Interface().(encoding.TextMarshaler) //nolint:errcheck // guarded by Implements
		b, err := m.MarshalText()
		if err != nil {
			return true, fmt.Errorf("%w: %s: %w", ErrSerialization, t, err)
		}
		writeTagged(buf, t, b)
		return true, nil
	}
	return false, nil
}

func encodeList(buf *bytes.Buffer, v reflect.Value, depth int) error {
	buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeKey(buf, v.Index(i), depth+1); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeMap(buf *bytes.Buffer, v reflect.Value, depth int) error {
	type entry struct {
		key, value []byte
	}

	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var kb, vb bytes.Buffer
		if err := encodeKey(&kb, iter.Key(), depth+1); err != nil {
			return err
		}
		if err := encodeKey(&vb, iter.Value(), depth+1); err != nil {
			return err
		}
		entries = append(entries, entry{key: kb.Bytes(), value: vb.Bytes()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(e.key)
		buf.WriteByte(':')
		buf.Write(e.value)
	}
	buf.WriteByte('}')
	return nil
}

func encodeStruct(buf *bytes.Buffer, v reflect.Value, depth int) error {
	t := v.Type()
	buf.WriteString(typeName(t))
	buf.WriteByte('{')
	written := 0
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get(keyTag) == "-" {
			continue
		}
		// Skipping unexported state would let distinct values share a key.
		if !f.IsExported() {
			return fmt.Errorf("%w: %s has unexported field %q (tag it `%s:\"-\"` to exclude)",
				ErrSerialization, t, f.Name, keyTag)
		}
		if written > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(f.Name)
		buf.WriteByte(':')
		if err := encodeKey(buf, v.Field(i), depth+1); err != nil {
			return err
		}
		written++
	}
	buf.WriteByte('}')
	return nil
}

// writeFloat renders f so that it never collides with an integer encoding.
func writeFloat(buf *bytes.Buffer, f float64, bits int) {
	switch {
	case math.IsNaN(f):
		buf.WriteString("NaN")
		return
	case math.IsInf(f, 1):
		buf.WriteString("+Inf")
		return
	case math.IsInf(f, -1):
		buf.WriteString("-Inf")
		return
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	buf.WriteString(s)
	if !strings.ContainsAny(s, ".e") {
		buf.WriteString(".0")
	}
}

func writeTagged(buf *bytes.Buffer, t reflect.Type, b []byte) {
	buf.WriteString(typeName(t))
	buf.WriteString(strconv.Quote(string(b)))
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
