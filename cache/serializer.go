package cache

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Serializer encodes and decodes cached values.
//
// Contract:
// - Round trip: Unmarshal(Marshal(v), &out) must leave out equal to v.
// - Target: Unmarshal receives a non-nil pointer.
// - Concurrency: implementations must be safe for concurrent use.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// GobSerializer is the default general-purpose binary serializer.
//
// Values stored behind interface types (for example []any holding structs)
// must have their concrete types registered with gob.Register.
type GobSerializer struct{}

// Marshal encodes v with encoding/gob.
func (GobSerializer) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v.
func (GobSerializer) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// JSONSerializer stores values as JSON, which stays readable across program
// versions and by other tools.
type JSONSerializer struct{}

// Marshal encodes v as JSON.
func (JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ZstdSerializer compresses the output of another serializer with zstd.
type ZstdSerializer struct {
	inner Serializer
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewZstdSerializer wraps inner (GobSerializer when nil) with zstd
// compression. EncodeAll and DecodeAll are used, so the returned value is
// safe for concurrent use.
func NewZstdSerializer(inner Serializer, opts ...zstd.EOption) (*ZstdSerializer, error) {
	if inner == nil {
		inner = GobSerializer{}
	}
	opts = append([]zstd.EOption{zstd.WithEncoderConcurrency(1)}, opts...)
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ZstdSerializer{inner: inner, enc: enc, dec: dec}, nil
}

// Marshal encodes v with the inner serializer and compresses the result.
func (z *ZstdSerializer) Marshal(v any) ([]byte, error) {
	raw, err := z.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Unmarshal decompresses data and decodes it with the inner serializer.
func (z *ZstdSerializer) Unmarshal(data []byte, v any) error {
	raw, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decode: %w", err)
	}
	return z.inner.Unmarshal(raw, v)
}

var (
	_ Serializer = GobSerializer{}
	_ Serializer = JSONSerializer{}
	_ Serializer = (*ZstdSerializer)(nil)
)
