package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Value is an opaque structured payload: any JSON value. It is validated
// only for being representable and is stored and returned byte for byte in
// compact form.
type Value struct {
	raw json.RawMessage
}

var errInvalidJSON = errors.New("value is not valid JSON")

// NewValue marshals v into a Value.
func NewValue(v any) (Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("marshal value: %w", err)
	}
	return RawValue(b)
}

// MustValue is NewValue for literals known to be representable.
func MustValue(v any) Value {
	val, err := NewValue(v)
	if err != nil {
		panic(err)
	}
	return val
}

// RawValue wraps already encoded JSON. JSON null yields the zero Value.
func RawValue(b []byte) (Value, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return Value{}, nil
	}
	if !json.Valid(b) {
		return Value{}, errInvalidJSON
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return Value{}, err
	}
	return Value{raw: buf.Bytes()}, nil
}

// IsZero reports whether the value is absent.
func (v Value) IsZero() bool {
	return len(v.raw) == 0
}

// Bytes returns the compact JSON encoding, or nil for an absent value.
func (v Value) Bytes() []byte {
	return v.raw
}

// String returns the compact JSON encoding, or "" for an absent value.
func (v Value) String() string {
	return string(v.raw)
}

// Decode unmarshals the value into dst.
func (v Value) Decode(dst any) error {
	if v.IsZero() {
		return json.Unmarshal([]byte("null"), dst)
	}
	return json.Unmarshal(v.raw, dst)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	val, err := RawValue(b)
	if err != nil {
		return err
	}
	*v = val
	return nil
}
