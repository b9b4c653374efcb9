package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds a T that is either present or absent. The zero Value is absent.
// Absent values are dropped by encoding/json when the field is tagged omitzero,
// so a stored document never carries a null placeholder for them.
type Value[T any] struct {
	v  T
	ok bool
}

// Some returns a present value.
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None returns an absent value.
func None[T any]() Value[T] {
	return Value[T]{}
}

func (o Value[T]) IsSome() bool { return o.ok }

func (o Value[T]) IsZero() bool { return !o.ok }

// Get returns the value and whether it is present.
func (o Value[T]) Get() (T, bool) {
	return o.v, o.ok
}

// OrElse returns the value, or fallback when absent.
func (o Value[T]) OrElse(fallback T) T {
	if o.ok {
		return o.v
	}
	return fallback
}

// Ptr returns a pointer to a copy of the value, nil when absent.
func (o Value[T]) Ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.v
	return &v
}

func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON treats an explicit null the same as a missing key.
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Value[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
