package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errNullNotAllowed = errors.New("null is not allowed for this field")

// Optional is a field an update may leave out. When it is absent from the
// JSON the column is left alone. JSON null is rejected: the column cannot be
// cleared.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it was supplied.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsZero reports whether the field was left out. encoding/json calls it for
// the omitzero tag option.
func (o Optional[T]) IsZero() bool {
	return !o.set
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return errNullNotAllowed
	}
	if err := json.Unmarshal(data, &o.value); err != nil {
		return err
	}
	o.set = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// Nullable is a field an update may leave out, set to a value, or clear with
// JSON null. All three cases stay distinguishable after decoding.
type Nullable[T any] struct {
	value T
	set   bool
	null  bool
}

// Value returns a Nullable holding v.
func Value[T any](v T) Nullable[T] {
	return Nullable[T]{value: v, set: true}
}

// Null returns a Nullable that clears the column.
func Null[T any]() Nullable[T] {
	return Nullable[T]{set: true, null: true}
}

// IsSet reports whether the field was supplied, either as a value or as null.
func (n Nullable[T]) IsSet() bool {
	return n.set
}

// Ptr returns nil when the field was cleared, or a pointer to the value.
// It is only meaningful when IsSet is true.
func (n Nullable[T]) Ptr() *T {
	if n.null || !n.set {
		return nil
	}
	v := n.value
	return &v
}

func (n Nullable[T]) IsZero() bool {
	return !n.set
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.set = true
	if isNull(data) {
		n.null = true
		var zero T
		n.value = zero
		return nil
	}
	n.null = false
	return json.Unmarshal(data, &n.value)
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.set || n.null {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
