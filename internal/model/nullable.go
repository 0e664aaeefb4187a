package model

import (
	"bytes"
	"encoding/json"
)

// Nullable distinguishes an absent JSON field from an explicit null, which a
// partial update needs for clearable columns.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

func NullOf[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Ptr returns the value as a pointer, nil when null or absent.
func (n Nullable[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		var zero T
		n.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
