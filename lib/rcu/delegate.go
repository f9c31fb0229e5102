package rcu

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Value Delegation
// --------------------------------------------------------------------------

// Formatting and (un)marshalling pass straight through to the wrapped
// value. The logic lives in three generic helpers; each container only
// carries one-line forwarding methods. Unmarshalling runs through a
// full update cycle so the decoded value is published atomically and
// the displaced value is retired like any other.

func formatValue[T any](p Pointer[T]) string {
	return fmt.Sprintf("%v", *p.Deref())
}

func marshalValue[T any](p Pointer[T]) ([]byte, error) {
	return json.Marshal(p.Deref())
}

func unmarshalValue[T any](p Pointer[T], data []byte) error {
	g := p.Update()
	if err := json.Unmarshal(data, g.Value()); err != nil {
		g.Discard()
		return err
	}
	g.Release()
	return nil
}

// --------------------------------------------------------------------------
// Forwarding Methods
// --------------------------------------------------------------------------

func (c *Cell[T]) String() string { return formatValue[T](c) }

// MarshalJSON encodes the current value.
func (c *Cell[T]) MarshalJSON() ([]byte, error) { return marshalValue[T](c) }

// UnmarshalJSON decodes into a clone of the current value and publishes
// it through a regular update.
func (c *Cell[T]) UnmarshalJSON(data []byte) error { return unmarshalValue[T](c, data) }

func (s *SharedCell[T]) String() string { return formatValue[T](s) }

func (s *SharedCell[T]) MarshalJSON() ([]byte, error) { return marshalValue[T](s) }

func (s *SharedCell[T]) UnmarshalJSON(data []byte) error { return unmarshalValue[T](s, data) }

func (s *SyncCell[T]) String() string { return formatValue[T](s) }

func (s *SyncCell[T]) MarshalJSON() ([]byte, error) { return marshalValue[T](s) }

func (s *SyncCell[T]) UnmarshalJSON(data []byte) error { return unmarshalValue[T](s, data) }

func (r *Rcu[T]) String() string { return formatValue[T](r) }

func (r *Rcu[T]) MarshalJSON() ([]byte, error) { return marshalValue[T](r) }

func (r *Rcu[T]) UnmarshalJSON(data []byte) error { return unmarshalValue[T](r, data) }

func (r *SharedRcu[T]) String() string { return formatValue[T](r) }

func (r *SharedRcu[T]) MarshalJSON() ([]byte, error) { return marshalValue[T](r) }

func (r *SharedRcu[T]) UnmarshalJSON(data []byte) error { return unmarshalValue[T](r, data) }

func (r *SyncRcu[T]) String() string { return formatValue[T](r) }

func (r *SyncRcu[T]) MarshalJSON() ([]byte, error) { return marshalValue[T](r) }

func (r *SyncRcu[T]) UnmarshalJSON(data []byte) error { return unmarshalValue[T](r, data) }
