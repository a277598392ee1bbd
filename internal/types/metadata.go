package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is a string key-value bag persisted as JSONB. Payments use it
// for the typed workflow payload and for raw provider responses.
type Metadata map[string]string

// Copy returns a shallow copy so callers can merge without aliasing the
// original map.
func (m Metadata) Copy() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Scan implements sql.Scanner. NULL scans to an empty map, never nil.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata source type %T", value)
	}

	out := make(Metadata)
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Value implements driver.Valuer; a nil map encodes as an empty object.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(make(Metadata))
	}
	return json.Marshal(m)
}
