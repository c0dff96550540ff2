package docflow

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// MapDocument is a JSON-shaped host document: a nested map with convenience
// accessors, the kind of record a JSON/NoSQL store hands back. It pairs with
// the WithStateKey accessor strategy.
type MapDocument struct {
	data map[string]any
}

// NewMapDocument decodes a JSON object into a document. Invalid or empty
// input yields an empty document.
func NewMapDocument(b []byte) *MapDocument {
	doc := &MapDocument{data: make(map[string]any)}
	if len(b) > 0 {
		json.Unmarshal(b, &doc.data)
	}
	return doc
}

// NewMapDocumentFromMap wraps an existing map. The map is referenced, not
// copied.
func NewMapDocumentFromMap(m map[string]any) *MapDocument {
	if m == nil {
		m = make(map[string]any)
	}
	return &MapDocument{data: m}
}

// Get returns the value at the given nested path.
// Get("user", "name") reads user.name.
func (d *MapDocument) Get(keys ...string) (any, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	current := any(d.data)
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString returns the string at the given path.
func (d *MapDocument) GetString(keys ...string) (string, bool) {
	val, ok := d.Get(keys...)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// GetInt64 returns the integer at the given path. JSON numbers decode as
// float64, so those are accepted too.
func (d *MapDocument) GetInt64(keys ...string) (int64, bool) {
	val, ok := d.Get(keys...)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// Set writes a value at the given nested path, creating intermediate maps as
// needed. Non-map intermediates are overwritten.
func (d *MapDocument) Set(keys []string, value any) error {
	if len(keys) == 0 {
		return errors.New("keys cannot be empty")
	}
	current := d.data
	for i := 0; i < len(keys)-1; i++ {
		key := keys[i]
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
	return nil
}

// Delete removes the value at the given path.
func (d *MapDocument) Delete(keys ...string) {
	if len(keys) == 0 {
		return
	}
	current := d.data
	for i := 0; i < len(keys)-1; i++ {
		next, ok := current[keys[i]].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, keys[len(keys)-1])
}

// ToBytes encodes the document as JSON.
func (d *MapDocument) ToBytes() ([]byte, error) {
	return json.Marshal(d.data)
}

// ToMap returns the underlying map (a reference, not a copy).
func (d *MapDocument) ToMap() map[string]any {
	return d.data
}

// Clone deep-copies the document through a JSON round trip.
func (d *MapDocument) Clone() *MapDocument {
	b, _ := d.ToBytes()
	return NewMapDocument(b)
}

// Unmarshal decodes the document into the given struct.
func (d *MapDocument) Unmarshal(v any) error {
	b, err := d.ToBytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
