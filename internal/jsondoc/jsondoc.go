// Package jsondoc holds JSON object documents that keep their field order, so
// configuration files can be edited and written back without reshuffling.
package jsondoc

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

var ErrNotObject = errors.New("jsondoc: not a JSON object")

type member struct {
	key   string
	value json.RawMessage
}

// Object is an ordered JSON object. Values are kept as raw JSON and decoded
// on demand.
type Object struct {
	members []member
}

// New returns an empty object.
func New() *Object { return &Object{} }

// Decode parses data, which must hold a single JSON object.
func Decode(data []byte) (*Object, error) {
	o := New()
	if err := o.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return o, nil
}

// ReadFile parses the JSON object stored at path.
func ReadFile(path string) (*Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	o, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

// WriteFile writes o to path with two-space indentation.
func WriteFile(path string, o *Object, perm os.FileMode) error {
	data, err := Indent(o)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

// Indent returns o encoded with two-space indentation and a trailing newline.
func Indent(o *Object) ([]byte, error) {
	compact, err := o.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (o *Object) Len() int { return len(o.members) }

// Keys returns the field names in document order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.members))
	for i, m := range o.members {
		out[i] = m.key
	}
	return out
}

func (o *Object) index(key string) int {
	for i, m := range o.members {
		if m.key == key {
			return i
		}
	}
	return -1
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool { return o.index(key) >= 0 }

// Get returns the raw value of key.
func (o *Object) Get(key string) (json.RawMessage, bool) {
	if i := o.index(key); i >= 0 {
		return o.members[i].value, true
	}
	return nil, false
}

// Set stores value under key. An existing key keeps its position.
func (o *Object) Set(key string, value json.RawMessage) {
	if i := o.index(key); i >= 0 {
		o.members[i].value = value
		return
	}
	o.members = append(o.members, member{key: key, value: value})
}

// GetString returns the string value of key; ok is false if the key is absent
// or not a JSON string.
func (o *Object) GetString(key string) (string, bool) {
	raw, ok := o.Get(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// GetObject decodes the nested object stored under key. ok is false if the key
// is absent or holds something other than an object.
func (o *Object) GetObject(key string) (*Object, bool) {
	raw, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	child, err := Decode(raw)
	if err != nil {
		return nil, false
	}
	return child, true
}

// SetObject encodes child and stores it under key.
func (o *Object) SetObject(key string, child *Object) error {
	raw, err := child.MarshalJSON()
	if err != nil {
		return err
	}
	o.Set(key, raw)
	return nil
}

// GetArray decodes the array stored under key as raw elements.
func (o *Object) GetArray(key string) ([]json.RawMessage, bool) {
	raw, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// SetArray stores items under key as a JSON array.
func (o *Object) SetArray(key string, items []json.RawMessage) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := appendCompact(&buf, item); err != nil {
			return fmt.Errorf("jsondoc: %s[%d]: %w", key, i, err)
		}
	}
	buf.WriteByte(']')
	o.Set(key, buf.Bytes())
	return nil
}

// RenameKeys returns a copy of o with keys renamed through table. Keys not in
// table are kept. When a renamed key lands on a key already emitted, the later
// value replaces the earlier one in the earlier position.
func (o *Object) RenameKeys(table map[string]string) *Object {
	out := &Object{members: make([]member, 0, len(o.members))}
	for _, m := range o.members {
		key := m.key
		if renamed, ok := table[key]; ok {
			key = renamed
		}
		out.Set(key, m.value)
	}
	return out
}

// MarshalJSON encodes o compactly in document order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		value := m.value
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		if err := appendCompact(&buf, value); err != nil {
			return nil, fmt.Errorf("jsondoc: field %q: %w", m.key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// appendCompact writes the compact form of value to the end of buf.
// json.Compact rewrites everything already in its destination, so the value
// is compacted on its own first.
func appendCompact(buf *bytes.Buffer, value []byte) error {
	var scratch bytes.Buffer
	if err := json.Compact(&scratch, value); err != nil {
		return err
	}
	buf.Write(scratch.Bytes())
	return nil
}

// UnmarshalJSON replaces o with the object in data, keeping field order.
// Duplicate keys keep the first position and the last value.
func (o *Object) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return errors.New("jsondoc: invalid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrNotObject
	}

	o.members = o.members[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("jsondoc: unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("jsondoc: field %q: %w", key, err)
		}
		o.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
