// Package jsonmap implements the semantic document: an ordered, mutable
// key/value document with typed field access. DID documents, verifiable
// credentials and proofs are all carried by it.
package jsonmap

import (
	"time"

	"github.com/smartbcity/iris-go/credential/common/errs"
)

// Document is an ordered mapping from string keys to values.
// Insertion order is preserved; setting an existing key keeps its position.
type Document struct {
	keys   []string
	values map[string]Value
}

// Entry is a key/value pair of a document.
type Entry struct {
	Key   string
	Value Value
}

// Field is a shorthand to build an Entry.
func Field(key string, value Value) Entry {
	return Entry{Key: key, Value: value}
}

// New returns an empty document, optionally filled with entries in order.
func New(entries ...Entry) *Document {
	d := &Document{values: make(map[string]Value, len(entries))}
	for _, e := range entries {
		d.Set(e.Key, e.Value)
	}
	return d
}

// Len returns the number of fields.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Set stores value under key. Invalid values are ignored.
func (d *Document) Set(key string, value Value) {
	if !value.IsValid() {
		return
	}
	if d.values == nil {
		d.values = make(map[string]Value)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Remove deletes key and reports whether it was present.
func (d *Document) Remove(key string) bool {
	if d == nil {
		return false
	}
	if _, ok := d.values[key]; !ok {
		return false
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// Entries returns the fields in insertion order.
func (d *Document) Entries() []Entry {
	if d == nil {
		return nil
	}
	entries := make([]Entry, len(d.keys))
	for i, k := range d.keys {
		entries[i] = Entry{Key: k, Value: d.values[k]}
	}
	return entries
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := New()
	if d == nil {
		return c
	}
	for _, k := range d.keys {
		c.Set(k, d.values[k].Clone())
	}
	return c
}

// Without returns a deep copy of d without the given keys.
func (d *Document) Without(keys ...string) *Document {
	c := d.Clone()
	for _, k := range keys {
		c.Remove(k)
	}
	return c
}

// Equal reports whether d and o hold the same fields in the same order.
func (d *Document) Equal(o *Document) bool {
	if d.Len() != o.Len() {
		return false
	}
	for i, k := range d.Keys() {
		if o.keys[i] != k {
			return false
		}
		if !d.values[k].Equal(o.values[k]) {
			return false
		}
	}
	return true
}

// ToMap returns the JSON projection of d.
func (d *Document) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, d.Len())
	if d == nil {
		return m
	}
	for _, k := range d.keys {
		m[k] = d.values[k].Interface()
	}
	return m
}

func (d *Document) lookup(key string) (Value, error) {
	v, ok := d.Get(key)
	if !ok {
		return Value{}, errs.New(errs.KindTypeMismatch, "field is missing").WithField(key)
	}
	return v, nil
}

func withField(err error, key string) error {
	if e, ok := err.(*errs.Error); ok && e.Field == "" {
		e.Field = key
	}
	return err
}

// GetString returns the string stored under key.
func (d *Document) GetString(key string) (string, error) {
	v, err := d.lookup(key)
	if err != nil {
		return "", err
	}
	s, err := v.AsString()
	return s, withField(err, key)
}

// GetNumber returns the number stored under key.
func (d *Document) GetNumber(key string) (float64, error) {
	v, err := d.lookup(key)
	if err != nil {
		return 0, err
	}
	n, err := v.AsNumber()
	return n, withField(err, key)
}

// GetBool returns the boolean stored under key.
func (d *Document) GetBool(key string) (bool, error) {
	v, err := d.lookup(key)
	if err != nil {
		return false, err
	}
	b, err := v.AsBool()
	return b, withField(err, key)
}

// GetTimestamp returns the timestamp stored under key.
func (d *Document) GetTimestamp(key string) (time.Time, error) {
	v, err := d.lookup(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := v.AsTimestamp()
	return t, withField(err, key)
}

// GetDocument returns the nested document stored under key.
func (d *Document) GetDocument(key string) (*Document, error) {
	v, err := d.lookup(key)
	if err != nil {
		return nil, err
	}
	doc, err := v.AsDocument()
	return doc, withField(err, key)
}

// GetList returns the list stored under key.
func (d *Document) GetList(key string) ([]Value, error) {
	v, err := d.lookup(key)
	if err != nil {
		return nil, err
	}
	l, err := v.AsList()
	return l, withField(err, key)
}
