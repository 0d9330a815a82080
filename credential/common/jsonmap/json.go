package jsonmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/smartbcity/iris-go/credential/common/errs"
)

// Parse decodes a JSON object into a document, keeping key order and the
// exact text of numbers. JSON null has no Value and is rejected with a
// type mismatch naming the field holding it.
func Parse(data []byte) (*Document, error) {
	v, err := ParseValue(data)
	if err != nil {
		return nil, err
	}
	doc, err := v.AsDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// ParseValue decodes any JSON value.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, "")
	if err != nil {
		return Value{}, fmt.Errorf("failed to decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("failed to decode json: unexpected trailing data")
	}
	return v, nil
}

// decodeValue reads the value stored under field.
func decodeValue(dec *json.Decoder, field string) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec, field)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		v, err := ParseNumber(string(t))
		if err != nil {
			return Value{}, err
		}
		return v, nil
	case bool:
		return Bool(t), nil
	case nil:
		return Value{}, errs.TypeMismatch(field, "value", "null")
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(dec *json.Decoder) (Value, error) {
	doc := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected object key, got %v", tok)
		}
		v, err := decodeValue(dec, key)
		if err != nil {
			return Value{}, err
		}
		doc.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return Object(doc), nil
}

func decodeArray(dec *json.Decoder, field string) (Value, error) {
	var items []Value
	for dec.More() {
		v, err := decodeValue(dec, field)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return List(items...), nil
}

// MarshalJSON encodes the document with its keys in insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the content of d with the decoded object.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// MarshalJSON encodes the value; timestamps are written in TimeFormat.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes any non-null JSON value into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (d *Document) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, k := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := d.values[k].encode(buf); err != nil {
			return fmt.Errorf("failed to encode field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindString:
		return encodeString(buf, v.str)
	case KindNumber:
		if !numberRe.MatchString(string(v.num)) {
			return fmt.Errorf("cannot encode number %q", v.num)
		}
		buf.WriteString(string(v.num))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindTimestamp:
		return encodeString(buf, FormatTime(v.ts))
	case KindDocument:
		return v.doc.encode(buf)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("cannot encode invalid value")
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
