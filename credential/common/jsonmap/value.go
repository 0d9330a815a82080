package jsonmap

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"time"

	"github.com/smartbcity/iris-go/credential/common/errs"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindTimestamp
	KindDocument
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	case KindDocument:
		return "document"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// TimeFormat is the lexical form timestamps are serialized with.
const TimeFormat = time.RFC3339Nano

// zone-less layouts are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// FormatTime renders t in TimeFormat.
func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

// ParseTime parses an RFC 3339 timestamp, accepting zone-less date-times as UTC.
func ParseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, lastErr)
}

// Value is a closed variant: string, number, boolean, timestamp, nested
// document or ordered list of values. The zero Value is invalid. Numbers
// keep their JSON text, so no digit is lost between parsing and signing.
type Value struct {
	kind Kind
	str  string
	num  json.Number
	b    bool
	ts   time.Time
	doc  *Document
	list []Value
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

var numberRe = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Number returns a numeric value holding the shortest text that reads back
// as n. NaN and infinities fail when the value is encoded.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(n, 'g', -1, 64))}
}

// Int returns a numeric value holding n.
func Int(n int64) Value { return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(n, 10))} }

// ParseNumber returns a numeric value holding the JSON number text s as is.
func ParseNumber(s string) (Value, error) {
	if !numberRe.MatchString(s) {
		return Value{}, errs.New(errs.KindTypeMismatch, "invalid number %q", s)
	}
	return Value{kind: KindNumber, num: json.Number(s)}, nil
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Timestamp returns a timestamp value.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t} }

// Object wraps a nested document. A nil document is stored as an empty one.
func Object(d *Document) Value {
	if d == nil {
		d = New()
	}
	return Value{kind: KindDocument, doc: d}
}

// List returns an ordered list value.
func List(values ...Value) Value {
	l := make([]Value, len(values))
	copy(l, values)
	return Value{kind: KindList, list: l}
}

// Strings returns a list of string values.
func Strings(values ...string) Value {
	l := make([]Value, len(values))
	for i, s := range values {
		l[i] = String(s)
	}
	return Value{kind: KindList, list: l}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a variant.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) mismatch(want Kind) *errs.Error {
	return errs.TypeMismatch("", want.String(), v.kind.String())
}

// AsString returns the string held by v.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.str, nil
}

// AsNumber returns the number held by v as a float64, which rounds numbers
// beyond its precision. AsJSONNumber returns the exact text.
func (v Value) AsNumber() (float64, error) {
	if v.kind != KindNumber {
		return 0, v.mismatch(KindNumber)
	}
	f, err := v.num.Float64()
	if err != nil {
		return 0, errs.Wrap(errs.KindTypeMismatch, err, "number %s out of range", v.num)
	}
	return f, nil
}

// AsJSONNumber returns the JSON text of the number held by v.
func (v Value) AsJSONNumber() (json.Number, error) {
	if v.kind != KindNumber {
		return "", v.mismatch(KindNumber)
	}
	return v.num, nil
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.b, nil
}

// AsTimestamp returns the timestamp held by v. A string holding an RFC 3339
// timestamp is parsed, since timestamps travel as strings in JSON.
func (v Value) AsTimestamp() (time.Time, error) {
	switch v.kind {
	case KindTimestamp:
		return v.ts, nil
	case KindString:
		t, err := ParseTime(v.str)
		if err != nil {
			return time.Time{}, errs.Wrap(errs.KindTypeMismatch, err, "expected timestamp")
		}
		return t, nil
	default:
		return time.Time{}, v.mismatch(KindTimestamp)
	}
}

// AsDocument returns the nested document held by v.
func (v Value) AsDocument() (*Document, error) {
	if v.kind != KindDocument {
		return nil, v.mismatch(KindDocument)
	}
	return v.doc, nil
}

// AsList returns a copy of the list held by v.
func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, v.mismatch(KindList)
	}
	l := make([]Value, len(v.list))
	copy(l, v.list)
	return l, nil
}

// Interface returns the JSON projection of v: string, json.Number, bool,
// map[string]interface{} or []interface{}. Timestamps are rendered as strings.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindTimestamp:
		return FormatTime(v.ts)
	case KindDocument:
		return v.doc.ToMap()
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindDocument:
		return Value{kind: KindDocument, doc: v.doc.Clone()}
	case KindList:
		l := make([]Value, len(v.list))
		for i, item := range v.list {
			l[i] = item.Clone()
		}
		return Value{kind: KindList, list: l}
	default:
		return v
	}
}

// Equal reports whether v and o hold the same variant and content,
// including key order of nested documents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return numberEqual(v.num, o.num)
	case KindBool:
		return v.b == o.b
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	case KindDocument:
		return v.doc.Equal(o.doc)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// numberEqual compares numerically, so 1, 1.0 and 1e0 are equal.
func numberEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	x, okx := new(big.Rat).SetString(string(a))
	y, oky := new(big.Rat).SetString(string(b))
	return okx && oky && x.Cmp(y) == 0
}
