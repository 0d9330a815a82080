package jsonmap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/smartbcity/iris-go/credential/common/errs"
)

// ValueOf converts a Go value into a Value.
//
// Scalars, time.Time, documents, slices and string-keyed maps are converted
// directly; map keys are sorted. Anything else goes through encoding/json,
// so structs keep their declared field order. Integers and json.Number keep
// every digit.
func ValueOf(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, errs.TypeMismatch("", "value", "null")
	case Value:
		if !t.IsValid() {
			return Value{}, fmt.Errorf("failed to convert value: invalid value")
		}
		return t, nil
	case *Document:
		return Object(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return uintValue(uint64(t)), nil
	case uint8:
		return uintValue(uint64(t)), nil
	case uint16:
		return uintValue(uint64(t)), nil
	case uint32:
		return uintValue(uint64(t)), nil
	case uint64:
		return uintValue(t), nil
	case json.Number:
		return ParseNumber(string(t))
	case time.Time:
		return Timestamp(t), nil
	case *time.Time:
		if t == nil {
			return Value{}, errs.TypeMismatch("", "value", "null")
		}
		return Timestamp(*t), nil
	case []Value:
		return List(t...), nil
	case []string:
		return Strings(t...), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("failed to convert item %d: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case map[string]interface{}:
		doc, err := FromMap(t)
		if err != nil {
			return Value{}, err
		}
		return Object(doc), nil
	case map[string]string:
		doc := New()
		for _, k := range sortedKeys(t) {
			doc.Set(k, String(t[k]))
		}
		return Object(doc), nil
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return Value{}, fmt.Errorf("failed to convert %T: %w", x, err)
		}
		return ParseValue(raw)
	}
}

func uintValue(n uint64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatUint(n, 10))}
}

// FromMap converts a generic JSON map into a document with sorted keys.
// A nil entry is a type mismatch naming its key.
func FromMap(m map[string]interface{}) (*Document, error) {
	doc := New()
	for _, k := range sortedKeys(m) {
		if m[k] == nil {
			return nil, errs.TypeMismatch(k, "value", "null")
		}
		v, err := ValueOf(m[k])
		if err != nil {
			return nil, fmt.Errorf("failed to convert field %q: %w", k, err)
		}
		doc.Set(k, v)
	}
	return doc, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
