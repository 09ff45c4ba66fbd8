package nettle

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KeyValuePair is the runtime value of a <key, value> literal, and the item
// type produced when a loop iterates over a map.
type KeyValuePair struct {
	Key   interface{}
	Value interface{}
}

func (p KeyValuePair) String() string {
	return fmt.Sprintf("<%s, %s>", FormatValue(p.Key), FormatValue(p.Value))
}

// Properties exposes Key and Value to bindings such as {{$.Key}}.
func (p KeyValuePair) Properties() map[string]interface{} {
	return map[string]interface{}{"Key": p.Key, "Value": p.Value}
}

// OrderedMap is a string keyed map that remembers insertion order. Anonymous
// types resolve to one, and it is the preferred way to pass dynamic models.
type OrderedMap struct {
	keys   []string
	values map[string]interface{}
}

// NewOrderedMap creates an empty map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]interface{})}
}

// Set adds or replaces key. A new key is appended to the order.
func (m *OrderedMap) Set(key string, value interface{}) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *OrderedMap) Get(key string) (interface{}, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// Properties returns a copy of the entries.
func (m *OrderedMap) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(m.values))
	for k, v := range m.values {
		props[k] = v
	}
	return props
}

func (m *OrderedMap) String() string {
	parts := make([]string, len(m.keys))
	for i, k := range m.keys {
		parts[i] = k + " = " + FormatValue(m.values[k])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatValue converts a value to its string representation
func FormatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		// 'g' with precision 15 drops trailing zeros, so 5.0 prints as 5
		return strconv.FormatFloat(v, 'g', 15, 64)
	case bool:
		return fmt.Sprintf("%v", v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func toInt(val interface{}) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		if v == float32(int(v)) {
			return int(v), true
		}
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func isNumber(val interface{}) bool {
	_, ok := toFloat64(val)
	return ok
}

func isTruthy(val interface{}) bool {
	if val == nil {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, _ := toFloat64(v)
		return f != 0
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	case *OrderedMap:
		return v.Len() > 0
	default:
		return true // Non-nil objects are truthy
	}
}

func evaluateEquals(left, right interface{}) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}

	if leftNum, leftOk := toFloat64(left); leftOk {
		if rightNum, rightOk := toFloat64(right); rightOk {
			return leftNum == rightNum
		}
	}

	if lt, ok := left.(time.Time); ok {
		if rt, ok := right.(time.Time); ok {
			return lt.Equal(rt)
		}
	}

	if !reflect.TypeOf(left).Comparable() || !reflect.TypeOf(right).Comparable() {
		return reflect.DeepEqual(left, right)
	}
	return left == right
}

// compareOrdered returns -1, 0 or 1. Numbers compare numerically, strings
// lexically and times chronologically.
func compareOrdered(left, right interface{}) (int, error) {
	if l, ok := toFloat64(left); ok {
		if r, ok := toFloat64(right); ok {
			switch {
			case l < r:
				return -1, nil
			case l > r:
				return 1, nil
			}
			return 0, nil
		}
	}
	if l, ok := left.(string); ok {
		if r, ok := right.(string); ok {
			return strings.Compare(l, r), nil
		}
	}
	if l, ok := left.(time.Time); ok {
		if r, ok := right.(time.Time); ok {
			return l.Compare(r), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T and %T", left, right)
}

// toSlice converts a collection into its items. Maps iterate as
// KeyValuePairs, an OrderedMap in insertion order and other maps sorted by
// key. Strings, numbers and nil are not collections.
func toSlice(val interface{}) ([]interface{}, bool) {
	switch v := val.(type) {
	case nil:
		return nil, false
	case []interface{}:
		return v, true
	case *OrderedMap:
		items := make([]interface{}, 0, v.Len())
		for _, k := range v.keys {
			items = append(items, KeyValuePair{Key: k, Value: v.values[k]})
		}
		return items, true
	case string:
		return nil, false
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]interface{}, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, true
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		items := make([]interface{}, len(keys))
		for i, k := range keys {
			items[i] = KeyValuePair{Key: k.Interface(), Value: rv.MapIndex(k).Interface()}
		}
		return items, true
	}
	return nil, false
}

// sameKind reports whether two values belong to the same broad runtime type:
// all numbers are one kind, everything else compares by dynamic type.
func sameKind(a, b interface{}) bool {
	if a == nil || b == nil {
		return true
	}
	if isNumber(a) && isNumber(b) {
		return true
	}
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}
