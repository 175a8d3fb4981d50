// Package value defines the closed set of runtime values the template
// sandbox is allowed to operate on. Anything outside this set must not
// survive evaluation: conversions fail instead of passing a raw host value
// through.
package value

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind discriminates the variants of a sandbox Value.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindDecimal
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "?"
}

// List is a mutable ordered sequence of sandbox values. Lists are handled by
// pointer so aliasing and cycles are observable by the recursion detector.
type List struct {
	Items []Value
}

// NewList builds a list from the given items.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// Append adds a single value to the end of the list.
func (l *List) Append(v Value) {
	l.Items = append(l.Items, v)
}

// Extend appends every item of other to the list.
func (l *List) Extend(other *List) {
	l.Items = append(l.Items, other.Items...)
}

// Clone returns a shallow copy: a fresh list sharing the element values.
func (l *List) Clone() *List {
	items := make([]Value, len(l.Items))
	copy(items, l.Items)
	return &List{Items: items}
}

// Map is a mutable string-keyed mapping that preserves insertion order.
type Map struct {
	keys    []string
	entries map[string]Value
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{entries: make(map[string]Value)}
}

// Set stores v under key, keeping the first-insertion order for iteration.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = v
}

// Get looks up key.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Keys returns the keys in insertion order. The slice is shared; callers must
// not mutate it.
func (m *Map) Keys() []string {
	return m.keys
}

// Len reports the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Value is a small handle over one of the six sandbox variants. The zero
// Value is None.
type Value struct {
	kind    Kind
	str     string
	dec     decimal.Decimal
	boolean bool
	list    *List
	mapping *Map
}

// None returns the none value.
func None() Value {
	return Value{}
}

// FromString wraps a string.
func FromString(s string) Value {
	return Value{kind: KindString, str: s}
}

// FromDecimal wraps an arbitrary-precision decimal.
func FromDecimal(d decimal.Decimal) Value {
	return Value{kind: KindDecimal, dec: d}
}

// FromInt converts an integer without passing through floating point.
func FromInt(i int64) Value {
	return FromDecimal(decimal.NewFromInt(i))
}

// FromFloat converts a float. The shortest exact decimal representation is
// used so equal-looking literals compare equal.
func FromFloat(f float64) Value {
	return FromDecimal(decimal.NewFromFloat(f))
}

// FromBool wraps a boolean.
func FromBool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// FromList wraps a list handle.
func FromList(l *List) Value {
	return Value{kind: KindList, list: l}
}

// FromMap wraps a map handle.
func FromMap(m *Map) Value {
	return Value{kind: KindMap, mapping: m}
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether the value is none.
func (v Value) IsNone() bool { return v.kind == KindNone }

// AsString returns the string payload when the value is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsDecimal returns the decimal payload when the value is a decimal.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	if v.kind != KindDecimal {
		return decimal.Decimal{}, false
	}
	return v.dec, true
}

// AsBool returns the boolean payload when the value is a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolean, true
}

// AsList returns the list handle when the value is a list.
func (v Value) AsList() (*List, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsMap returns the map handle when the value is a map.
func (v Value) AsMap() (*Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.mapping, true
}

// IsZero reports whether the value is the decimal zero. Non-decimal values
// are never zero in this sense.
func (v Value) IsZero() bool {
	return v.kind == KindDecimal && v.dec.IsZero()
}

// SameAs reports identity: composites compare by handle, scalars by payload.
func (v Value) SameAs(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindString:
		return v.str == other.str
	case KindDecimal:
		return v.dec.Equal(other.dec)
	case KindBool:
		return v.boolean == other.boolean
	case KindList:
		return v.list == other.list
	case KindMap:
		return v.mapping == other.mapping
	}
	return false
}

// String renders a debug representation. Cyclic composites are rendered with
// a bounded depth so String itself cannot recurse forever.
func (v Value) String() string {
	return v.repr(0)
}

func (v Value) repr(depth int) string {
	if depth > 8 {
		return "..."
	}
	switch v.kind {
	case KindNone:
		return "none"
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindDecimal:
		return v.dec.String()
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindList:
		parts := make([]string, len(v.list.Items))
		for i, item := range v.list.Items {
			parts[i] = item.repr(depth + 1)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, 0, v.mapping.Len())
		for _, key := range v.mapping.Keys() {
			entry, _ := v.mapping.Get(key)
			parts = append(parts, fmt.Sprintf("%q: %s", key, entry.repr(depth+1)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

// FromAny converts raw context data (as produced by the config parsers) into
// a sandbox value. Numbers become decimals, maps must be string-keyed, and
// any leaf outside the model fails the whole conversion. Shared or cyclic
// containers in the input are mapped to shared handles in the output, so a
// cycle in the raw data remains a cycle the recursion detector can see.
func FromAny(raw any) (Value, bool) {
	c := converter{
		lists: make(map[uintptr]*List),
		maps:  make(map[uintptr]*Map),
	}
	return c.convert(raw)
}

type converter struct {
	lists map[uintptr]*List
	maps  map[uintptr]*Map
}

func (c *converter) convert(raw any) (Value, bool) {
	switch v := raw.(type) {
	case nil:
		return None(), true
	case string:
		return FromString(v), true
	case bool:
		return FromBool(v), true
	case decimal.Decimal:
		return FromDecimal(v), true
	case int:
		return FromInt(int64(v)), true
	case int8:
		return FromInt(int64(v)), true
	case int16:
		return FromInt(int64(v)), true
	case int32:
		return FromInt(int64(v)), true
	case int64:
		return FromInt(v), true
	case uint:
		return FromDecimal(decimal.NewFromUint64(uint64(v))), true
	case uint8:
		return FromInt(int64(v)), true
	case uint16:
		return FromInt(int64(v)), true
	case uint32:
		return FromInt(int64(v)), true
	case uint64:
		return FromDecimal(decimal.NewFromUint64(v)), true
	case float32:
		return FromFloat(float64(v)), true
	case float64:
		return FromFloat(v), true
	case Value:
		return v, true
	case []any:
		return c.convertSlice(v)
	case map[string]any:
		return c.convertStringMap(v)
	case map[any]any:
		return c.convertAnyMap(v)
	default:
		return None(), false
	}
}

func (c *converter) convertSlice(raw []any) (Value, bool) {
	var id uintptr
	if raw != nil {
		id = reflect.ValueOf(raw).Pointer()
		if list, ok := c.lists[id]; ok {
			return FromList(list), true
		}
	}
	list := &List{Items: make([]Value, 0, len(raw))}
	if raw != nil {
		c.lists[id] = list
	}
	for _, item := range raw {
		converted, ok := c.convert(item)
		if !ok {
			return None(), false
		}
		list.Items = append(list.Items, converted)
	}
	return FromList(list), true
}

func (c *converter) convertStringMap(raw map[string]any) (Value, bool) {
	var id uintptr
	if raw != nil {
		id = reflect.ValueOf(raw).Pointer()
		if m, ok := c.maps[id]; ok {
			return FromMap(m), true
		}
	}
	m := NewMap()
	if raw != nil {
		c.maps[id] = m
	}
	for _, key := range sortedKeys(raw) {
		converted, ok := c.convert(raw[key])
		if !ok {
			return None(), false
		}
		m.Set(key, converted)
	}
	return FromMap(m), true
}

func (c *converter) convertAnyMap(raw map[any]any) (Value, bool) {
	var id uintptr
	if raw != nil {
		id = reflect.ValueOf(raw).Pointer()
		if m, ok := c.maps[id]; ok {
			return FromMap(m), true
		}
	}
	m := NewMap()
	if raw != nil {
		c.maps[id] = m
	}
	names := make([]string, 0, len(raw))
	for key := range raw {
		name, ok := key.(string)
		if !ok {
			return None(), false
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		converted, ok := c.convert(raw[name])
		if !ok {
			return None(), false
		}
		m.Set(name, converted)
	}
	return FromMap(m), true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	// Deterministic iteration keeps evaluation order reproducible across runs.
	sort.Strings(keys)
	return keys
}
