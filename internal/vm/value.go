package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType identifies the variant stored in a Value.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValInt
	ValFloat
	ValText
	ValList
	ValDict
)

// Value is a closed tagged union. Small primitives live in Data (int64
// bits, float64 bits, bool 0/1); text and containers use the dedicated
// fields so the zero Value is the absence marker.
type Value struct {
	Type ValueType
	Data uint64
	Text string
	List *List
	Dict *Dict
}

// List is a mutable, heterogeneous, 0-based sequence shared by reference.
type List struct {
	Items []Value
}

// Dict maps text keys to values and preserves insertion order.
type Dict struct {
	keys    []string
	entries map[string]Value
}

func NewDict() *Dict {
	return &Dict{entries: make(map[string]Value)}
}

func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order. The slice is shared; callers
// must not mutate it.
func (d *Dict) Keys() []string { return d.keys }

func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.entries[key]
	return v, ok
}

// Set inserts or overwrites; a repeated key keeps its original position.
func (d *Dict) Set(key string, v Value) {
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = v
}

func (d *Dict) Delete(key string) bool {
	if _, ok := d.entries[key]; !ok {
		return false
	}
	delete(d.entries, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Constructors

func NilVal() Value { return Value{Type: ValNil} }

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func IntVal(v int64) Value {
	return Value{Type: ValInt, Data: uint64(v)}
}

func FloatVal(v float64) Value {
	return Value{Type: ValFloat, Data: math.Float64bits(v)}
}

func TextVal(s string) Value {
	return Value{Type: ValText, Text: s}
}

func ListVal(l *List) Value {
	return Value{Type: ValList, List: l}
}

func DictVal(d *Dict) Value {
	return Value{Type: ValDict, Dict: d}
}

// Accessors

func (v Value) AsBool() bool     { return v.Data == 1 }
func (v Value) AsInt() int64     { return int64(v.Data) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.Data) }

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsInt() bool    { return v.Type == ValInt }
func (v Value) IsFloat() bool  { return v.Type == ValFloat }
func (v Value) IsText() bool   { return v.Type == ValText }
func (v Value) IsList() bool   { return v.Type == ValList }
func (v Value) IsDict() bool   { return v.Type == ValDict }
func (v Value) IsNumber() bool { return v.Type == ValInt || v.Type == ValFloat }

// numeric returns the value widened to float64; only valid for numbers.
func (v Value) numeric() float64 {
	if v.Type == ValInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// TypeName returns the user-facing kind name used in error messages.
func (v Value) TypeName() string {
	switch v.Type {
	case ValNil:
		return "null"
	case ValBool:
		return "boolean"
	case ValInt:
		return "integer"
	case ValFloat:
		return "float"
	case ValText:
		return "text"
	case ValList:
		return "list"
	case ValDict:
		return "dict"
	}
	return "unknown"
}

// Equals implements language equality: well-defined for every value pair.
// Int and float compare numerically; all other cross-type pairs are unequal.
// Lists and dicts compare structurally.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		if v.IsNumber() && other.IsNumber() {
			return v.numeric() == other.numeric()
		}
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool, ValInt:
		return v.Data == other.Data
	case ValFloat:
		return v.AsFloat() == other.AsFloat()
	case ValText:
		return v.Text == other.Text
	case ValList:
		if v.List == other.List {
			return true
		}
		if len(v.List.Items) != len(other.List.Items) {
			return false
		}
		for i, item := range v.List.Items {
			if !item.Equals(other.List.Items[i]) {
				return false
			}
		}
		return true
	case ValDict:
		if v.Dict == other.Dict {
			return true
		}
		if v.Dict.Len() != other.Dict.Len() {
			return false
		}
		for _, k := range v.Dict.keys {
			ov, ok := other.Dict.Get(k)
			if !ok || !ov.Equals(v.Dict.entries[k]) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two values: -1, 0 or 1. Numbers order numerically (mixed
// int/float allowed), text lexicographically; any other pairing is an error.
func (v Value) Compare(other Value) (int, error) {
	if v.IsNumber() && other.IsNumber() {
		a, b := v.numeric(), other.numeric()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		}
		return 0, nil
	}
	if v.IsText() && other.IsText() {
		return strings.Compare(v.Text, other.Text), nil
	}
	return 0, fmt.Errorf("cannot order %s and %s", v.TypeName(), other.TypeName())
}

// Display renders the value the way write prints it: text bare, floats with
// a trailing .0 when integral, containers in literal syntax.
func (v Value) Display() string {
	if v.Type == ValText {
		return v.Text
	}
	return v.Inspect()
}

// Inspect renders the value in literal syntax (text quoted). Used for
// elements inside containers and for diagnostics.
func (v Value) Inspect() string {
	switch v.Type {
	case ValNil:
		return "null"
	case ValBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case ValInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case ValFloat:
		return formatFloat(v.AsFloat())
	case ValText:
		return "\"" + v.Text + "\""
	case ValList:
		var b strings.Builder
		b.WriteByte('[')
		for i, item := range v.List.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(item.Inspect())
		}
		b.WriteByte(']')
		return b.String()
	case ValDict:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range v.Dict.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("\"" + k + "\": ")
			b.WriteString(v.Dict.entries[k].Inspect())
		}
		b.WriteByte('}')
		return b.String()
	}
	return "<?>"
}

// formatFloat keeps integral floats visibly float ("2.0", not "2").
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
