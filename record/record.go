package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind identifies the JSON kind a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	return [...]string{"null", "bool", "int", "float", "string", "array", "object"}[k]
}

// Value is a tagged variant over the JSON kinds. The zero Value is null.
type Value struct {
	kind     Kind
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	items    []Value
	object   *Record
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool { return v.boolVal }

func (v Value) Int() int64 { return v.intVal }

func (v Value) Float() float64 { return v.floatVal }

func (v Value) Str() string { return v.strVal }

func (v Value) Items() []Value { return v.items }

func (v Value) Object() *Record { return v.object }

func (v Value) IsNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// Number returns the value as a float64. Only meaningful when IsNumber.
func (v Value) Number() float64 {
	if v.kind == KindInt {
		return float64(v.intVal)
	}
	return v.floatVal
}

// Display renders the value in its native text form. This is a display
// string for message summaries, not round-trippable data: strings are not
// quoted or escaped.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindInt:
		return strconv.FormatInt(v.intVal, 10)
	case KindFloat:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	case KindString:
		return v.strVal
	case KindArray:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.Display()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		parts := make([]string, len(v.object.fields))
		for i, f := range v.object.fields {
			parts[i] = f.Name + ": " + f.Value.Display()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

// Field is one named member of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is one parsed feed event: an ordered field/value mapping. Field
// order follows the input text, so iteration is deterministic for a given
// record. Immutable once parsed.
type Record struct {
	fields []Field
}

// Fields returns the record's top-level fields in input order.
func (r *Record) Fields() []Field {
	return r.fields
}

// Get looks up a top-level field by name.
func (r *Record) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Find looks up a field by name anywhere in the tree, depth-first in input
// order, first match wins. Arrays of objects are descended into as well.
func (r *Record) Find(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	for _, f := range r.fields {
		if v, ok := findIn(f.Value, name); ok {
			return v, true
		}
	}
	return Value{}, false
}

func findIn(v Value, name string) (Value, bool) {
	switch v.kind {
	case KindObject:
		return v.object.Find(name)
	case KindArray:
		for _, item := range v.items {
			if found, ok := findIn(item, name); ok {
				return found, true
			}
		}
	}
	return Value{}, false
}

// Parse decodes one JSON object into a Record. The input must be a single
// top-level object with nothing after it. Numbers without a fractional part
// that fit int64 become KindInt, everything else numeric becomes KindFloat.
func Parse(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("cannot parse record: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("record must be a JSON object, got %v", tok)
	}

	rec, err := parseObject(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected content after record")
	}

	return rec, nil
}

// parseObject consumes members up to and including the closing brace. The
// opening brace has already been consumed by the caller.
func parseObject(dec *json.Decoder) (*Record, error) {
	rec := &Record{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("cannot parse record: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected field name, got %v", tok)
		}

		value, err := parseValue(dec)
		if err != nil {
			return nil, err
		}

		rec.fields = append(rec.fields, Field{Name: name, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("cannot parse record: %w", err)
	}

	return rec, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("cannot parse record: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj, err := parseObject(dec)
			if err != nil {
				return Value{}, err
			}
			return Value{kind: KindObject, object: obj}, nil
		case '[':
			var items []Value
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("cannot parse record: %w", err)
			}
			return Value{kind: KindArray, items: items}, nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %v", t)

	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				return Value{kind: KindInt, intVal: i}, nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse number %q: %w", t.String(), err)
		}
		return Value{kind: KindFloat, floatVal: f}, nil

	case string:
		return Value{kind: KindString, strVal: t}, nil

	case bool:
		return Value{kind: KindBool, boolVal: t}, nil

	case nil:
		return Value{kind: KindNull}, nil
	}

	return Value{}, fmt.Errorf("unexpected token %v", tok)
}
