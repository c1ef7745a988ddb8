// Package jsontree decodes JSON into an order-preserving tree so that walks
// over third-party payloads visit object members in document order.
package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Kind discriminates the variants of Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ErrTrailingData is returned when a document has content after its first value.
var ErrTrailingData = errors.New("trailing data after JSON value")

// Value is one JSON node. Only the fields matching Kind are meaningful.
// Methods are safe to call on a nil *Value, which behaves like an absent member.
type Value struct {
	Kind   Kind
	Bool   bool
	Num    float64
	Str    string
	Items  []*Value
	Keys   []string
	Fields map[string]*Value
}

// Parse decodes exactly one JSON document.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return v, nil
}

func decode(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (*Value, error) {
	switch t := tok.(type) {
	case nil:
		return &Value{Kind: Null}, nil
	case bool:
		return &Value{Kind: Bool, Bool: t}, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return &Value{Kind: Number, Num: f}, nil
	case string:
		return &Value{Kind: String, Str: t}, nil
	case json.Delim:
		switch t {
		case '[':
			arr := &Value{Kind: Array, Items: []*Value{}}
			for dec.More() {
				item, err := decode(dec)
				if err != nil {
					return nil, err
				}
				arr.Items = append(arr.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			obj := &Value{Kind: Object, Fields: map[string]*Value{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				member, err := decode(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := obj.Fields[key]; !dup {
					obj.Keys = append(obj.Keys, key)
				}
				obj.Fields[key] = member
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// FromInterface converts a value produced by encoding/json (or built by hand
// from maps and slices) into a tree. Map keys are visited in sorted order.
func FromInterface(in interface{}) *Value {
	switch t := in.(type) {
	case nil:
		return &Value{Kind: Null}
	case bool:
		return &Value{Kind: Bool, Bool: t}
	case float64:
		return &Value{Kind: Number, Num: t}
	case float32:
		return &Value{Kind: Number, Num: float64(t)}
	case int:
		return &Value{Kind: Number, Num: float64(t)}
	case int64:
		return &Value{Kind: Number, Num: float64(t)}
	case json.Number:
		f, _ := t.Float64()
		return &Value{Kind: Number, Num: f}
	case string:
		return &Value{Kind: String, Str: t}
	case []interface{}:
		arr := &Value{Kind: Array, Items: make([]*Value, 0, len(t))}
		for _, item := range t {
			arr.Items = append(arr.Items, FromInterface(item))
		}
		return arr
	case []string:
		arr := &Value{Kind: Array, Items: make([]*Value, 0, len(t))}
		for _, item := range t {
			arr.Items = append(arr.Items, &Value{Kind: String, Str: item})
		}
		return arr
	case map[string]interface{}:
		obj := &Value{Kind: Object, Fields: make(map[string]*Value, len(t))}
		for k := range t {
			obj.Keys = append(obj.Keys, k)
		}
		sort.Strings(obj.Keys)
		for _, k := range obj.Keys {
			obj.Fields[k] = FromInterface(t[k])
		}
		return obj
	}
	return &Value{Kind: Null}
}

// Get returns the member named key, or nil when v is not an object or lacks it.
func (v *Value) Get(key string) *Value {
	if v == nil || v.Kind != Object {
		return nil
	}
	return v.Fields[key]
}

// Index returns the i-th array element, or nil.
func (v *Value) Index(i int) *Value {
	if v == nil || v.Kind != Array || i < 0 || i >= len(v.Items) {
		return nil
	}
	return v.Items[i]
}

func (v *Value) IsObject() bool { return v != nil && v.Kind == Object }
func (v *Value) IsArray() bool  { return v != nil && v.Kind == Array }
func (v *Value) IsString() bool { return v != nil && v.Kind == String }
func (v *Value) IsNumber() bool { return v != nil && v.Kind == Number }

// IsContainer reports whether the walk should descend into v.
func (v *Value) IsContainer() bool { return v.IsObject() || v.IsArray() }

// Truthy follows JavaScript truthiness, which is what the third-party
// producers of these payloads assume when fields are optional.
func (v *Value) Truthy() bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case Bool:
		return v.Bool
	case Number:
		return v.Num != 0
	case String:
		return v.Str != ""
	case Array, Object:
		return true
	}
	return false
}

// StringValue returns the string content, or "" for non-strings.
func (v *Value) StringValue() string {
	if v == nil || v.Kind != String {
		return ""
	}
	return v.Str
}

// Text renders scalars as text: strings verbatim, numbers without
// trailing zeros, booleans as true/false. Containers and null give "".
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	switch v.Kind {
	case String:
		return v.Str
	case Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// Len returns the number of elements of an array or members of an object.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.Kind {
	case Array:
		return len(v.Items)
	case Object:
		return len(v.Keys)
	}
	return 0
}

// Children returns the direct container children in document order.
func (v *Value) Children() []*Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case Array:
		return v.Items
	case Object:
		out := make([]*Value, 0, len(v.Keys))
		for _, k := range v.Keys {
			out = append(out, v.Fields[k])
		}
		return out
	}
	return nil
}

// Interface converts the tree back into plain Go values.
func (v *Value) Interface() interface{} {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case Bool:
		return v.Bool
	case Number:
		return v.Num
	case String:
		return v.Str
	case Array:
		out := make([]interface{}, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(v.Keys))
		for _, k := range v.Keys {
			out[k] = v.Fields[k].Interface()
		}
		return out
	}
	return nil
}
