package kg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind enumerates the shapes an attribute value may take.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

// RawAttributeKey holds the undecoded blob when a stored attribute document
// cannot be parsed.
const RawAttributeKey = "_raw"

// Value is a single attribute: a string, number, bool or list of strings.
// Nested JSON objects are kept as their compact JSON text.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

func StringValue(s string) Value  { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }
func NullValue() Value            { return Value{} }
func ListValue(items []string) Value {
	return Value{kind: KindList, list: append([]string(nil), items...)}
}

// Kind returns the value's shape.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsList returns a copy of the list payload.
func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]string(nil), v.list...), true
}

// String renders the value for display; lists are comma-joined.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		var buf bytes.Buffer
		for i, s := range v.list {
			if i > 0 {
				buf.WriteString(",")
			}
			buf.WriteString(s)
		}
		return buf.String()
	}
	return ""
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("kg: empty attribute value")
	}
	switch data[0] {
	case 'n':
		*v = NullValue()
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			items = append(items, scalarText(r))
		}
		*v = ListValue(items)
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*v = StringValue(buf.String())
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}

// scalarText flattens a JSON element into list-item text.
func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}

// Attributes is the typed open map carried by entities and relations for
// fields that are not promoted to columns.
type Attributes map[string]Value

// Get returns the value stored under key.
func (a Attributes) Get(key string) (Value, bool) {
	v, ok := a[key]
	return v, ok
}

// GetString returns the string stored under key, or "" when absent or not a
// string.
func (a Attributes) GetString(key string) string {
	if v, ok := a[key]; ok {
		if s, ok := v.AsString(); ok {
			return s
		}
	}
	return ""
}

// Encode serialises the map to its stored JSON form; keys are sorted by
// encoding/json.  A nil or empty map encodes as "{}".
func (a Attributes) Encode() (string, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]Value(a))
	if err != nil {
		return "", fmt.Errorf("kg: encode attributes: %w", err)
	}
	return string(b), nil
}

// DecodeAttributes parses a stored JSON document.  Empty input yields an
// empty map.
func DecodeAttributes(blob string) (Attributes, error) {
	if len(bytes.TrimSpace([]byte(blob))) == 0 {
		return Attributes{}, nil
	}
	out := Attributes{}
	if err := json.Unmarshal([]byte(blob), (*map[string]Value)(&out)); err != nil {
		return nil, fmt.Errorf("kg: decode attributes: %w", err)
	}
	return out, nil
}

// DecodeAttributesLenient is DecodeAttributes that never fails: an invalid
// document is preserved verbatim under RawAttributeKey.
func DecodeAttributesLenient(blob string) Attributes {
	attrs, err := DecodeAttributes(blob)
	if err != nil {
		return Attributes{RawAttributeKey: StringValue(blob)}
	}
	return attrs
}

//Personal.AI order the ending
