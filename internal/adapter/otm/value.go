// Package otm turns OTM webhook envelopes into the facts the notifier acts on:
// the canonical shipment record, its tracked milestone dates and the customer phone.
package otm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Value is a decoded JSON value: Null, Bool, Number, String, Array or Object.
type Value interface {
	json.Marshaler
	isValue()
}

type (
	Null   struct{}
	Bool   bool
	Number string // literal text as it appeared on the wire
	String string
	Array  []Value
)

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object keeps its members in document order.
type Object struct {
	Members []Member
}

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (Array) isValue()  {}
func (Object) isValue() {}

// Get returns the member value stored under key.
func (o Object) Get(key string) (Value, bool) {
	for _, m := range o.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (b Bool) MarshalJSON() ([]byte, error) { return []byte(strconv.FormatBool(bool(b))), nil }

func (n Number) MarshalJSON() ([]byte, error) { return []byte(n), nil }

func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

func (a Array) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Value(a))
}

func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o.Members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := m.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Text renders a scalar the way it is stored and templated: strings verbatim,
// everything else as compact JSON.
func Text(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case String:
		return string(t)
	case Number:
		return string(t)
	default:
		b, err := t.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Decode parses a single JSON document, preserving object member order.
// Duplicate keys keep the position of their first occurrence and the last value.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, errors.New("otm: trailing data after JSON document")
		}
		return nil, err
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		}
		return nil, fmt.Errorf("otm: unexpected delimiter %q", t)
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	}
	return nil, fmt.Errorf("otm: unexpected token %T", tok)
}

func parseObject(dec *json.Decoder) (Value, error) {
	obj := Object{}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("otm: object key is %T, not string", tok)
		}
		v, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		if i, dup := index[key]; dup {
			obj.Members[i].Value = v
			continue
		}
		index[key] = len(obj.Members)
		obj.Members = append(obj.Members, Member{Key: key, Value: v})
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) (Value, error) {
	arr := Array{}
	for dec.More() {
		v, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}
