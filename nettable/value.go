package nettable

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// ValueType is the type of an entry.
type ValueType int

// Entry types.
const (
	TypeUnassigned ValueType = iota
	TypeNumber
	TypeBoolean
	TypeString
	TypeNumberArray
)

func (vt ValueType) String() string {
	switch vt {
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	case TypeNumberArray:
		return "number_array"
	case TypeUnassigned:
		return "unassigned"
	default:
		return fmt.Sprintf("ValueType(%d)", int(vt))
	}
}

// ParseValueType parses the name of a ValueType.
func ParseValueType(s string) (ValueType, error) {
	for _, vt := range []ValueType{TypeNumber, TypeBoolean, TypeString, TypeNumberArray} {
		if vt.String() == s {
			return vt, nil
		}
	}
	return TypeUnassigned, errors.Errorf("unknown value type %q", s)
}

// A Value is a typed entry value. Only the field matching Type is meaningful.
type Value struct {
	Type        ValueType
	Number      float64
	Boolean     bool
	String      string
	NumberArray []float64
}

// NumberValue returns a number Value.
func NumberValue(v float64) Value {
	return Value{Type: TypeNumber, Number: v}
}

// BooleanValue returns a boolean Value.
func BooleanValue(v bool) Value {
	return Value{Type: TypeBoolean, Boolean: v}
}

// StringValue returns a string Value.
func StringValue(v string) Value {
	return Value{Type: TypeString, String: v}
}

// NumberArrayValue returns a number array Value holding a copy of v.
func NumberArrayValue(v []float64) Value {
	cp := make([]float64, len(v))
	copy(cp, v)
	return Value{Type: TypeNumberArray, NumberArray: cp}
}

// Interface returns the meaningful field.
func (v Value) Interface() interface{} {
	switch v.Type {
	case TypeNumber:
		return v.Number
	case TypeBoolean:
		return v.Boolean
	case TypeString:
		return v.String
	case TypeNumberArray:
		return v.NumberArray
	case TypeUnassigned:
		return nil
	default:
		return nil
	}
}

// MarshalJSON encodes the meaningful field only.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// DecodeValue decodes a raw JSON value of the given type.
func DecodeValue(vt ValueType, raw json.RawMessage) (Value, error) {
	var err error
	v := Value{Type: vt}
	switch vt {
	case TypeNumber:
		err = json.Unmarshal(raw, &v.Number)
	case TypeBoolean:
		err = json.Unmarshal(raw, &v.Boolean)
	case TypeString:
		err = json.Unmarshal(raw, &v.String)
	case TypeNumberArray:
		err = json.Unmarshal(raw, &v.NumberArray)
	case TypeUnassigned:
		err = errors.New("cannot decode an unassigned value")
	default:
		err = errors.Errorf("cannot decode %s", vt)
	}
	if err != nil {
		return Value{}, errors.Wrapf(err, "invalid %s value", vt)
	}
	return v, nil
}

// An Update is a single write to the store, in write order.
type Update struct {
	Key   string
	Value Value
	Seq   uint64
}

// A Message is the JSON form of an Update shared by the network transports.
type Message struct {
	Key   string          `json:"key"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
	Seq   uint64          `json:"seq,omitempty"`
}

// MessageFromUpdate converts an update for the wire.
func MessageFromUpdate(u Update) (Message, error) {
	raw, err := json.Marshal(u.Value)
	if err != nil {
		return Message{}, err
	}
	return Message{Key: u.Key, Type: u.Value.Type.String(), Value: raw, Seq: u.Seq}, nil
}

// Decode returns the key and typed value carried by the message.
func (m Message) Decode() (string, Value, error) {
	if m.Key == "" {
		return "", Value{}, errors.New("message has no key")
	}
	vt, err := ParseValueType(m.Type)
	if err != nil {
		return "", Value{}, err
	}
	v, err := DecodeValue(vt, m.Value)
	if err != nil {
		return "", Value{}, errors.Wrapf(err, "key %q", m.Key)
	}
	return m.Key, v, nil
}
