package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"jsonpress/internal/services"
)

// Decode parses a single JSON value into a record tree, preserving object
// field order. Numbers are kept as their original decimal text.
func Decode(data []byte) (*Node, error) {
	dec := newDecoder(data)
	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("read value", err)
	}
	node, err := decodeValue(dec, tok)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("trailing data after value", nil)
	}
	return node, nil
}

// DecodeBatch parses input bytes into a batch of records sharing a nominal
// schema. The input may be a single JSON object, a JSON array of objects, or
// a stream of whitespace-separated objects (NDJSON); anything else is
// malformed input.
func DecodeBatch(data []byte) ([]*Node, error) {
	dec := newDecoder(data)
	var batch []*Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("read value", err)
		}
		node, err := decodeValue(dec, tok)
		if err != nil {
			return nil, err
		}
		switch node.Kind {
		case KindObject:
			batch = append(batch, node)
		case KindList:
			for i, elem := range node.Elems {
				if elem.Kind != KindObject {
					return nil, malformed(fmt.Sprintf("array element %d is %s, expected object", i, elem.Kind), nil)
				}
				batch = append(batch, elem)
			}
		default:
			return nil, malformed("top-level value must be an object or array of objects", nil)
		}
	}
	if len(batch) == 0 {
		return nil, malformed("input contains no records", nil)
	}
	return batch, nil
}

func newDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec
}

func decodeValue(dec *json.Decoder, tok json.Token) (*Node, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeList(dec)
		default:
			return nil, malformed(fmt.Sprintf("unexpected delimiter %q", v.String()), nil)
		}
	case string:
		return NewScalar(String(v)), nil
	case json.Number:
		return NewScalar(Number(v.String())), nil
	case bool:
		return NewScalar(Bool(v)), nil
	case nil:
		return NewScalar(Null()), nil
	default:
		return nil, malformed(fmt.Sprintf("unexpected token %v", tok), nil)
	}
}

func decodeObject(dec *json.Decoder) (*Node, error) {
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, malformed("read object key", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, malformed(fmt.Sprintf("object key %v is not a string", keyTok), nil)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, malformed(fmt.Sprintf("read value for field %q", key), err)
		}
		value, err := decodeValue(dec, valTok)
		if err != nil {
			return nil, err
		}
		// Duplicate keys keep the last value, matching json.Unmarshal.
		replaced := false
		for i := range fields {
			if fields[i].Name == key {
				fields[i].Value = value
				replaced = true
				break
			}
		}
		if !replaced {
			fields = append(fields, Field{Name: key, Value: value})
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, malformed("close object", err)
	}
	return &Node{Kind: KindObject, Fields: fields}, nil
}

func decodeList(dec *json.Decoder) (*Node, error) {
	var elems []*Node
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("read array element", err)
		}
		elem, err := decodeValue(dec, tok)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	if _, err := dec.Token(); err != nil {
		return nil, malformed("close array", err)
	}
	return &Node{Kind: KindList, Elems: elems}, nil
}

func malformed(message string, err error) error {
	return services.Wrap(services.ErrMalformedInput, "record", "decode", message, err)
}
