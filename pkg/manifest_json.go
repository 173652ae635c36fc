package rema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// jsonEditor handles package.json style documents. The version value is
// spliced in place so key order, indentation and trailing newlines survive.
type jsonEditor struct{}

func (jsonEditor) readVersion(_ *ManifestFile, data []byte) (string, error) {
	return jsonTopLevelString(data, "version")
}

func (jsonEditor) readName(_ *ManifestFile, data []byte) (string, error) {
	return jsonTopLevelString(data, "name")
}

func jsonTopLevelString(data []byte, key string) (string, error) {
	if !jsoniter.Valid(data) {
		return "", errors.New("invalid JSON document")
	}
	root := jsoniter.Get(data)
	if root.ValueType() != jsoniter.ObjectValue {
		return "", errors.New("JSON document is not an object")
	}
	field := root.Get(key)
	switch field.ValueType() {
	case jsoniter.InvalidValue:
		return "", nil
	case jsoniter.StringValue:
		return field.ToString(), nil
	default:
		return "", fmt.Errorf("%q field is not a string", key)
	}
}

// jsonSpan locates the top-level "version" value. When the field is
// absent, start == end == the offset where a new first key can be inserted
// and found is false.
type jsonSpan struct {
	start, end int
	found      bool
	indent     []byte // whitespace preceding the first key
	empty      bool   // the object has no keys
}

func locateJSONVersion(data []byte) (jsonSpan, error) {
	var span jsonSpan
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return span, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return span, errors.New("JSON document is not an object")
	}
	afterBrace := int(dec.InputOffset())

	first := true
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return span, err
		}
		key, _ := keyTok.(string)
		if first {
			keyStart := afterBrace + len(data[afterBrace:]) - len(bytes.TrimLeft(data[afterBrace:], " \t\r\n"))
			span.start, span.end = keyStart, keyStart
			span.indent = append([]byte(nil), data[afterBrace:keyStart]...)
			first = false
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return span, err
		}
		if key == "version" {
			end := int(dec.InputOffset())
			return jsonSpan{start: end - len(raw), end: end, found: true}, nil
		}
	}
	if first {
		span.start, span.end, span.empty = afterBrace, afterBrace, true
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return span, err
	}
	return span, nil
}

func (e jsonEditor) setVersion(_ *ManifestFile, data []byte, v Version) ([]byte, error) {
	span, err := locateJSONVersion(data)
	if err != nil {
		return nil, err
	}
	quoted, err := json.Marshal(v.String())
	if err != nil {
		return nil, err
	}

	var insert []byte
	switch {
	case span.found:
		if data[span.start] != '"' {
			return nil, errors.New(`"version" field is not a string`)
		}
		insert = quoted
	case span.empty:
		insert = append([]byte(`"version": `), quoted...)
	default:
		insert = append([]byte(`"version": `), quoted...)
		insert = append(insert, ',')
		insert = append(insert, span.indent...)
	}

	out := make([]byte, 0, len(data)+len(insert))
	out = append(out, data[:span.start]...)
	out = append(out, insert...)
	out = append(out, data[span.end:]...)

	got, err := e.readVersion(nil, out)
	if err != nil {
		return nil, err
	}
	if got != v.String() {
		return nil, fmt.Errorf("version field reads %q after edit, want %q", got, v)
	}
	return out, nil
}
