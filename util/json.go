// util/json.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// DuplicateJSONKey records an object key that appears more than once;
// encoding/json silently keeps the last one.
type DuplicateJSONKey struct {
	Path string // dotted path of the enclosing object, e.g. "autopilot.quad"
	Key  string
}

func FindDuplicateJSONKeys(data []byte) []DuplicateJSONKey {
	dec := json.NewDecoder(bytes.NewReader(data))
	var dups []DuplicateJSONKey
	_ = walkJSON(dec, nil, &dups) // syntax errors are reported by the decode proper
	return dups
}

func walkJSON(dec *json.Decoder, path []string, dups *[]DuplicateJSONKey) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	switch delim {
	case '{':
		seen := make(map[string]bool)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := tok.(string)
			if seen[key] {
				*dups = append(*dups, DuplicateJSONKey{Path: strings.Join(path, "."), Key: key})
			}
			seen[key] = true
			if err := walkJSON(dec, append(path, key), dups); err != nil {
				return err
			}
		}
	case '[':
		for dec.More() {
			if err := walkJSON(dec, path, dups); err != nil {
				return err
			}
		}
	}
	_, err = dec.Token() // closing delimiter
	return err
}

// UnmarshalJSONBytes is json.Unmarshal with the error positions turned
// into line and column numbers.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	err := json.Unmarshal(b, out)
	if err == nil {
		return nil
	}

	position := func(offset int64) (line, col int) {
		line, col = 1, 1
		for _, c := range b[:min(int(offset), len(b))] {
			if c == '\n' {
				line, col = line+1, 1
			} else {
				col++
			}
		}
		return
	}

	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		line, col := position(syn.Offset)
		return fmt.Errorf("line %d, column %d: %w", line, col, err)
	case errors.As(err, &typ):
		line, col := position(typ.Offset)
		return fmt.Errorf("line %d, column %d: %s value for %q invalid for type %s: %w",
			line, col, typ.Value, typ.Field, typ.Type, err)
	default:
		return err
	}
}

// CheckJSON reports duplicate keys, and object keys that do not match a
// field of T, which usually means a misspelling that would
// otherwise be silently ignored.
func CheckJSON[T any](contents []byte, e *ErrorLogger) {
	for _, d := range FindDuplicateJSONKeys(contents) {
		if d.Path == "" {
			e.ErrorString("key %q appears more than once", d.Key)
		} else {
			e.ErrorString("key %q appears more than once in %q", d.Key, d.Path)
		}
	}

	var raw any
	if err := UnmarshalJSONBytes(contents, &raw); err != nil {
		e.Error(err)
		return
	}
	checkFields(raw, reflect.TypeFor[T](), e)
}

var textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()

func checkFields(raw any, ty reflect.Type, e *ErrorLogger) {
	for ty.Kind() == reflect.Pointer {
		ty = ty.Elem()
	}
	if reflect.PointerTo(ty).Implements(textUnmarshaler) {
		return
	}

	switch ty.Kind() {
	case reflect.Slice, reflect.Array:
		if items, ok := raw.([]any); ok {
			for i, item := range items {
				e.Push(fmt.Sprintf("[%d]", i))
				checkFields(item, ty.Elem(), e)
				e.Pop()
			}
		}

	case reflect.Map:
		if m, ok := raw.(map[string]any); ok {
			for k, v := range m {
				e.Push(k)
				checkFields(v, ty.Elem(), e)
				e.Pop()
			}
		}

	case reflect.Struct:
		m, ok := raw.(map[string]any)
		if !ok {
			return // type mismatches are reported by the decode
		}
		// encoding/json matches keys to field names without regard to
		// case, and untagged fields go by their Go name.
		fields := make(map[string]reflect.Type)
		for _, f := range reflect.VisibleFields(ty) {
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("json"); ok {
				if tag == "-" {
					continue
				}
				if n, _, _ := strings.Cut(tag, ","); n != "" {
					name = n
				}
			}
			fields[strings.ToLower(name)] = f.Type
		}
		for k, v := range m {
			fty, ok := fields[strings.ToLower(k)]
			if !ok {
				e.ErrorString("unknown key %q; is it misspelled?", k)
				continue
			}
			e.Push(k)
			checkFields(v, fty, e)
			e.Pop()
		}
	}
}

// LoadJSON decodes r into out, which may already hold defaults for any
// keys r leaves out. Structural problems are collected in e; decode
// errors are returned directly.
func LoadJSON[T any](r io.Reader, out *T, e *ErrorLogger) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	CheckJSON[T](b, e)
	if e.HaveErrors() {
		return e.Err()
	}
	return UnmarshalJSONBytes(b, out)
}
