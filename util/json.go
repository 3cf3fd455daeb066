// util/json.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

///////////////////////////////////////////////////////////////////////////
// JSON

// FindDuplicateJSONKeys returns the dotted paths of all keys that appear
// more than once in the same JSON object. encoding/json silently keeps
// the last value for a duplicated key, which hides mistakes in
// hand-edited files.
func FindDuplicateJSONKeys(data []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(data))
	var dups []string

	var walk func(path string) error
	walk = func(path string) error {
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
				p := key
				if path != "" {
					p = path + "." + key
				}
				if seen[key] {
					dups = append(dups, p)
				}
				seen[key] = true

				if err := walk(p); err != nil {
					return err
				}
			}
		case '[':
			for i := 0; dec.More(); i++ {
				if err := walk(fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}

		// Closing delimiter
		_, err = dec.Token()
		return err
	}

	// Syntax errors are reported by UnmarshalJSONBytes.
	_ = walk("")

	return dups
}

func UnmarshalJSON[T any](r io.Reader, out *T) error {
	// We need the contents as an array of bytes so that we can issue
	// reasonable errors.
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return UnmarshalJSONBytes(b, out)
}

// UnmarshalJSONBytes unmarshals the bytes into the given type, rejecting
// fields that T doesn't have, and goes through some efforts to return
// useful error messages when the JSON is invalid.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	err := dec.Decode(out)
	if err == nil {
		return nil
	}

	decodeOffset := func(offset int64) (line, char int) {
		line, char = 1, 1
		for i := 0; i < int(offset) && i < len(b); i++ {
			if b[i] == '\n' {
				line++
				char = 1
			} else {
				char++
			}
		}
		return
	}

	var serr *json.SyntaxError
	var terr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &serr):
		line, char := decodeOffset(serr.Offset)
		return fmt.Errorf("line %d, character %d: %w", line, char, serr)

	case errors.As(err, &terr):
		line, char := decodeOffset(terr.Offset)
		return fmt.Errorf("line %d, character %d: %s value for %q invalid for type %s",
			line, char, terr.Value, terr.Field, terr.Type)

	case strings.HasPrefix(err.Error(), "json: unknown field"):
		name := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return fmt.Errorf("The entry %s is not an expected JSON object. Is it misspelled?", name)

	default:
		return err
	}
}

// CheckJSON unmarshals contents into a T, recording any duplicate keys and
// decoding errors in e.
func CheckJSON[T any](contents []byte, e *ErrorLogger) T {
	for _, dup := range FindDuplicateJSONKeys(contents) {
		e.ErrorString("%q is specified more than once", dup)
	}

	var t T
	if err := UnmarshalJSONBytes(contents, &t); err != nil {
		e.Error(err)
	}
	return t
}
