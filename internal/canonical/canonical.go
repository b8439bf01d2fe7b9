// Package canonical renders JSON documents in a diff-stable form: object keys
// sorted at every level, array order preserved, fixed two-space indentation and
// a single trailing newline. Every project file is written through Marshal.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const indent = "  "

// Marshal renders v as canonical JSON text.
func Marshal(v any) ([]byte, error) {
	tree, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	// encoding/json emits map keys in sorted order, so rendering the generic
	// tree is enough to sort every nested object.
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("canonical: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Normalize converts v into the generic JSON tree made of map[string]any,
// []any, json.Number, string, bool and nil. Struct field order is discarded.
func Normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}
	return tree, nil
}

// Equal reports whether a and b render to the same canonical text.
func Equal(a, b any) bool {
	ab, err := Marshal(a)
	if err != nil {
		return false
	}
	bb, err := Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// SortedKeys returns the keys of m in lexicographic order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
