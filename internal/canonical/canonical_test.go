package canonical

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeysRecursively(t *testing.T) {
	v := map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"b": true, "a": []any{map[string]any{"y": 1, "x": 2}}},
	}
	out, err := Marshal(v)
	require.NoError(t, err)

	want := `{
  "alpha": {
    "a": [
      {
        "x": 2,
        "y": 1
      }
    ],
    "b": true
  },
  "zeta": 1
}
`
	assert.Equal(t, want, string(out))
}

func TestMarshal_InsertionOrderIrrelevant(t *testing.T) {
	type doc struct {
		B string `json:"b"`
		A string `json:"a"`
	}
	first, err := Marshal(doc{B: "2", A: "1"})
	require.NoError(t, err)
	second, err := Marshal(map[string]any{"a": "1", "b": "2"})
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestMarshal_Idempotent(t *testing.T) {
	v := map[string]any{
		"n":     json.Number("1.50"),
		"big":   json.Number("12345678901234567890"),
		"list":  []any{"c", "a", "b"},
		"html":  "<b>&</b>",
		"empty": map[string]any{},
	}
	first, err := Marshal(v)
	require.NoError(t, err)

	var parsed any
	dec := json.NewDecoder(strings.NewReader(string(first)))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&parsed))

	second, err := Marshal(parsed)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), `"<b>&</b>"`)
	assert.Contains(t, string(first), "1.50")
}

func TestMarshal_ArrayOrderPreserved(t *testing.T) {
	out, err := Marshal([]any{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, "[\n  3,\n  1,\n  2\n]\n", string(out))
}

func TestMarshal_SingleTrailingNewline(t *testing.T) {
	out, err := Marshal("x")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), "\"\n"))
	assert.False(t, strings.HasSuffix(string(out), "\n\n"))
}

func TestMarshal_Unsupported(t *testing.T) {
	_, err := Marshal(map[string]any{"f": func() {}})
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(map[string]int{"a": 1, "b": 2}, map[string]any{"b": 2, "a": 1}))
	assert.False(t, Equal(map[string]int{"a": 1}, map[string]int{"a": 2}))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
