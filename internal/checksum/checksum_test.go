package checksum

import "testing"

func TestSum_Stable(t *testing.T) {
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != want {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestDocument_IgnoresKeyOrder(t *testing.T) {
	a, err := Document(map[string]any{"a": 1, "b": []string{"x"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Document(map[string]any{"b": []string{"x"}, "a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("checksums differ: %s vs %s", a, b)
	}

	c, err := Document(map[string]any{"a": 2, "b": []string{"x"}})
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Error("different documents share a checksum")
	}
}
