package hashfunc

import (
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	inputs := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("ab"),
		[]byte("abc"),
		[]byte("abcd"),
		[]byte("bucket-name/some-key"),
		[]byte("the quick brown fox jumps over the lazy dog"),
	}

	for _, in := range inputs {
		first := Hash(in)
		for i := 0; i < 5; i++ {
			if got := Hash(in); got != first {
				t.Fatalf("Hash(%q) not stable across calls: got %d, want %d", in, got, first)
			}
		}
	}
}

func TestHashDiffersOnDifferentInput(t *testing.T) {
	a := Hash([]byte("bucket-1"))
	b := Hash([]byte("bucket-2"))
	if a == b {
		t.Fatalf("Hash(bucket-1) == Hash(bucket-2) == %d, expected distinct hashes", a)
	}
}

func TestHashEmptyInput(t *testing.T) {
	got := Hash(nil)
	want := Hash([]byte{})
	if got != want {
		t.Fatalf("Hash(nil) = %d, Hash([]byte{}) = %d, want equal", got, want)
	}
}

// TestHashLengthBoundaries exercises every tail-length branch (0..3 bytes
// remaining after consuming 4-byte blocks).
func TestHashLengthBoundaries(t *testing.T) {
	seen := map[uint32]bool{}
	for n := 0; n < 16; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i + 1)
		}
		h := Hash(data)
		seen[h] = true
	}
	if len(seen) < 14 {
		t.Fatalf("expected mostly-distinct hashes across lengths 0..15, got %d distinct values", len(seen))
	}
}

func TestCombineMatchesConcatenatedHash(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{"", ""},
		{"bucket", ""},
		{"", "key"},
		{"bucket", "key"},
		{"a", "bcd"},
		{"abc", "d"},
		{"this-is-a-longer-bucket-name", "and-a-longer-key-too"},
	}

	for _, tc := range cases {
		want := Hash(append([]byte(tc.a), []byte(tc.b)...))
		got := Combine([]byte(tc.a), []byte(tc.b))
		if got != want {
			t.Fatalf("Combine(%q, %q) = %d, want %d (Hash of concatenation)", tc.a, tc.b, got, want)
		}
	}
}

func TestCombineDeterministic(t *testing.T) {
	a, b := []byte("bucket"), []byte("key")
	first := Combine(a, b)
	for i := 0; i < 5; i++ {
		if got := Combine(a, b); got != first {
			t.Fatalf("Combine not stable across calls: got %d, want %d", got, first)
		}
	}
}

func TestCombineDoesNotMutateInputs(t *testing.T) {
	a := []byte("bucket")
	b := []byte("key")
	aCopy := append([]byte(nil), a...)
	bCopy := append([]byte(nil), b...)

	Combine(a, b)

	for i := range a {
		if a[i] != aCopy[i] {
			t.Fatalf("Combine mutated a: %v, want %v", a, aCopy)
		}
	}
	for i := range b {
		if b[i] != bCopy[i] {
			t.Fatalf("Combine mutated b: %v, want %v", b, bCopy)
		}
	}
}
