package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestBucketPutGetRemove(t *testing.T) {
	b := NewBucket("orders")

	if err := b.Put("k1", []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := b.Get("k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("Get = %q, want v1", got)
	}

	if err := b.Remove("k1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := b.Get("k1"); err != ErrKeyNotFound {
		t.Fatalf("Get after Remove = %v, want ErrKeyNotFound", err)
	}
}

func TestBucketStatsCountOperations(t *testing.T) {
	b := NewBucket("orders")
	_ = b.Put("k1", []byte("v1"))
	_, _ = b.Get("k1")
	_, _ = b.Get("missing")
	_ = b.Remove("k1")
	b.CountUpdate()

	stats := b.Stats()
	if stats.Ops.Puts != 1 || stats.Ops.Gets != 2 || stats.Ops.Removes != 1 || stats.Ops.Updates != 1 {
		t.Fatalf("unexpected op counts: %+v", stats.Ops)
	}
}

func TestKeysInRangeLexicographic(t *testing.T) {
	b := NewBucket("orders")
	for _, k := range []string{"c", "a", "e", "b", "d"} {
		_ = b.Put(k, []byte("v"))
	}

	got := b.KeysInRange("b", "d", ComparatorLexicographic, 0, 0)
	want := []string{"b", "c", "d"}
	if !equalSlices(got, want) {
		t.Fatalf("KeysInRange = %v, want %v", got, want)
	}
}

func TestKeysInRangeNumeric(t *testing.T) {
	b := NewBucket("metrics")
	for _, k := range []string{"10", "2", "33", "4", "1"} {
		_ = b.Put(k, []byte("v"))
	}

	got := b.KeysInRange("2", "10", ComparatorNumeric, 0, 0)
	want := []string{"2", "4", "10"}
	if !equalSlices(got, want) {
		t.Fatalf("KeysInRange(numeric) = %v, want %v", got, want)
	}
}

func TestKeysInRangeUnboundedEnds(t *testing.T) {
	b := NewBucket("orders")
	for _, k := range []string{"c", "a", "b"} {
		_ = b.Put(k, []byte("v"))
	}

	got := b.KeysInRange("", "", ComparatorLexicographic, 0, 0)
	want := []string{"a", "b", "c"}
	if !equalSlices(got, want) {
		t.Fatalf("KeysInRange(unbounded) = %v, want %v", got, want)
	}
}

func TestKeysInRangeLimit(t *testing.T) {
	b := NewBucket("orders")
	for _, k := range []string{"a", "b", "c", "d"} {
		_ = b.Put(k, []byte("v"))
	}

	got := b.KeysInRange("a", "d", ComparatorLexicographic, 0, 2)
	if len(got) != 2 {
		t.Fatalf("KeysInRange with limit=2 returned %d keys: %v", len(got), got)
	}
}

func TestKeysInRangeSnapshotReuseWithinTTL(t *testing.T) {
	b := NewBucket("orders")
	_ = b.Put("a", []byte("v"))

	first := b.KeysInRange("a", "z", ComparatorLexicographic, time.Hour, 0)

	// Mutate the value map directly, bypassing Put's invalidation, to prove
	// the cached snapshot (not a fresh scan) is what's reused.
	b.values["b"] = []byte("v")

	second := b.KeysInRange("a", "z", ComparatorLexicographic, time.Hour, 0)
	if !equalSlices(first, second) {
		t.Fatalf("expected cached snapshot to be reused within TTL: first=%v second=%v", first, second)
	}
}

func TestKeysInRangeRebuildsAfterTTLExpiry(t *testing.T) {
	b := NewBucket("orders")
	_ = b.Put("a", []byte("v"))

	_ = b.KeysInRange("a", "z", ComparatorLexicographic, time.Nanosecond, 0)
	time.Sleep(time.Millisecond)
	b.values["b"] = []byte("v")

	got := b.KeysInRange("a", "z", ComparatorLexicographic, time.Nanosecond, 0)
	want := []string{"a", "b"}
	if !equalSlices(got, want) {
		t.Fatalf("expected snapshot rebuild after TTL expiry: got %v, want %v", got, want)
	}
}

func TestMutationInvalidatesSnapshot(t *testing.T) {
	b := NewBucket("orders")
	_ = b.Put("a", []byte("v"))

	_ = b.KeysInRange("a", "z", ComparatorLexicographic, time.Hour, 0)
	_ = b.Put("b", []byte("v"))

	got := b.KeysInRange("a", "z", ComparatorLexicographic, time.Hour, 0)
	want := []string{"a", "b"}
	if !equalSlices(got, want) {
		t.Fatalf("expected Put to invalidate snapshot: got %v, want %v", got, want)
	}
}

func TestFlushEvictsKeysFailingPredicate(t *testing.T) {
	b := NewBucket("orders")
	for _, k := range []string{"a", "b", "c"} {
		_ = b.Put(k, []byte("v"))
	}

	dropped := b.Flush(func(key string) bool { return key != "b" })
	if dropped != 1 {
		t.Fatalf("Flush dropped %d keys, want 1", dropped)
	}

	remaining := b.ListKeys()
	if !equalSlices(sortedCopy(remaining), []string{"a", "c"}) {
		t.Fatalf("remaining keys = %v, want [a c]", remaining)
	}
}

func TestFlushKeepAllIsNoop(t *testing.T) {
	b := NewBucket("orders")
	_ = b.Put("a", []byte("v"))

	dropped := b.Flush(func(string) bool { return true })
	if dropped != 0 {
		t.Fatalf("Flush with always-keep predicate dropped %d keys, want 0", dropped)
	}
}

func TestBucketConcurrentPutsAllVisible(t *testing.T) {
	b := NewBucket("orders")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Put(fmt.Sprintf("k%d", i), []byte(fmt.Sprintf("v%d", i)))
		}(i)
	}
	wg.Wait()

	if len(b.ListKeys()) != 50 {
		t.Fatalf("ListKeys = %d entries, want 50", len(b.ListKeys()))
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
