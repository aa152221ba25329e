package dispatch

import (
	"sort"
	"testing"
)

func TestUnionCollectorLaterWriteWins(t *testing.T) {
	c := NewUnionCollector[string, int]()
	_ = c.Add(map[string]int{"a": 1, "b": 2})
	_ = c.Add(map[string]int{"b": 20, "c": 3})

	result := c.Result()
	if result["a"] != 1 || result["b"] != 20 || result["c"] != 3 {
		t.Fatalf("unexpected union result: %+v", result)
	}
}

func TestUnionCollectorEmpty(t *testing.T) {
	c := NewUnionCollector[string, int]()
	if len(c.Result()) != 0 {
		t.Fatalf("expected empty result, got %+v", c.Result())
	}
}

func TestSortedMergeCollectorMergesInOrder(t *testing.T) {
	c := NewSortedMergeCollector(func(a, b int) bool { return a < b })
	_ = c.Add([]int{1, 5, 9})
	_ = c.Add([]int{2, 3})
	_ = c.Add(nil)
	_ = c.Add([]int{0, 100})

	result := c.Result()
	want := []int{0, 1, 2, 3, 5, 9, 100}
	if len(result) != len(want) {
		t.Fatalf("len(result) = %d, want %d (%v)", len(result), len(want), result)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Fatalf("result = %v, want %v", result, want)
		}
	}
	if !sort.IntsAreSorted(result) {
		t.Fatalf("result %v not sorted", result)
	}
}

func TestSortedMergeCollectorNoPartials(t *testing.T) {
	c := NewSortedMergeCollector(func(a, b string) bool { return a < b })
	if result := c.Result(); len(result) != 0 {
		t.Fatalf("expected empty result, got %v", result)
	}
}

func TestSortedMergeCollectorCustomComparator(t *testing.T) {
	// Descending order comparator.
	c := NewSortedMergeCollector(func(a, b int) bool { return a > b })
	_ = c.Add([]int{9, 5, 1})
	_ = c.Add([]int{10, 3})

	result := c.Result()
	want := []int{10, 9, 5, 3, 1}
	for i := range want {
		if result[i] != want[i] {
			t.Fatalf("result = %v, want %v", result, want)
		}
	}
}
