package storage

import "testing"

func TestRegistryCreateBucketIdempotent(t *testing.T) {
	r := NewRegistry()
	b1 := r.CreateBucket("orders")
	b2 := r.CreateBucket("orders")
	if b1 != b2 {
		t.Fatal("CreateBucket should return the existing bucket on repeat calls")
	}
}

func TestRegistryBucketLookup(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Bucket("orders"); ok {
		t.Fatal("expected no bucket before creation")
	}
	r.CreateBucket("orders")
	if _, ok := r.Bucket("orders"); !ok {
		t.Fatal("expected bucket after creation")
	}
}

func TestRegistryBucketsListsNames(t *testing.T) {
	r := NewRegistry()
	r.CreateBucket("orders")
	r.CreateBucket("users")

	names := r.Buckets()
	if len(names) != 2 {
		t.Fatalf("Buckets() = %v, want 2 entries", names)
	}
}

func TestRegistryDropBucket(t *testing.T) {
	r := NewRegistry()
	r.CreateBucket("orders")

	if !r.DropBucket("orders") {
		t.Fatal("DropBucket should report true for an existing bucket")
	}
	if r.DropBucket("orders") {
		t.Fatal("DropBucket should report false on second call")
	}
	if _, ok := r.Bucket("orders"); ok {
		t.Fatal("expected bucket gone after DropBucket")
	}
}
