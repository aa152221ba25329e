package coordinator

import (
	"testing"

	"github.com/dreamware/terrastore/internal/cluster"
)

func TestMemoryAddressTablePublishLookup(t *testing.T) {
	table := NewMemoryAddressTable()

	if _, ok := table.Lookup("n1"); ok {
		t.Fatal("expected no address before Publish")
	}

	table.Publish(cluster.NodeAddress{ID: "n1", Host: "h1", Port: 7700})

	addr, ok := table.Lookup("n1")
	if !ok {
		t.Fatal("expected address after Publish")
	}
	if addr.Host != "h1" || addr.Port != 7700 {
		t.Fatalf("unexpected address: %+v", addr)
	}
}

func TestMemoryAddressTablePublishOverwrites(t *testing.T) {
	table := NewMemoryAddressTable()
	table.Publish(cluster.NodeAddress{ID: "n1", Host: "old"})
	table.Publish(cluster.NodeAddress{ID: "n1", Host: "new"})

	addr, _ := table.Lookup("n1")
	if addr.Host != "new" {
		t.Fatalf("expected overwritten host, got %q", addr.Host)
	}
}
