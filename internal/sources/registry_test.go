package sources

import (
	"testing"
)

func TestRegistry_ConnectDisconnect(t *testing.T) {
	r := NewRegistry()

	r.Connect("conn-1", "10.0.0.5:51000")
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}

	src, ok := r.Get("conn-1")
	if !ok {
		t.Fatal("conn-1 should be registered")
	}
	if src.RemoteAddr != "10.0.0.5:51000" {
		t.Errorf("RemoteAddr = %q, want %q", src.RemoteAddr, "10.0.0.5:51000")
	}
	if src.ConnectedAt == 0 {
		t.Error("ConnectedAt should be set")
	}

	r.Disconnect("conn-1")
	if r.Count() != 0 {
		t.Errorf("Count = %d after disconnect, want 0", r.Count())
	}
	if _, ok := r.Get("conn-1"); ok {
		t.Error("conn-1 should be gone after disconnect")
	}
}

func TestRegistry_RecordSeen(t *testing.T) {
	r := NewRegistry()
	r.Connect("conn-1", "a:1")

	r.RecordSeen("conn-1")
	r.RecordSeen("conn-1")
	r.RecordSeen("unknown") // no-op

	src, ok := r.Get("conn-1")
	if !ok {
		t.Fatal("conn-1 should be registered")
	}
	if src.Records != 2 {
		t.Errorf("Records = %d, want 2", src.Records)
	}
	if src.LastRecordAt == 0 {
		t.Error("LastRecordAt should be set")
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	r := NewRegistry()
	r.Connect("b", "b:1")
	r.Connect("a", "a:1")
	r.Connect("c", "c:1")

	// Pin identical connect times so ordering falls back to the id tie-break.
	r.mu.Lock()
	for _, src := range r.sources {
		src.ConnectedAt = 100
	}
	r.mu.Unlock()

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("List length = %d, want 3", len(list))
	}
	for i, want := range []string{"a", "b", "c"} {
		if list[i].ID != want {
			t.Errorf("list[%d].ID = %q, want %q", i, list[i].ID, want)
		}
	}
}
