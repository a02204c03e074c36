package memory

import (
	"sort"
	"testing"
)

func TestIDSet(t *testing.T) {
	set := NewIDSet()

	set.Add("tok1")
	set.Add("tok2")
	set.Add("tok2")

	if set.Len() != 2 {
		t.Fatalf("Len = %d, want 2", set.Len())
	}
	if !set.Contains("tok1") {
		t.Fatal("Contains(tok1) = false, want true")
	}
	if set.Contains("nonexistent") {
		t.Fatal("Contains(nonexistent) = true, want false")
	}
	if items := set.Items(); len(items) != 2 {
		t.Fatalf("len(Items()) = %d, want 2", len(items))
	}

	set.Remove("tok1")
	if set.Len() != 1 {
		t.Fatalf("Len after remove = %d, want 1", set.Len())
	}
	if set.Contains("tok1") {
		t.Fatal("Contains(tok1) after remove = true, want false")
	}
}

func TestOwnerIndex(t *testing.T) {
	index := NewOwnerIndex()

	index.Add("usr1", "tok1")
	index.Add("usr1", "tok2")
	index.Add("usr2", "tok3")

	if count := index.Count("usr1"); count != 2 {
		t.Fatalf("Count(usr1) = %d, want 2", count)
	}
	got := index.Get("usr1")
	sort.Strings(got)
	if len(got) != 2 || got[0] != "tok1" || got[1] != "tok2" {
		t.Errorf("Get(usr1) = %v, want [tok1 tok2]", got)
	}

	index.Remove("usr1", "tok1")
	index.Remove("usr1", "tok2")
	if count := index.Count("usr1"); count != 0 {
		t.Errorf("Count(usr1) after remove = %d, want 0", count)
	}
	if got := index.Get("usr1"); got != nil {
		t.Errorf("Get(usr1) after remove = %v, want nil", got)
	}

	// Removing from an unknown owner is a no-op.
	index.Remove("usr9", "tok1")
	if count := index.Count("usr2"); count != 1 {
		t.Errorf("Count(usr2) = %d, want 1", count)
	}
}
