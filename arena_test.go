package paya

import "testing"

func TestArenaInsertGet(t *testing.T) {
	a := NewArena[string]()

	id := a.Insert("first")
	if id.Index != 0 || id.Version != 0 {
		t.Fatalf("got %+v, want {Index:0 Version:0}", id)
	}

	got, err := a.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != "first" {
		t.Fatalf("Get = %q, want %q", *got, "first")
	}
}

func TestArenaRemoveBumpsVersionOnReuse(t *testing.T) {
	a := NewArena[int]()

	id := a.Insert(1)
	if _, err := a.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	reused := a.Insert(2)
	if reused.Index != id.Index {
		t.Fatalf("reused.Index = %d, want %d (slot should be reused)", reused.Index, id.Index)
	}
	if reused.Version != id.Version+1 {
		t.Fatalf("reused.Version = %d, want %d", reused.Version, id.Version+1)
	}

	// The stale handle must no longer resolve.
	if _, err := a.Get(id); err == nil {
		t.Fatalf("Get(stale id) succeeded, want InvalidHandle error")
	} else if perr, ok := err.(*Error); !ok || perr.Kind != KindInvalidHandle {
		t.Fatalf("Get(stale id) error = %v, want KindInvalidHandle", err)
	}

	if got, err := a.Get(reused); err != nil || *got != 2 {
		t.Fatalf("Get(reused) = %v, %v, want 2, nil", got, err)
	}
}

func TestArenaGetOutOfBounds(t *testing.T) {
	a := NewArena[int]()
	_, err := a.Get(ResourceId{Index: 0, Version: 0})
	if err == nil {
		t.Fatal("Get on empty arena succeeded, want InvalidHandle error")
	}
}

func TestArenaRemoveDoubleFree(t *testing.T) {
	a := NewArena[int]()
	id := a.Insert(42)

	if _, err := a.Remove(id); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	if _, err := a.Remove(id); err == nil {
		t.Fatal("second Remove on already-free slot succeeded, want InvalidHandle error")
	}
}

func TestArenaFreeListAscendingOrder(t *testing.T) {
	a := NewArena[int]()

	ids := make([]ResourceId, 4)
	for i := range ids {
		ids[i] = a.Insert(i)
	}

	// Free out of index order; slots must be reused in ascending index
	// order regardless of free order, keeping bindless arrays dense.
	if _, err := a.Remove(ids[2]); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Remove(ids[0]); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Remove(ids[3]); err != nil {
		t.Fatal(err)
	}

	first := a.Insert(100)
	second := a.Insert(200)
	third := a.Insert(300)

	if first.Index != 0 {
		t.Fatalf("first reuse Index = %d, want 0", first.Index)
	}
	if second.Index != 2 {
		t.Fatalf("second reuse Index = %d, want 2", second.Index)
	}
	if third.Index != 3 {
		t.Fatalf("third reuse Index = %d, want 3", third.Index)
	}
}

func TestArenaDrainOccupied(t *testing.T) {
	a := NewArena[int]()
	a.Insert(1)
	id := a.Insert(2)
	a.Insert(3)
	if _, err := a.Remove(id); err != nil {
		t.Fatal(err)
	}

	drained := a.DrainOccupied()
	if len(drained) != 2 {
		t.Fatalf("DrainOccupied returned %d values, want 2", len(drained))
	}
	if a.Len() != 0 {
		t.Fatalf("Len after DrainOccupied = %d, want 0", a.Len())
	}
}

func TestArenaLenCountsFreeSlots(t *testing.T) {
	a := NewArena[int]()
	id := a.Insert(1)
	a.Insert(2)
	if _, err := a.Remove(id); err != nil {
		t.Fatal(err)
	}
	if a.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (free slots still count)", a.Len())
	}
}
