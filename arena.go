package paya

// sentinel marks the end of the free-list chain and the "no free slots"
// state of an Arena's freeHead.
const sentinel uint32 = 0xFFFFFFFF

// entryState tags whether an arena slot currently holds a live value or is
// part of the free list.
type entryState int

const (
	stateOccupied entryState = iota
	stateFree
)

// entry is one slot of an Arena. When Free, next names the next free slot
// in ascending-index order (sentinel if this is the tail).
type entry[T any] struct {
	state   entryState
	version uint16
	value   T
	next    uint32
}

// Arena is a generational free-list of T, addressed by ResourceId. Insert
// and Get are O(1); Remove walks the free list to splice the slot in, so
// that the list is kept in ascending index order and reuse is biased
// toward low indices, which keeps bindless
// descriptor arrays dense. An Arena is not safe for concurrent use; callers
// serialize access the same way they serialize access to a ResourcePool.
type Arena[T any] struct {
	entries  []entry[T]
	freeHead uint32
}

// NewArena returns an empty arena with no slots allocated.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{freeHead: sentinel}
}

// Insert places value into a free slot (or appends a new one) and returns
// the versioned handle that addresses it.
func (a *Arena[T]) Insert(value T) ResourceId {
	if a.freeHead == sentinel {
		idx := uint32(len(a.entries))
		a.entries = append(a.entries, entry[T]{
			state:   stateOccupied,
			version: 0,
			value:   value,
		})
		return ResourceId{Index: idx, Version: 0}
	}

	idx := a.freeHead
	e := &a.entries[idx]
	a.freeHead = e.next
	e.state = stateOccupied
	e.version++
	e.value = value
	e.next = 0
	return ResourceId{Index: idx, Version: e.version}
}

// Get returns a pointer to the value addressed by id. It fails with
// InvalidHandle if id is out of bounds, names a free slot, or carries a
// stale version.
func (a *Arena[T]) Get(id ResourceId) (*T, error) {
	e, err := a.occupied(id)
	if err != nil {
		return nil, err
	}
	return &e.value, nil
}

// Remove evicts the value addressed by id, splices the slot back into the
// free list in ascending index order, and returns the removed value. It
// fails with InvalidHandle under the same preconditions as Get.
func (a *Arena[T]) Remove(id ResourceId) (T, error) {
	var zero T
	e, err := a.occupied(id)
	if err != nil {
		return zero, err
	}
	value := e.value
	e.state = stateFree
	e.value = zero

	a.spliceFree(id.Index)
	return value, nil
}

// DrainOccupied yields every currently occupied value and empties the
// arena. It is intended for pool teardown only.
func (a *Arena[T]) DrainOccupied() []T {
	out := make([]T, 0, len(a.entries))
	for i := range a.entries {
		if a.entries[i].state == stateOccupied {
			out = append(out, a.entries[i].value)
		}
	}
	a.entries = nil
	a.freeHead = sentinel
	return out
}

// Len reports the number of slots the arena has ever allocated, occupied
// or free.
func (a *Arena[T]) Len() int {
	return len(a.entries)
}

func (a *Arena[T]) occupied(id ResourceId) (*entry[T], error) {
	if id.Index >= uint32(len(a.entries)) {
		return nil, newFaultError(KindInvalidHandle, "slot index %d out of bounds (len %d)", id.Index, len(a.entries))
	}
	e := &a.entries[id.Index]
	if e.state != stateOccupied {
		return nil, newFaultError(KindInvalidHandle, "slot index %d is free", id.Index)
	}
	if e.version != id.Version {
		return nil, newFaultError(KindInvalidHandle, "slot index %d version mismatch: have %d, want %d", id.Index, e.version, id.Version)
	}
	return e, nil
}

// spliceFree reinserts removedIndex into the free list, keeping the chain
// in strictly ascending index order.
func (a *Arena[T]) spliceFree(removedIndex uint32) {
	if a.freeHead == sentinel || a.freeHead > removedIndex {
		a.entries[removedIndex].next = a.freeHead
		a.freeHead = removedIndex
		return
	}

	cur := a.freeHead
	for {
		next := a.entries[cur].next
		if next == sentinel || next > removedIndex {
			a.entries[removedIndex].next = next
			a.entries[cur].next = removedIndex
			return
		}
		cur = next
	}
}
