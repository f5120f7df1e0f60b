package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed = errors.New("resource backend closed")
	ErrFull   = errors.New("resource backend exhausted")
)

// LocalBackend is an in-memory resource backend with borrow tracking and
// generation-checked handles.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	mu       sync.RWMutex
	live     int
	closed   bool
}

type entry struct {
	value       any
	typeID      TypeID
	gen         uint32
	borrowCount uint32
	live        bool
	used        bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// lookup returns the entry for a handle whose generation matches.
// Caller must hold mu.
func (b *LocalBackend) lookup(handle Handle) *entry {
	slot := handle.slot()
	if slot == 0 || int(slot) > len(b.entries) {
		return nil
	}
	e := &b.entries[slot-1]
	if !e.used || e.gen != handle.generation() {
		return nil
	}
	return e
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID TypeID, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	if len(b.freeList) > 0 {
		slot := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		e := &b.entries[slot-1]
		e.value = value
		e.typeID = typeID
		e.live = true
		e.used = true
		b.live++
		return makeHandle(slot, e.gen), nil
	}

	if len(b.entries) == int(^uint32(0)>>1) {
		return 0, ErrFull
	}

	b.entries = append(b.entries, entry{
		typeID: typeID,
		value:  value,
		gen:    1,
		live:   true,
		used:   true,
	})
	b.live++
	return makeHandle(uint32(len(b.entries)), 1), nil
}

// Get retrieves a live value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil || !e.live {
		return nil, false
	}
	return e.value, true
}

// Live reports whether handle refers to a live entry.
func (b *LocalBackend) Live(handle Handle) bool {
	_, ok := b.Get(handle)
	return ok
}

// TypeID returns the type ID for a live handle.
func (b *LocalBackend) TypeID(handle Handle) (TypeID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil || !e.live {
		return 0, false
	}
	return e.typeID, true
}

// Kind returns the type ID of a handle whose slot has not been reclaimed,
// live or not.
func (b *LocalBackend) Kind(handle Handle) (TypeID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.typeID, true
}

// Borrow increments the borrow count of a live handle.
func (b *LocalBackend) Borrow(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || !e.live {
		return nil, false
	}
	e.borrowCount++
	return e.value, true
}

// ReturnBorrow decrements the borrow count for a handle. An invalidated
// entry is reclaimed when its last borrow returns; the value is returned
// in that case so the caller can release it.
func (b *LocalBackend) ReturnBorrow(handle Handle) (reclaimed any, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.borrowCount == 0 {
		return nil, false
	}
	e.borrowCount--
	if !e.live && e.borrowCount == 0 {
		return b.reclaim(handle.slot(), e), true
	}
	return nil, true
}

// Invalidate ends liveness of a handle.
func (b *LocalBackend) Invalidate(handle Handle) (any, bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || !e.live {
		return nil, false, false
	}

	e.live = false
	b.live--
	value := e.value
	if e.borrowCount > 0 {
		return value, false, true
	}
	b.reclaim(handle.slot(), e)
	return value, true, true
}

// reclaim frees the slot and bumps its generation so outstanding handles go stale.
// Caller must hold mu.
func (b *LocalBackend) reclaim(slot uint32, e *entry) any {
	value := e.value
	e.value = nil
	e.used = false
	e.borrowCount = 0
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	b.freeList = append(b.freeList, slot)
	return value
}

// Close releases all resources.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		e := &b.entries[i]
		if e.used {
			if d, ok := e.value.(Dropper); ok {
				d.Drop()
			}
			e.value = nil
			e.used = false
			e.live = false
		}
	}

	b.entries = nil
	b.freeList = nil
	b.live = 0
	return nil
}

// Len returns the number of live resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all live resources.
func (b *LocalBackend) Each(fn func(Handle, TypeID, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.live {
			if !fn(makeHandle(uint32(i+1), e.gen), e.typeID, e.value) {
				break
			}
		}
	}
}
