package resource

import (
	"sync"
)

var _ Table = (*UnifiedTable)(nil)

// UnifiedTable implements the Table interface using a LocalBackend for storage.
type UnifiedTable struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new unified table with a LocalBackend.
func NewTable() *UnifiedTable {
	return &UnifiedTable{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle.
func (t *UnifiedTable) Insert(typeID TypeID, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle
}

// Get retrieves a live value by handle.
func (t *UnifiedTable) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *UnifiedTable) GetTyped(handle Handle, typeID TypeID) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Live reports whether handle still refers to a live entry.
func (t *UnifiedTable) Live(handle Handle) bool {
	return t.backend.Live(handle)
}

// Borrow pins a live handle. The entry stays addressable, though possibly
// invalidated, until the borrow is returned.
func (t *UnifiedTable) Borrow(handle Handle) (any, bool) {
	value, ok := t.backend.Borrow(handle)
	if !ok {
		return nil, false
	}
	typeID, _ := t.backend.TypeID(handle)
	t.notify(Event{
		Type:   EventBorrowed,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return value, true
}

// Return releases a borrow taken with Borrow.
func (t *UnifiedTable) Return(handle Handle) bool {
	typeID, _ := t.backend.Kind(handle)
	reclaimed, ok := t.backend.ReturnBorrow(handle)
	if !ok {
		return false
	}
	t.notify(Event{
		Type:   EventBorrowReturned,
		Handle: handle,
		TypeID: typeID,
	})
	if reclaimed != nil {
		t.release(handle, typeID, reclaimed)
	}
	return true
}

// Remove invalidates a resource and returns (value, true) if it was live.
// The value is dropped once no borrows remain.
func (t *UnifiedTable) Remove(handle Handle) (any, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, reclaimed, ok := t.backend.Invalidate(handle)
	if !ok {
		return nil, false
	}

	t.notify(Event{
		Type:   EventInvalidated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	if reclaimed {
		t.release(handle, typeID, value)
	}

	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *UnifiedTable) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live resources.
func (t *UnifiedTable) Len() int {
	return t.backend.Len()
}

// Clear invalidates all resources.
func (t *UnifiedTable) Clear() {
	// Collect handles first to avoid holding lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, typeID TypeID, value any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close releases all resources and stops accepting operations.
func (t *UnifiedTable) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *UnifiedTable) release(handle Handle, typeID TypeID, value any) {
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

// Typed provides type-safe access to the entries of one TypeID in a table.
type Typed[T any] struct {
	table  *UnifiedTable
	typeID TypeID
}

// NewTyped creates a typed view over table for typeID.
func NewTyped[T any](table *UnifiedTable, typeID TypeID) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle.
func (t *Typed[T]) Insert(value T) Handle {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a live value by handle.
func (t *Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	return tv, ok
}

// Borrow pins a live value of this type.
func (t *Typed[T]) Borrow(handle Handle) (T, bool) {
	var zero T
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return zero, false
	}
	v, ok := t.table.Borrow(handle)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	if !ok {
		t.table.Return(handle)
		return zero, false
	}
	return tv, true
}

// Return releases a borrow.
func (t *Typed[T]) Return(handle Handle) bool {
	return t.table.Return(handle)
}

// Live reports whether handle is a live entry of this type.
func (t *Typed[T]) Live(handle Handle) bool {
	_, ok := t.table.GetTyped(handle, t.typeID)
	return ok
}

// Remove invalidates a value.
func (t *Typed[T]) Remove(handle Handle) (T, bool) {
	var zero T
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return zero, false
	}
	v, ok := t.table.Remove(handle)
	if !ok {
		return zero, false
	}
	tv, _ := v.(T)
	return tv, true
}

// Len returns the number of live entries of this type.
func (t *Typed[T]) Len() int {
	n := 0
	t.table.backend.Each(func(_ Handle, typeID TypeID, _ any) bool {
		if typeID == t.typeID {
			n++
		}
		return true
	})
	return n
}
