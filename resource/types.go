package resource

// Handle is an opaque reference to an entry in a table.
// The low 32 bits hold the slot index (1-based), the high 32 bits the slot
// generation. Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(slot, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot))
}

func (h Handle) slot() uint32 { return uint32(h) }

func (h Handle) generation() uint32 { return uint32(h >> 32) }

// TypeID distinguishes the kinds of values stored in a shared table.
type TypeID uint32

const (
	TypeGlobalRef TypeID = iota + 1
	TypeProxyBinding
)

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventInvalidated
	EventReleased
	EventBorrowed
	EventBorrowReturned
)

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID TypeID
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Backend provides the underlying storage mechanism for resources.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(typeID TypeID, value any) (Handle, error)

	// Get retrieves a live value by handle.
	Get(handle Handle) (any, bool)

	// Invalidate ends the liveness of a handle. The slot is reclaimed once
	// all borrows are returned; reclaimed reports whether that happened now.
	Invalidate(handle Handle) (value any, reclaimed bool, ok bool)

	// Close releases all resources held by the backend.
	Close() error
}

// Table manages resources with type information and observer support.
type Table interface {
	// Insert adds a value and returns its handle.
	Insert(typeID TypeID, value any) Handle

	// Get retrieves a live value by handle.
	Get(handle Handle) (any, bool)

	// GetTyped retrieves a value only if it matches the expected type.
	GetTyped(handle Handle, typeID TypeID) (any, bool)

	// Borrow pins a live handle so its slot is not reused until Return.
	Borrow(handle Handle) (any, bool)

	// Return releases a borrow taken with Borrow.
	Return(handle Handle) bool

	// Live reports whether the handle still refers to a valid entry.
	Live(handle Handle) bool

	// Remove invalidates a resource and returns (value, true) if it was live.
	Remove(handle Handle) (any, bool)

	// Subscribe adds an observer for lifecycle events.
	Subscribe(Observer)

	// Unsubscribe removes an observer.
	Unsubscribe(Observer)

	// Len returns the number of live resources.
	Len() int

	// Clear invalidates all resources.
	Clear()

	// Close releases all resources and stops accepting operations.
	Close() error
}

// Dropper is optionally implemented by resource values that need cleanup
// once their slot is reclaimed.
type Dropper interface {
	Drop()
}
