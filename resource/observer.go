package resource

import (
	"go.uber.org/zap"
)

var eventNames = [...]string{
	EventCreated:        "created",
	EventInvalidated:    "invalidated",
	EventReleased:       "released",
	EventBorrowed:       "borrowed",
	EventBorrowReturned: "borrow_returned",
}

func (e EventType) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "unknown"
}

func (id TypeID) String() string {
	switch id {
	case TypeGlobalRef:
		return "global_ref"
	case TypeProxyBinding:
		return "proxy_binding"
	}
	return "unknown"
}

// LogObserver writes every lifecycle event to a zap logger at debug level.
// Borrow traffic is skipped unless Borrows is set.
type LogObserver struct {
	// Logger is called per event so that late SetLogger calls take effect.
	Logger  func() *zap.Logger
	Table   string
	Borrows bool
}

// OnResourceEvent implements Observer.
func (o *LogObserver) OnResourceEvent(e Event) {
	if !o.Borrows && (e.Type == EventBorrowed || e.Type == EventBorrowReturned) {
		return
	}
	log := o.Logger()
	if ce := log.Check(zap.DebugLevel, "resource "+e.Type.String()); ce != nil {
		ce.Write(
			zap.String("table", o.Table),
			zap.Stringer("type", e.TypeID),
			zap.Uint32("slot", e.Handle.slot()),
			zap.Uint32("generation", e.Handle.generation()))
	}
}
