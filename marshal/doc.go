// Package marshal converts values between the host and the managed runtime.
//
// ToManaged picks a managed type from the host value alone. Sized Go numeric
// types keep their width (int32 becomes int, float32 becomes float). Numbers
// without a declared width (int, uint, float64 and friends) climb a fixed
// ladder: int if the value is integral and fits 32 bits, long if it fits 64
// bits (and, for float64, is exactly representable), double otherwise.
// Strings are stored as UTF-16 code units, so every code point survives a
// round trip.
//
// ToManagedAs converts toward a known managed type and rejects any value
// that would lose range or precision on the way. ToHost is the mirror of
// ToManaged: primitives come back as the Go type of their width, boxed
// primitives are unboxed, arrays become []any, and every other object is
// handed out as an opaque *host.Object.
package marshal
