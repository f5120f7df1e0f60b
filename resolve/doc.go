// Package resolve selects the constructor, method or field a host call
// refers to, from the member name and the already converted arguments.
//
// Candidates are visited in declaration order: members declared on the
// class, then those inherited from superclasses, then interface members.
// An argument fits a parameter by identity, primitive widening, boxing or
// unboxing, reference widening, or by being null for a reference
// parameter.
//
// FirstMatch, the default, takes the first candidate every argument fits.
// MostSpecific scores each fitting candidate and takes the cheapest, with
// declaration order breaking ties. Neither strategy caches: every call is
// resolved again.
package resolve
