package managed

// Kind is the runtime tag of a managed value or type.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBoolean
	KindByte
	KindChar
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindReference
)

var kindNames = [...]string{
	KindVoid:      "void",
	KindBoolean:   "boolean",
	KindByte:      "byte",
	KindChar:      "char",
	KindShort:     "short",
	KindInt:       "int",
	KindLong:      "long",
	KindFloat:     "float",
	KindDouble:    "double",
	KindReference: "reference",
}

var kindDescriptors = [...]byte{
	KindVoid:      'V',
	KindBoolean:   'Z',
	KindByte:      'B',
	KindChar:      'C',
	KindShort:     'S',
	KindInt:       'I',
	KindLong:      'J',
	KindFloat:     'F',
	KindDouble:    'D',
	KindReference: 'L',
}

var wrapperNames = [...]string{
	KindBoolean: "java.lang.Boolean",
	KindByte:    "java.lang.Byte",
	KindChar:    "java.lang.Character",
	KindShort:   "java.lang.Short",
	KindInt:     "java.lang.Integer",
	KindLong:    "java.lang.Long",
	KindFloat:   "java.lang.Float",
	KindDouble:  "java.lang.Double",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// IsPrimitive reports whether k is one of the eight primitive kinds.
func (k Kind) IsPrimitive() bool {
	return k >= KindBoolean && k <= KindDouble
}

// IsNumeric reports whether k is a primitive numeric kind (char included).
func (k Kind) IsNumeric() bool {
	return k >= KindByte && k <= KindDouble
}

// IsIntegral reports whether k holds integer values.
func (k Kind) IsIntegral() bool {
	return k >= KindByte && k <= KindLong
}

// Descriptor returns the one-letter type descriptor ('I' for int).
func (k Kind) Descriptor() byte {
	if int(k) < len(kindDescriptors) {
		return kindDescriptors[k]
	}
	return '?'
}

// WrapperName returns the boxed class name for a primitive kind.
func (k Kind) WrapperName() string {
	if k.IsPrimitive() {
		return wrapperNames[k]
	}
	return ""
}

// kindByName maps primitive type keywords to kinds.
func kindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && Kind(k) != KindReference {
			return Kind(k), true
		}
	}
	return 0, false
}

// kindByDescriptor maps a descriptor letter to its primitive kind.
func kindByDescriptor(c byte) (Kind, bool) {
	for k, d := range kindDescriptors {
		if d == c && Kind(k) != KindReference && Kind(k) != KindVoid {
			return Kind(k), true
		}
	}
	return 0, false
}

// widening ranks primitive numeric kinds along the widening order
// byte < short < int < long < float < double. char sits beside short.
var widening = map[Kind][]Kind{
	KindByte:  {KindShort, KindInt, KindLong, KindFloat, KindDouble},
	KindShort: {KindInt, KindLong, KindFloat, KindDouble},
	KindChar:  {KindInt, KindLong, KindFloat, KindDouble},
	KindInt:   {KindLong, KindFloat, KindDouble},
	KindLong:  {KindFloat, KindDouble},
	KindFloat: {KindDouble},
}

// WideningDistance reports whether from widens to to by a primitive
// widening conversion, and how many steps along the order that takes.
// Identity is distance 0.
func WideningDistance(from, to Kind) (int, bool) {
	if from == to {
		return 0, true
	}
	for i, k := range widening[from] {
		if k == to {
			return i + 1, true
		}
	}
	return 0, false
}

// Widens reports whether from converts to to without narrowing.
func Widens(from, to Kind) bool {
	_, ok := WideningDistance(from, to)
	return ok
}
