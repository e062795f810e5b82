// Package univ provides the engine's runtime scalar type system: a small,
// fixed set of indexable datatypes and a universal value that can wrap any
// of them, plus checked numeric widening across classes.
//
// # Datatype registry
//
// The set of indexable datatypes is closed and read-mostly: it never
// changes once the process starts. Rather than a dynamic registry, it is
// an immutable table built once at package initialization, mapping a Datatype tag to its
// name, byte width and signedness class. This mirrors the read-mostly
// global state pattern the wider system uses for datatype dispatch.
package univ

import "fmt"

// Datatype tags the four scalar classes this engine can index. The tag
// value is also the on-disk byte used by the partitioned index file
// format (§6) to self-describe a partition's indexed datatype.
type Datatype uint8

const (
	Uint8 Datatype = iota + 1
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	String
)

// SignClass describes how a datatype's bit pattern should be compared
// under sigbits quantization (§3).
type SignClass uint8

const (
	Unsigned SignClass = iota
	TwosComplement
	OnesComplementFloat
	NotNumeric
)

type datatypeInfo struct {
	name      string
	byteWidth int
	sign      SignClass
	numeric   bool
}

var registry = map[Datatype]datatypeInfo{
	Uint8:   {"uint8", 1, Unsigned, true},
	Uint16:  {"uint16", 2, Unsigned, true},
	Uint32:  {"uint32", 4, Unsigned, true},
	Uint64:  {"uint64", 8, Unsigned, true},
	Int8:    {"int8", 1, TwosComplement, true},
	Int16:   {"int16", 2, TwosComplement, true},
	Int32:   {"int32", 4, TwosComplement, true},
	Int64:   {"int64", 8, TwosComplement, true},
	Float32: {"float32", 4, OnesComplementFloat, true},
	Float64: {"float64", 8, OnesComplementFloat, true},
	String:  {"string", 0, NotNumeric, false},
}

// Name returns the datatype's canonical name, e.g. "uint32".
func (d Datatype) Name() string {
	if info, ok := registry[d]; ok {
		return info.name
	}
	return fmt.Sprintf("datatype(%d)", d)
}

// ByteWidth returns the fixed on-wire width in bytes for numeric types, or
// 0 for the variable-length String type.
func (d Datatype) ByteWidth() int {
	return registry[d].byteWidth
}

// SignClass reports which comparison semantics apply to this datatype's
// bit pattern.
func (d Datatype) SignClass() SignClass {
	return registry[d].sign
}

// IsNumeric reports whether the datatype supports numeric widening and
// sigbits/precision quantization.
func (d Datatype) IsNumeric() bool {
	return registry[d].numeric
}

// DatatypeByName looks up a Datatype by its registry name; used by the
// CLI surface (§6) to turn a flag value into a Datatype.
func DatatypeByName(name string) (Datatype, error) {
	for tag, info := range registry {
		if info.name == name {
			return tag, nil
		}
	}
	return 0, fmt.Errorf("univ: unknown datatype name %q", name)
}
