package encoding

import "fmt"

// Tag values are the single-byte on-disk discriminator for the dynamic
// index_encoding field in a partition header (§6).
const (
	TagEquality uint8 = iota + 1
	TagRange
	TagInterval
	TagBinaryComponent
	TagHierarchical
)

func (Equality) Tag() uint8        { return TagEquality }
func (Range) Tag() uint8           { return TagRange }
func (Interval) Tag() uint8        { return TagInterval }
func (BinaryComponent) Tag() uint8 { return TagBinaryComponent }
func (Hierarchical) Tag() uint8    { return TagHierarchical }

// registry backs By/ByTag, the lookups partition deserialization uses to
// recover an IndexEncoding from its persisted name or tag byte.
var registry = map[string]IndexEncoding{
	Equality{}.Name():        Equality{},
	Range{}.Name():           Range{},
	Interval{}.Name():        Interval{},
	BinaryComponent{}.Name(): BinaryComponent{},
	Hierarchical{}.Name():    Hierarchical{},
}

var byTag = map[uint8]IndexEncoding{
	TagEquality:        Equality{},
	TagRange:           Range{},
	TagInterval:        Interval{},
	TagBinaryComponent: BinaryComponent{},
	TagHierarchical:    Hierarchical{},
}

// By looks up an IndexEncoding by its Name() tag.
func By(name string) (IndexEncoding, error) {
	enc, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("encoding: unknown encoding %q", name)
	}
	return enc, nil
}

// ByTag looks up an IndexEncoding by its persisted single-byte Tag.
func ByTag(tag uint8) (IndexEncoding, error) {
	enc, ok := byTag[tag]
	if !ok {
		return nil, fmt.Errorf("encoding: unknown encoding tag %d", tag)
	}
	return enc, nil
}
