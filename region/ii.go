package region

import (
	"encoding/binary"
	"fmt"
	"io"
)

// II is the simplest region: a sorted vector of RIDs (§4). On disk it is
// delta-varint encoded — each RID after the first is stored as the
// varint-encoded difference from its predecessor — the same
// varint-delta idiom the teacher's encoders package uses for posting
// list arrays, applied here to a full RID vector instead of container
// values.
type II struct {
	domainSize int
	rids       []uint32 // sorted, deduplicated
}

func newUniformII(domainSize int, filled bool) *II {
	ii := &II{domainSize: domainSize}
	if filled {
		ii.rids = make([]uint32, domainSize)
		for i := range ii.rids {
			ii.rids[i] = uint32(i)
		}
	}
	return ii
}

func (r *II) Type() Type          { return TypeII }
func (r *II) DomainSize() int     { return r.domainSize }
func (r *II) ElementCount() int   { return len(r.rids) }
func (r *II) SizeInBytes() int    { return 4 + 4*len(r.rids) }
func (r *II) ConvertToRIDs() []uint32 {
	out := make([]uint32, len(r.rids))
	copy(out, r.rids)
	return out
}

func (r *II) Uniform() (filled bool, ok bool) {
	if len(r.rids) == 0 {
		return false, true
	}
	if len(r.rids) == r.domainSize {
		return true, true
	}
	return false, false
}

func (r *II) Equals(other Region) bool {
	return regionsEqualByRIDs(r, other)
}

func (r *II) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(r.domainSize)); err != nil {
		return fmt.Errorf("region: ii save domain size: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(r.rids))); err != nil {
		return fmt.Errorf("region: ii save count: %w", err)
	}
	var prev uint32
	for i, rid := range r.rids {
		if i == 0 {
			if err := binary.Write(w, binary.LittleEndian, rid); err != nil {
				return fmt.Errorf("region: ii save first rid: %w", err)
			}
		} else if err := writeVarint(w, uint64(rid-prev)); err != nil {
			return fmt.Errorf("region: ii save delta: %w", err)
		}
		prev = rid
	}
	return nil
}

func (r *II) Load(reader io.Reader) error {
	var domainSize, count uint32
	if err := binary.Read(reader, binary.LittleEndian, &domainSize); err != nil {
		return fmt.Errorf("region: ii load domain size: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("region: ii load count: %w", err)
	}
	r.domainSize = int(domainSize)
	r.rids = make([]uint32, count)
	var prev uint32
	for i := uint32(0); i < count; i++ {
		if i == 0 {
			if err := binary.Read(reader, binary.LittleEndian, &r.rids[0]); err != nil {
				return fmt.Errorf("region: ii load first rid: %w", err)
			}
			prev = r.rids[0]
			continue
		}
		delta, err := readVarint(reader)
		if err != nil {
			return fmt.Errorf("region: ii load delta: %w", err)
		}
		r.rids[i] = prev + uint32(delta)
		prev = r.rids[i]
	}
	return nil
}

// writeVarint and readVarint: adapted from encoders.DeltaEncoder's
// varint helpers, used here for II's on-disk delta encoding.
func writeVarint(w io.Writer, value uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, value)
	_, err := w.Write(buf[:n])
	return err
}

func readVarint(r io.Reader) (uint64, error) {
	var value uint64
	var shift uint
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		value |= uint64(b[0]&0x7F) << shift
		if b[0]&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("region: varint overflow")
		}
	}
	return value, nil
}

func regionsEqualByRIDs(a, b Region) bool {
	if a.DomainSize() != b.DomainSize() {
		return false
	}
	ar, br := a.ConvertToRIDs(), b.ConvertToRIDs()
	if len(ar) != len(br) {
		return false
	}
	for i := range ar {
		if ar[i] != br[i] {
			return false
		}
	}
	return true
}

// iiBuilder accumulates runs into a sorted RID vector.
type iiBuilder struct {
	ii *II
}

func newIIBuilder(domainSize int) *iiBuilder {
	return &iiBuilder{ii: &II{domainSize: domainSize}}
}

func (b *iiBuilder) InsertBits(runStart, runLength uint32) {
	for i := uint32(0); i < runLength; i++ {
		b.ii.rids = append(b.ii.rids, runStart+i)
	}
}

func (b *iiBuilder) Finish() Region { return b.ii }
