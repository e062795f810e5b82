package region

import (
	"encoding/binary"
	"fmt"
	"io"
)

// run is a maximal run of consecutive RIDs [Start, Start+Length).
type run struct {
	Start  uint32
	Length uint32
}

// CII is II run-length-compressed: a sorted vector of maximal runs of
// consecutive RIDs (§4).
type CII struct {
	domainSize int
	runs       []run
}

func newUniformCII(domainSize int, filled bool) *CII {
	c := &CII{domainSize: domainSize}
	if filled && domainSize > 0 {
		c.runs = []run{{Start: 0, Length: uint32(domainSize)}}
	}
	return c
}

func (r *CII) Type() Type      { return TypeCII }
func (r *CII) DomainSize() int { return r.domainSize }

func (r *CII) ElementCount() int {
	n := 0
	for _, run := range r.runs {
		n += int(run.Length)
	}
	return n
}

func (r *CII) SizeInBytes() int { return 4 + 8*len(r.runs) }

func (r *CII) ConvertToRIDs() []uint32 {
	out := make([]uint32, 0, r.ElementCount())
	for _, run := range r.runs {
		for i := uint32(0); i < run.Length; i++ {
			out = append(out, run.Start+i)
		}
	}
	return out
}

func (r *CII) Uniform() (filled bool, ok bool) {
	switch len(r.runs) {
	case 0:
		return false, true
	case 1:
		return r.runs[0].Start == 0 && r.runs[0].Length == uint32(r.domainSize), true
	default:
		return false, false
	}
}

func (r *CII) Equals(other Region) bool { return regionsEqualByRIDs(r, other) }

func (r *CII) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(r.domainSize)); err != nil {
		return fmt.Errorf("region: cii save domain size: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(r.runs))); err != nil {
		return fmt.Errorf("region: cii save run count: %w", err)
	}
	for _, run := range r.runs {
		if err := binary.Write(w, binary.LittleEndian, run.Start); err != nil {
			return fmt.Errorf("region: cii save run start: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, run.Length); err != nil {
			return fmt.Errorf("region: cii save run length: %w", err)
		}
	}
	return nil
}

func (r *CII) Load(reader io.Reader) error {
	var domainSize, count uint32
	if err := binary.Read(reader, binary.LittleEndian, &domainSize); err != nil {
		return fmt.Errorf("region: cii load domain size: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("region: cii load run count: %w", err)
	}
	r.domainSize = int(domainSize)
	r.runs = make([]run, count)
	for i := range r.runs {
		if err := binary.Read(reader, binary.LittleEndian, &r.runs[i].Start); err != nil {
			return fmt.Errorf("region: cii load run start: %w", err)
		}
		if err := binary.Read(reader, binary.LittleEndian, &r.runs[i].Length); err != nil {
			return fmt.Errorf("region: cii load run length: %w", err)
		}
	}
	return nil
}

// ciiBuilder coalesces adjacent runs as they arrive (§4.1).
type ciiBuilder struct {
	cii *CII
}

func newCIIBuilder(domainSize int) *ciiBuilder {
	return &ciiBuilder{cii: &CII{domainSize: domainSize}}
}

func (b *ciiBuilder) InsertBits(runStart, runLength uint32) {
	if runLength == 0 {
		return
	}
	n := len(b.cii.runs)
	if n > 0 && b.cii.runs[n-1].Start+b.cii.runs[n-1].Length == runStart {
		b.cii.runs[n-1].Length += runLength
		return
	}
	b.cii.runs = append(b.cii.runs, run{Start: runStart, Length: runLength})
}

func (b *ciiBuilder) Finish() Region { return b.cii }
