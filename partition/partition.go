// Package partition implements the partitioned index file format (§4.6,
// §6): a shared-file layout of back-to-back partition blobs followed by
// a footer, each partition blob self-describing its metadata, region
// offset vector and serialized regions.
package partition

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"ridx/encoding"
	"ridx/quant"
	"ridx/region"
	"ridx/univ"
)

func writeU8(w io.Writer, v uint8) error   { return binary.Write(w, binary.LittleEndian, v) }
func writeU64(w io.Writer, v uint64) error { return binary.Write(w, binary.LittleEndian, v) }

func readU8(r io.Reader) (uint8, error) {
	var v uint8
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readU64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// Metadata is a partition's `partition_metadata` (§6): the indexed
// datatype, the RID range it covers, the index encoding and region
// representation it was built with, and its binning spec.
type Metadata struct {
	Datatype     univ.Datatype
	DomainOffset uint64
	DomainLength uint64
	Encoding     encoding.IndexEncoding
	RegionType   region.Type
	Binning      *quant.BinningSpec
}

// Save writes the metadata's fixed fields and dynamic tagged fields
// (index encoding, binning spec) per §6. Index encodings defined in this
// module are stateless, so their "payload" following the tag byte is
// zero-length.
func (m *Metadata) Save(w io.Writer) error {
	if err := writeU8(w, uint8(m.Datatype)); err != nil {
		return fmt.Errorf("partition: save metadata datatype: %w", err)
	}
	if err := writeU64(w, m.DomainOffset); err != nil {
		return fmt.Errorf("partition: save metadata domain offset: %w", err)
	}
	if err := writeU64(w, m.DomainLength); err != nil {
		return fmt.Errorf("partition: save metadata domain length: %w", err)
	}
	if err := writeU8(w, m.Encoding.Tag()); err != nil {
		return fmt.Errorf("partition: save metadata encoding tag: %w", err)
	}
	if err := writeU8(w, uint8(m.RegionType)); err != nil {
		return fmt.Errorf("partition: save metadata region type: %w", err)
	}
	if err := m.Binning.Save(w); err != nil {
		return fmt.Errorf("partition: save metadata binning spec: %w", err)
	}
	return nil
}

// LoadMetadata reads metadata written by Save.
func LoadMetadata(r io.Reader) (*Metadata, error) {
	dt, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("partition: load metadata datatype: %w", err)
	}
	domainOffset, err := readU64(r)
	if err != nil {
		return nil, fmt.Errorf("partition: load metadata domain offset: %w", err)
	}
	domainLength, err := readU64(r)
	if err != nil {
		return nil, fmt.Errorf("partition: load metadata domain length: %w", err)
	}
	encTag, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("partition: load metadata encoding tag: %w", err)
	}
	enc, err := encoding.ByTag(encTag)
	if err != nil {
		return nil, fmt.Errorf("partition: load metadata: %w", err)
	}
	regionTag, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("partition: load metadata region type: %w", err)
	}
	binning, err := quant.LoadBinningSpec(r)
	if err != nil {
		return nil, fmt.Errorf("partition: load metadata binning spec: %w", err)
	}
	return &Metadata{
		Datatype:     univ.Datatype(dt),
		DomainOffset: domainOffset,
		DomainLength: domainLength,
		Encoding:     enc,
		RegionType:   region.Type(regionTag),
		Binning:      binning,
	}, nil
}

// saveRegion writes a region's one-byte type tag followed by its payload
// (§6: "self-describing once the region-rep tag is known").
func saveRegion(w io.Writer, r region.Region) error {
	if err := writeU8(w, uint8(r.Type())); err != nil {
		return fmt.Errorf("partition: save region tag: %w", err)
	}
	return r.Save(w)
}

// loadRegion reads a region tagged payload written by saveRegion.
func loadRegion(r io.Reader) (region.Region, error) {
	tag, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("partition: load region tag: %w", err)
	}
	return region.LoadRegion(region.Type(tag), r)
}

// blob is the in-memory assembly of one partition: a header (metadata +
// region offset vector + content checksum) followed by the concatenated
// region payloads. buildBlob performs the "measure total serialized size
// by a byte-counting pass" step of §4.6 before any allocation happens.
type blob struct {
	header  []byte
	regions []byte
}

func (b blob) size() int64 { return int64(len(b.header) + len(b.regions)) }

// buildBlob serializes meta and regions into a single partition blob,
// including the region-offset vector (relative to the start of the
// region bytes) and an xxhash64 checksum over the concatenated region
// bytes — the partition-level integrity check the teacher's own
// storage/roaring.go left as a TODO.
func buildBlob(meta *Metadata, regions []region.Region) (blob, error) {
	var regionBuf bytes.Buffer
	offsets := make([]uint64, len(regions)+1)
	for i, r := range regions {
		offsets[i] = uint64(regionBuf.Len())
		if err := saveRegion(&regionBuf, r); err != nil {
			return blob{}, fmt.Errorf("partition: build blob: region %d: %w", i, err)
		}
	}
	offsets[len(regions)] = uint64(regionBuf.Len())
	checksum := xxhash.Sum64(regionBuf.Bytes())

	var headerBuf bytes.Buffer
	if err := meta.Save(&headerBuf); err != nil {
		return blob{}, fmt.Errorf("partition: build blob: %w", err)
	}
	if err := writeU64(&headerBuf, uint64(len(offsets))); err != nil {
		return blob{}, err
	}
	for _, off := range offsets {
		if err := writeU64(&headerBuf, off); err != nil {
			return blob{}, err
		}
	}
	if err := writeU64(&headerBuf, checksum); err != nil {
		return blob{}, err
	}
	return blob{header: headerBuf.Bytes(), regions: regionBuf.Bytes()}, nil
}

// parsedHeader is a partition header read back from disk.
type parsedHeader struct {
	meta     *Metadata
	offsets  []uint64 // relative to regionsStart; len == nregions+1
	checksum uint64
}

func parseHeader(r io.Reader) (*parsedHeader, error) {
	meta, err := LoadMetadata(r)
	if err != nil {
		return nil, err
	}
	n, err := readU64(r)
	if err != nil {
		return nil, fmt.Errorf("partition: parse header: read offset count: %w", err)
	}
	offsets := make([]uint64, n)
	for i := range offsets {
		offsets[i], err = readU64(r)
		if err != nil {
			return nil, fmt.Errorf("partition: parse header: read offset %d: %w", i, err)
		}
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("partition: parse header: region offset vector not monotonic at %d", i)
		}
	}
	checksum, err := readU64(r)
	if err != nil {
		return nil, fmt.Errorf("partition: parse header: read checksum: %w", err)
	}
	return &parsedHeader{meta: meta, offsets: offsets, checksum: checksum}, nil
}
