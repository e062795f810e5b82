package partition

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"ridx/logging"
	"ridx/metrics"
	"ridx/region"
)

// writeCompressedFooter zstd-compresses plain (the footer's serialized
// bytes) and writes the compressed frame at offset (§11: "optional
// compression of the footer's global-metadata vector" — applied to the
// whole footer, since it is written and read as one unit).
func writeCompressedFooter(backing Backing, offset int64, plain []byte) error {
	var compressed bytes.Buffer
	enc, err := zstd.NewWriter(&compressed)
	if err != nil {
		return fmt.Errorf("partition: compress footer: %w", err)
	}
	if _, err := enc.Write(plain); err != nil {
		enc.Close()
		return fmt.Errorf("partition: compress footer: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("partition: compress footer: %w", err)
	}
	if _, err := backing.WriteAt(compressed.Bytes(), offset); err != nil {
		return fmt.Errorf("partition: write compressed footer: %w", err)
	}
	return nil
}

// readCompressedFooter reads and decompresses the footer frame starting
// at footerOffset.
func readCompressedFooter(backing Backing, footerOffset int64) (io.Reader, error) {
	dec, err := zstd.NewReader(io.NewSectionReader(backing, footerOffset, 1<<62))
	if err != nil {
		return nil, fmt.Errorf("partition: open: decompress footer: %w", err)
	}
	defer dec.Close()
	plain, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("partition: open: decompress footer: %w", err)
	}
	return bytes.NewReader(plain), nil
}

// headerSize is the fixed size, in bytes, of the segment_offsets_header
// at the start of every partitioned index file (two little-endian u64s).
const headerSize = 16

// Allocator hands out monotonically increasing byte ranges within the
// partition segment (§4.7). Both the serial and the parallel (master or
// client) allocators in package alloc satisfy this interface.
type Allocator interface {
	Allocate(size int64) (offset int64, err error)
}

// Backing is the random-access file (or in-memory equivalent) a
// partitioned index file is read from and written to.
type Backing interface {
	io.ReaderAt
	io.WriterAt
}

// Writer appends partitions to a partitioned index file and, once all
// partitions are committed, writes the footer and segment offsets header
// (§4.6). A single Writer corresponds to one writer process; the
// parallel allocator in package alloc coordinates multiple Writers (one
// per rank) sharing one Allocator and one Backing.
type Writer struct {
	backing Backing
	alloc   Allocator
	log     *zap.SugaredLogger

	partitionOffsets []int64 // absolute; one entry per committed partition
	partitionEnds    []int64 // absolute; partitionEnds[i] == partitionOffsets[i] + blob size
	metadata         []*Metadata
	lastEnd          int64
}

// NewWriter begins writing a partitioned index file against backing,
// using alloc to reserve space for each partition. The caller is
// responsible for ensuring alloc's first allocation starts at
// headerSize (the serial allocator in package alloc is constructed this
// way by convention).
func NewWriter(backing Backing, alloc Allocator, logger *zap.SugaredLogger) *Writer {
	return &Writer{backing: backing, alloc: alloc, log: logging.OrNop(logger), lastEnd: headerSize}
}

// WritePartition serializes meta and regions into one partition blob,
// reserves space for it via the allocator, and writes it at the reserved
// offset with two WriteAt calls: the header, then the region blobs
// directly after it. It returns the newly committed partition's ID.
func (w *Writer) WritePartition(meta *Metadata, regions []region.Region) (int, error) {
	b, err := buildBlob(meta, regions)
	if err != nil {
		return 0, fmt.Errorf("partition: write partition: %w", err)
	}
	offset, err := w.alloc.Allocate(b.size())
	if err != nil {
		return 0, fmt.Errorf("partition: write partition: allocate: %w", err)
	}
	if len(w.partitionOffsets) > 0 && offset < w.lastEnd {
		return 0, fmt.Errorf("partition: write partition: allocator returned offset %d, which violates the strictly-increasing commit order invariant (last end %d)", offset, w.lastEnd)
	}
	if _, err := w.backing.WriteAt(b.header, offset); err != nil {
		return 0, fmt.Errorf("partition: write partition: write header: %w", err)
	}
	if _, err := w.backing.WriteAt(b.regions, offset+int64(len(b.header))); err != nil {
		return 0, fmt.Errorf("partition: write partition: write regions: %w", err)
	}
	w.partitionOffsets = append(w.partitionOffsets, offset)
	w.partitionEnds = append(w.partitionEnds, offset+b.size())
	w.metadata = append(w.metadata, meta)
	w.lastEnd = offset + b.size()
	id := len(w.partitionOffsets) - 1
	w.log.Infow("partition: committed", "id", id, "offset", offset, "size", b.size())
	metrics.PartitionsWritten.WithLabelValues(meta.RegionType.String(), meta.Encoding.Name()).Inc()
	return id, nil
}

// Finalize writes the footer and the segment offsets header (§4.6). It
// must be called exactly once, after every partition this writer is
// responsible for has been committed. When several Writers share one
// allocator (§4.7), none of them calls Finalize; the master instead
// passes every rank's Committed records to FinalizeMerged.
func (w *Writer) Finalize() error {
	footerOffset := w.lastEnd
	partitionOffsets := append(append([]int64(nil), w.partitionOffsets...), footerOffset)

	var footerBuf bytes.Buffer
	if err := binary.Write(&footerBuf, binary.LittleEndian, uint64(len(partitionOffsets))); err != nil {
		return fmt.Errorf("partition: finalize: %w", err)
	}
	for _, off := range partitionOffsets {
		if err := binary.Write(&footerBuf, binary.LittleEndian, uint64(off)); err != nil {
			return fmt.Errorf("partition: finalize: %w", err)
		}
	}
	if err := binary.Write(&footerBuf, binary.LittleEndian, uint64(len(w.metadata))); err != nil {
		return fmt.Errorf("partition: finalize: %w", err)
	}
	for i, m := range w.metadata {
		if err := m.Save(&footerBuf); err != nil {
			return fmt.Errorf("partition: finalize: metadata %d: %w", i, err)
		}
	}
	if err := writeCompressedFooter(w.backing, footerOffset, footerBuf.Bytes()); err != nil {
		return fmt.Errorf("partition: finalize: %w", err)
	}

	var headerBuf bytes.Buffer
	if err := binary.Write(&headerBuf, binary.LittleEndian, uint64(headerSize)); err != nil {
		return err
	}
	if err := binary.Write(&headerBuf, binary.LittleEndian, uint64(footerOffset)); err != nil {
		return err
	}
	if _, err := w.backing.WriteAt(headerBuf.Bytes(), 0); err != nil {
		return fmt.Errorf("partition: finalize: write segment offsets header: %w", err)
	}
	w.log.Infow("partition: finalized", "partitions", len(w.metadata), "footer_offset", footerOffset)
	return nil
}

// PartitionRecord is one committed partition's absolute byte range and
// metadata. It is the unit multiple writer ranks exchange so a single
// rank can finalize a file whose partitions several Writers committed
// (§4.7's parallel allocator: "one process is the master... after
// finalize the master writes the footer").
type PartitionRecord struct {
	Offset   int64
	End      int64
	Metadata *Metadata
}

// Committed returns this writer's own committed partitions as
// PartitionRecords, for merging across ranks before FinalizeMerged.
func (w *Writer) Committed() []PartitionRecord {
	out := make([]PartitionRecord, len(w.partitionOffsets))
	for i := range out {
		out[i] = PartitionRecord{Offset: w.partitionOffsets[i], End: w.partitionEnds[i], Metadata: w.metadata[i]}
	}
	return out
}

// FinalizeMerged writes the footer and segment offsets header for a
// file whose partitions were committed by multiple Writer ranks sharing
// one Allocator and Backing: it orders every rank's PartitionRecords by
// offset (the allocator's linearized commit order, §4.7) and finalizes
// exactly as a single Writer's Finalize would. Call this once, from
// whichever rank is acting as master, after every rank has committed its
// partitions and closed.
func FinalizeMerged(backing Backing, records []PartitionRecord) error {
	sorted := append([]PartitionRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var footerOffset int64 = headerSize
	offsets := make([]int64, 0, len(sorted)+1)
	metas := make([]*Metadata, 0, len(sorted))
	for i, rec := range sorted {
		if i > 0 && rec.Offset < sorted[i-1].End {
			return fmt.Errorf("partition: finalize merged: partition at offset %d overlaps previous partition ending at %d", rec.Offset, sorted[i-1].End)
		}
		offsets = append(offsets, rec.Offset)
		metas = append(metas, rec.Metadata)
		if rec.End > footerOffset {
			footerOffset = rec.End
		}
	}
	offsets = append(offsets, footerOffset)

	var footerBuf bytes.Buffer
	if err := binary.Write(&footerBuf, binary.LittleEndian, uint64(len(offsets))); err != nil {
		return fmt.Errorf("partition: finalize merged: %w", err)
	}
	for _, off := range offsets {
		if err := binary.Write(&footerBuf, binary.LittleEndian, uint64(off)); err != nil {
			return fmt.Errorf("partition: finalize merged: %w", err)
		}
	}
	if err := binary.Write(&footerBuf, binary.LittleEndian, uint64(len(metas))); err != nil {
		return fmt.Errorf("partition: finalize merged: %w", err)
	}
	for i, m := range metas {
		if err := m.Save(&footerBuf); err != nil {
			return fmt.Errorf("partition: finalize merged: metadata %d: %w", i, err)
		}
	}
	if err := writeCompressedFooter(backing, footerOffset, footerBuf.Bytes()); err != nil {
		return fmt.Errorf("partition: finalize merged: %w", err)
	}

	var headerBuf bytes.Buffer
	if err := binary.Write(&headerBuf, binary.LittleEndian, uint64(headerSize)); err != nil {
		return err
	}
	if err := binary.Write(&headerBuf, binary.LittleEndian, uint64(footerOffset)); err != nil {
		return err
	}
	if _, err := backing.WriteAt(headerBuf.Bytes(), 0); err != nil {
		return fmt.Errorf("partition: finalize merged: write segment offsets header: %w", err)
	}
	return nil
}

// Reader provides random-access reads over an already-finalized
// partitioned index file.
type Reader struct {
	backing          Backing
	partitionOffsets []int64 // len == NumPartitions()+1
	metadata         []*Metadata
}

// Open reads the segment offsets header and footer of a partitioned
// index file (§4.6) and returns a Reader over it.
func Open(backing Backing) (*Reader, error) {
	headerBuf := make([]byte, headerSize)
	if _, err := backing.ReadAt(headerBuf, 0); err != nil {
		return nil, fmt.Errorf("partition: open: read segment offsets header: %w", err)
	}
	hr := bytes.NewReader(headerBuf)
	partitionSegmentOffset, err := readU64(hr)
	if err != nil {
		return nil, fmt.Errorf("partition: open: %w", err)
	}
	footerOffset, err := readU64(hr)
	if err != nil {
		return nil, fmt.Errorf("partition: open: %w", err)
	}
	if partitionSegmentOffset != headerSize {
		return nil, fmt.Errorf("partition: open: corrupt file: partition segment offset %d != header size %d", partitionSegmentOffset, headerSize)
	}

	footerReader, err := readCompressedFooter(backing, int64(footerOffset))
	if err != nil {
		return nil, fmt.Errorf("partition: open: %w", err)
	}
	var noffsets uint64
	if err := binary.Read(footerReader, binary.LittleEndian, &noffsets); err != nil {
		return nil, fmt.Errorf("partition: open: read footer offset count: %w", err)
	}
	offsets := make([]int64, noffsets)
	for i := range offsets {
		v, err := readU64(footerReader)
		if err != nil {
			return nil, fmt.Errorf("partition: open: read footer offset %d: %w", i, err)
		}
		offsets[i] = int64(v)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] <= offsets[i-1] {
			return nil, fmt.Errorf("partition: open: corrupt file: footer partition offsets not strictly increasing at %d", i)
		}
	}
	if len(offsets) > 0 && offsets[len(offsets)-1] != int64(footerOffset) {
		return nil, fmt.Errorf("partition: open: corrupt file: last footer offset %d != footer segment offset %d", offsets[len(offsets)-1], footerOffset)
	}

	var nmeta uint64
	if err := binary.Read(footerReader, binary.LittleEndian, &nmeta); err != nil {
		return nil, fmt.Errorf("partition: open: read footer metadata count: %w", err)
	}
	if len(offsets) > 0 && nmeta != noffsets-1 {
		return nil, fmt.Errorf("partition: open: corrupt file: %d partitions but %d metadata entries", noffsets-1, nmeta)
	}
	metadata := make([]*Metadata, nmeta)
	for i := range metadata {
		m, err := LoadMetadata(footerReader)
		if err != nil {
			return nil, fmt.Errorf("partition: open: read footer metadata %d: %w", i, err)
		}
		metadata[i] = m
	}

	return &Reader{backing: backing, partitionOffsets: offsets, metadata: metadata}, nil
}

// NumPartitions reports how many partitions the file holds.
func (r *Reader) NumPartitions() int { return len(r.metadata) }

// Metadata returns partition i's metadata.
func (r *Reader) Metadata(i int) (*Metadata, error) {
	if i < 0 || i >= len(r.metadata) {
		return nil, fmt.Errorf("partition: metadata: partition %d out of range [0,%d)", i, len(r.metadata))
	}
	return r.metadata[i], nil
}

// partitionHeader reads and parses partition i's header, returning it
// alongside the absolute byte offset where its region payloads begin.
func (r *Reader) partitionHeader(i int) (*parsedHeader, int64, error) {
	if i < 0 || i >= len(r.metadata) {
		return nil, 0, fmt.Errorf("partition: out of range partition %d", i)
	}
	start := r.partitionOffsets[i]
	end := r.partitionOffsets[i+1]
	sr := io.NewSectionReader(r.backing, start, end-start)
	ph, err := parseHeader(sr)
	if err != nil {
		return nil, 0, fmt.Errorf("partition: read partition %d header: %w", i, err)
	}
	headerLen, err := sr.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("partition: read partition %d header: %w", i, err)
	}
	return ph, start + headerLen, nil
}

// coalesceRuns groups a set of ascending, distinct region IDs into
// maximal contiguous runs (§4.6), so ReadRegions can issue one read per
// run instead of one per region.
func coalesceRuns(ids []int) [][2]int {
	if len(ids) == 0 {
		return nil
	}
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	var runs [][2]int
	runStart := sorted[0]
	prev := sorted[0]
	for _, id := range sorted[1:] {
		if id == prev+1 {
			prev = id
			continue
		}
		runs = append(runs, [2]int{runStart, prev})
		runStart, prev = id, id
	}
	runs = append(runs, [2]int{runStart, prev})
	return runs
}

// RegionSize reports region id's encoded byte size within partition i,
// without reading its payload — the query cost model (§4.8) needs sizes
// for every candidate plan before deciding which one to fetch.
func (r *Reader) RegionSize(partitionID, id int) (int, error) {
	ph, _, err := r.partitionHeader(partitionID)
	if err != nil {
		return 0, err
	}
	nregions := len(ph.offsets) - 1
	if id < 0 || id >= nregions {
		return 0, fmt.Errorf("partition: region size: region %d out of range [0,%d)", id, nregions)
	}
	return int(ph.offsets[id+1] - ph.offsets[id]), nil
}

// CoalescedReadCount reports how many contiguous reads ReadRegions would
// issue for the given region IDs (§4.6), used by the query cost model to
// price the fixed per-coalesced-read seek penalty.
func CoalescedReadCount(ids []int) int {
	return len(coalesceRuns(ids))
}

// ReadRegions reads exactly the requested region IDs from partition i,
// coalescing adjacent IDs into contiguous reads (§4.6).
func (r *Reader) ReadRegions(partitionID int, ids []int) (map[int]region.Region, error) {
	ph, regionsStart, err := r.partitionHeader(partitionID)
	if err != nil {
		return nil, err
	}
	nregions := len(ph.offsets) - 1
	for _, id := range ids {
		if id < 0 || id >= nregions {
			return nil, fmt.Errorf("partition: read regions: region %d out of range [0,%d)", id, nregions)
		}
	}
	out := make(map[int]region.Region, len(ids))
	for _, run := range coalesceRuns(ids) {
		lo, hi := run[0], run[1]
		byteStart := int64(ph.offsets[lo])
		byteEnd := int64(ph.offsets[hi+1])
		buf := make([]byte, byteEnd-byteStart)
		if _, err := r.backing.ReadAt(buf, regionsStart+byteStart); err != nil {
			return nil, fmt.Errorf("partition: read regions: run [%d,%d]: %w", lo, hi, err)
		}
		br := bytes.NewReader(buf)
		for id := lo; id <= hi; id++ {
			reg, err := loadRegion(br)
			if err != nil {
				return nil, fmt.Errorf("partition: read regions: region %d: %w", id, err)
			}
			out[id] = reg
		}
	}
	return out, nil
}

// ReadAllRegions reads every region in partition i and verifies the
// partition's content checksum.
func (r *Reader) ReadAllRegions(partitionID int) ([]region.Region, error) {
	ph, regionsStart, err := r.partitionHeader(partitionID)
	if err != nil {
		return nil, err
	}
	nregions := len(ph.offsets) - 1
	ids := make([]int, nregions)
	for i := range ids {
		ids[i] = i
	}
	byMap, err := r.ReadRegions(partitionID, ids)
	if err != nil {
		return nil, err
	}
	total := int64(ph.offsets[nregions])
	buf := make([]byte, total)
	if _, err := r.backing.ReadAt(buf, regionsStart); err != nil {
		return nil, fmt.Errorf("partition: read all regions: checksum pass: %w", err)
	}
	if got := xxhash.Sum64(buf); got != ph.checksum {
		return nil, fmt.Errorf("partition: read all regions: checksum mismatch: file has %x, computed %x", ph.checksum, got)
	}
	regions := make([]region.Region, nregions)
	for i := range regions {
		regions[i] = byMap[i]
	}
	return regions, nil
}
