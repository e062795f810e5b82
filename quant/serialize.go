package quant

import (
	"encoding/binary"
	"fmt"
	"io"

	"ridx/univ"
)

// Binning type tags: the single-byte dynamic discriminator for a
// quantizer, persisted ahead of its parameters in a partition's
// binning_spec field (§6).
const (
	TagSigbits uint8 = iota + 1
	TagPrecision
	TagExplicit
)

func writeU8(w io.Writer, v uint8) error  { return binary.Write(w, binary.LittleEndian, v) }
func readU8(r io.Reader) (uint8, error) {
	var v uint8
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func saveQuantizer(w io.Writer, q Quantizer) error {
	if err := writeU8(w, uint8(q.Datatype())); err != nil {
		return fmt.Errorf("quant: write datatype tag: %w", err)
	}
	switch t := q.(type) {
	case *SigbitsQuantizer:
		if err := writeU8(w, TagSigbits); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint8(t.Bits))
	case *PrecisionQuantizer:
		if err := writeU8(w, TagPrecision); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint8(t.Digits))
	case *ExplicitQuantizer:
		if err := writeU8(w, TagExplicit); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(t.Boundaries))); err != nil {
			return err
		}
		for _, b := range t.Boundaries {
			if err := saveValue(w, b); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("quant: unknown quantizer type %T", q)
	}
}

func loadQuantizer(r io.Reader) (Quantizer, error) {
	dtTag, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("quant: read datatype tag: %w", err)
	}
	dt := univ.Datatype(dtTag)
	binTag, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("quant: read binning type tag: %w", err)
	}
	switch binTag {
	case TagSigbits:
		var bits uint8
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return nil, fmt.Errorf("quant: read sigbits count: %w", err)
		}
		return NewSigbitsQuantizer(dt, int(bits))
	case TagPrecision:
		var digits uint8
		if err := binary.Read(r, binary.LittleEndian, &digits); err != nil {
			return nil, fmt.Errorf("quant: read precision digits: %w", err)
		}
		return NewPrecisionQuantizer(dt, int(digits))
	case TagExplicit:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("quant: read explicit boundary count: %w", err)
		}
		boundaries := make([]univ.Value, n)
		for i := range boundaries {
			v, err := loadValue(r, dt)
			if err != nil {
				return nil, err
			}
			boundaries[i] = v
		}
		return NewExplicitQuantizer(dt, boundaries)
	default:
		return nil, fmt.Errorf("quant: unknown binning type tag %d", binTag)
	}
}

// saveValue/loadValue serialize a univ.Value for the given datatype's
// natural on-disk representation: fixed-width for numeric types, a
// length-prefixed byte string for String.
func saveValue(w io.Writer, v univ.Value) error {
	if v.Datatype() == univ.String {
		s, err := v.String()
		if err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		_, err = w.Write([]byte(s))
		return err
	}
	bits, err := v.Bits()
	if err != nil {
		return fmt.Errorf("quant: save value: %w", err)
	}
	return binary.Write(w, binary.LittleEndian, bits)
}

func loadValue(r io.Reader, dt univ.Datatype) (univ.Value, error) {
	if dt == univ.String {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return univ.Value{}, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return univ.Value{}, err
		}
		return univ.Str(string(buf)), nil
	}
	var bits uint64
	if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
		return univ.Value{}, err
	}
	switch dt.SignClass() {
	case univ.Unsigned:
		return univ.Uint(dt, bits), nil
	case univ.TwosComplement:
		// Undo Bits(): flip the sign bit back, then sign-extend from the
		// datatype's width.
		signBit := uint64(1) << (uint(dt.ByteWidth())*8 - 1)
		shift := 64 - uint(dt.ByteWidth())*8
		return univ.Int(dt, int64((bits^signBit)<<shift)>>shift), nil
	case univ.OnesComplementFloat:
		return reconstructFromOrderingKey(dt, bits), nil
	default:
		return univ.Value{}, fmt.Errorf("quant: load value: unsupported datatype %s", dt.Name())
	}
}

// Save writes the binning spec's quantizer plus its sorted QKey list
// (§6 binning_spec field). The spec must be populated.
func (b *BinningSpec) Save(w io.Writer) error {
	if !b.populated {
		return fmt.Errorf("quant: save: %w", ErrUnpopulated)
	}
	if err := saveQuantizer(w, b.Quantizer); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b.keys))); err != nil {
		return err
	}
	for _, k := range b.keys {
		if err := binary.Write(w, binary.LittleEndian, uint64(k)); err != nil {
			return err
		}
	}
	return nil
}

// LoadBinningSpec reads a binning spec written by Save.
func LoadBinningSpec(r io.Reader) (*BinningSpec, error) {
	q, err := loadQuantizer(r)
	if err != nil {
		return nil, fmt.Errorf("quant: load binning spec: %w", err)
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("quant: load binning spec: read key count: %w", err)
	}
	keys := make([]QKey, n)
	for i := range keys {
		var k uint64
		if err := binary.Read(r, binary.LittleEndian, &k); err != nil {
			return nil, fmt.Errorf("quant: load binning spec: read key %d: %w", i, err)
		}
		keys[i] = QKey(k)
	}
	spec := NewBinningSpec(q)
	spec.keys = keys
	spec.populated = true
	return spec, nil
}
