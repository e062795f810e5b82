// Package dataset defines the contract an index builder pulls values
// from (§4.5's "buffered dataset stream"), plus fetch and a small
// concrete reader. Actual raw/HDF5 dataset readers are out of scope
// (§13); this package only needs to prove the boundary works.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"ridx/univ"
)

// ValueStream yields a dataset's values in RID order. Next returns
// ok == false (with a nil error) once the stream is exhausted.
type ValueStream interface {
	Next() (v univ.Value, ok bool, err error)
	Close() error
}

// Fetch reads a descriptor or dataset file from either a URL or a local
// path (§6's dataset/database descriptor files), the same local-or-
// remote dispatch fetcher.FetchJson used for the JSON segment format
// this engine's teacher consumed.
func Fetch(path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return nil, fmt.Errorf("dataset: fetch %s: %w", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("dataset: fetch %s: non-ok HTTP response: %s", path, resp.Status)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("dataset: fetch %s: read response body: %w", path, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: fetch %s: %w", path, err)
	}
	return data, nil
}

// SliceStream is a ValueStream over values already resident in memory —
// the shape a caller that has already decoded its own dataset (by
// whatever means) hands to an index builder.
type SliceStream struct {
	values []univ.Value
	pos    int
}

// NewSliceStream wraps values as a ValueStream.
func NewSliceStream(values []univ.Value) *SliceStream {
	return &SliceStream{values: values}
}

func (s *SliceStream) Next() (univ.Value, bool, error) {
	if s.pos >= len(s.values) {
		return univ.Value{}, false, nil
	}
	v := s.values[s.pos]
	s.pos++
	return v, true, nil
}

func (s *SliceStream) Close() error { return nil }

// TextStream is a ValueStream over a newline-delimited text file of
// numeric literals, one value per RID — a simple concrete reader that
// is deliberately not a raw/HDF5 decoder (§13 leaves those out of
// scope); it exists to exercise the ValueStream contract end to end.
type TextStream struct {
	scanner *bufio.Scanner
	dt      univ.Datatype
	closer  io.Closer
}

// NewTextStream wraps r as a ValueStream of dt-typed values, one per
// non-blank line.
func NewTextStream(r io.Reader, dt univ.Datatype) *TextStream {
	closer, _ := r.(io.Closer)
	return &TextStream{scanner: bufio.NewScanner(r), dt: dt, closer: closer}
}

func (s *TextStream) Next() (univ.Value, bool, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		v, err := parseValue(line, s.dt)
		if err != nil {
			return univ.Value{}, false, fmt.Errorf("dataset: text stream: %w", err)
		}
		return v, true, nil
	}
	if err := s.scanner.Err(); err != nil {
		return univ.Value{}, false, fmt.Errorf("dataset: text stream: %w", err)
	}
	return univ.Value{}, false, nil
}

func (s *TextStream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// ParseValue parses one textual literal as a dt-typed Value, the same
// parsing TextStream applies per line — exported so CLI flag values
// (e.g. a query constraint's bound) can be parsed the same way.
func ParseValue(line string, dt univ.Datatype) (univ.Value, error) {
	return parseValue(line, dt)
}

func parseValue(line string, dt univ.Datatype) (univ.Value, error) {
	switch dt.SignClass() {
	case univ.Unsigned:
		n, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return univ.Value{}, err
		}
		return univ.Uint(dt, n), nil
	case univ.TwosComplement:
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return univ.Value{}, err
		}
		return univ.Int(dt, n), nil
	case univ.OnesComplementFloat:
		f, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return univ.Value{}, err
		}
		return univ.Float(dt, f), nil
	default:
		return univ.Str(line), nil
	}
}

// ReadAll drains a ValueStream into a slice, for callers (tests, small
// CLIs) that don't need streaming behavior.
func ReadAll(s ValueStream) ([]univ.Value, error) {
	var out []univ.Value
	for {
		v, ok, err := s.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
