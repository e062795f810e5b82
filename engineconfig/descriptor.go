package engineconfig

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DatasetDescriptor is the two-line text format build-meta produces and
// build-index consumes (§6): `path\n<datatype_name> {C|FORTRAN} d1 d2 ...
// dN`, treated as an opaque input beyond this shape.
type DatasetDescriptor struct {
	Path     string
	Datatype string
	Order    string // "C" or "FORTRAN"
	Dims     []int
}

// ParseDatasetDescriptor reads a dataset-meta file.
func ParseDatasetDescriptor(r io.Reader) (*DatasetDescriptor, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, fmt.Errorf("engineconfig: dataset descriptor: missing path line")
	}
	path := scanner.Text()
	if !scanner.Scan() {
		return nil, fmt.Errorf("engineconfig: dataset descriptor: missing datatype/dims line")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 2 {
		return nil, fmt.Errorf("engineconfig: dataset descriptor: malformed second line %q", scanner.Text())
	}
	datatype, order := fields[0], fields[1]
	if order != "C" && order != "FORTRAN" {
		return nil, fmt.Errorf("engineconfig: dataset descriptor: order must be C or FORTRAN, got %q", order)
	}
	dims := make([]int, 0, len(fields)-2)
	for _, f := range fields[2:] {
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("engineconfig: dataset descriptor: dimension %q: %w", f, err)
		}
		dims = append(dims, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("engineconfig: dataset descriptor: %w", err)
	}
	return &DatasetDescriptor{Path: path, Datatype: datatype, Order: order, Dims: dims}, nil
}

// DatabaseDescriptor maps variable names to their dataset-meta path and
// index-file path (§6): lines `varname.metapath=<path>` and
// `varname.indexpath=<path>`; `#`-prefixed and blank lines are ignored.
type DatabaseDescriptor struct {
	MetaPaths  map[string]string
	IndexPaths map[string]string
}

// ParseDatabaseDescriptor reads a database descriptor file.
func ParseDatabaseDescriptor(r io.Reader) (*DatabaseDescriptor, error) {
	db := &DatabaseDescriptor{MetaPaths: map[string]string{}, IndexPaths: map[string]string{}}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("engineconfig: database descriptor: line %d: missing '=' in %q", lineNo, line)
		}
		varname, kind, ok := strings.Cut(key, ".")
		if !ok {
			return nil, fmt.Errorf("engineconfig: database descriptor: line %d: key %q must be varname.metapath or varname.indexpath", lineNo, key)
		}
		switch kind {
		case "metapath":
			db.MetaPaths[varname] = value
		case "indexpath":
			db.IndexPaths[varname] = value
		default:
			return nil, fmt.Errorf("engineconfig: database descriptor: line %d: unknown key suffix %q", lineNo, kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("engineconfig: database descriptor: %w", err)
	}
	return db, nil
}
