// Package records loads the tabular data files of a project. Each file
// becomes an ordered sequence of rows keyed by the header line.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cth/internal/util"
)

// Ext is the extension of data files.
const Ext = ".csv"

var (
	// ErrInvalidSelector is returned when a named data file does not exist.
	ErrInvalidSelector = errors.New("invalid data file")
	// ErrNoDataFiles is returned when the data directory holds no data files.
	ErrNoDataFiles = errors.New("no data files found")
)

// Row maps column names to cell values.
type Row map[string]string

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Source is one loaded data file.
type Source struct {
	Name    string // file name, e.g. movies.csv
	Path    string
	ModTime time.Time
	Rows    []Row
}

// Discover lists the data files to build. An empty selector selects every
// data file in dir; otherwise only <selector>.csv is used.
func Discover(dir, selector string) ([]string, error) {
	if selector != "" {
		name := strings.TrimSuffix(selector, Ext) + Ext
		if filepath.Base(name) != name {
			return nil, fmt.Errorf("%w: '%s' must be a file name inside %s", ErrInvalidSelector, selector, dir)
		}
		path := filepath.Join(dir, name)
		if !util.FileExists(path) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidSelector, path)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDataFiles, dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads a delimited file whose first record is the header.
func Load(path string, delimiter rune) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	rows, err := Parse(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &Source{
		Name:    filepath.Base(path),
		Path:    path,
		ModTime: info.ModTime(),
		Rows:    rows,
	}, nil
}

// Parse reads header-keyed rows from r. Short rows leave trailing columns
// unset, extra cells beyond the header are dropped and blank lines are skipped.
func Parse(r io.Reader, delimiter rune) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isEmptyRecord(record) {
			continue
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) && col != "" {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
