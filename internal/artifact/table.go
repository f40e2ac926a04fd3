// Package artifact persists and reloads tabular intermediate results as CSV
// files, and exports analysis workbooks. Artifacts double as an advisory
// cache: presence of the file means the stage that produces it can be
// skipped.
package artifact

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a rectangular table of text cells with a header row. Latency
// columns are text on purpose: a cell may hold an error sentinel instead of
// a number.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Exists reports whether an artifact file is already present.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SwapExt returns path with its extension replaced, e.g. .json -> .csv.
func SwapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}

// SaveCSV writes the table to path with a header row. Output is
// deterministic: re-saving an unchanged table yields identical bytes.
func (t *Table) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "artifact: create dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "artifact: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return eris.Wrap(err, "artifact: write header")
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "artifact: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "artifact: flush %s", path)
	}

	return nil
}

// LoadCSV reads a table previously written by SaveCSV.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", path)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("artifact: %s has no header row", path)
	}

	return &Table{Columns: records[0], Rows: records[1:]}, nil
}

// Column returns all values of the named column, or an error when the
// column is absent.
func (t *Table) Column(name string) ([]string, error) {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, eris.Errorf("artifact: no column %q", name)
	}

	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}
