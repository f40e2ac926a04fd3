// Package extract projects configured field paths out of newline-delimited
// JSON records into a rectangular table.
package extract

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/skylab-research/atlas-cli/internal/fetcher"
	"github.com/skylab-research/atlas-cli/internal/model"
)

// FieldPath addresses a value inside a JSON record, either a top-level name
// or a path through nested objects.
type FieldPath struct {
	parts []string
}

// Name returns a FieldPath for a top-level field.
func Name(name string) FieldPath {
	return FieldPath{parts: []string{name}}
}

// Path returns a FieldPath through nested objects.
func Path(parts ...string) FieldPath {
	return FieldPath{parts: parts}
}

// Key returns the structurally-comparable identifier for this path, used to
// register transforms.
func (p FieldPath) Key() string {
	return strings.Join(p.parts, ".")
}

// resolve walks the path through the record. A missing key or a non-object
// intermediate is fatal: the upstream schema is assumed stable.
func (p FieldPath) resolve(record map[string]any) (any, error) {
	var value any = record
	for _, part := range p.parts {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, eris.Wrapf(model.ErrKeyNotFound, "field %s: %s is not an object", p.Key(), part)
		}
		value, ok = obj[part]
		if !ok {
			return nil, eris.Wrapf(model.ErrKeyNotFound, "field %s: missing %s", p.Key(), part)
		}
	}
	return value, nil
}

// Transform rewrites a projected value before it is appended to its row.
type Transform func(value any) (any, error)

// Table is a rectangular projection of raw records. Cell values keep their
// decoded JSON types (string, float64, bool, nested containers).
type Table struct {
	Columns []string
	Rows    [][]any
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Extract parses NDJSON records from r and projects fields into a table with
// the given column names. A record carrying a top-level "count" field is the
// source API's trailing footer: its declared count must equal the rows
// accumulated so far, and it contributes no row. Rows are sorted by the first
// column, stable on ties.
func Extract(ctx context.Context, r io.Reader, columns []string, fields []FieldPath, transforms map[string]Transform) (*Table, error) {
	if len(columns) != len(fields) {
		return nil, eris.Errorf("extract: %d columns for %d fields", len(columns), len(fields))
	}

	recCh, errCh := fetcher.StreamNDJSON(ctx, r)

	var rows [][]any
	for record := range recCh {
		if declared, ok := record["count"]; ok {
			n, ok := declared.(float64)
			if !ok || int(n) != len(rows) {
				return nil, eris.Wrapf(model.ErrDataIntegrity,
					"extract: footer declares %v records, parsed %d", declared, len(rows))
			}
			continue
		}

		row := make([]any, 0, len(fields))
		for _, field := range fields {
			value, err := field.resolve(record)
			if err != nil {
				return nil, err
			}
			if fn, ok := transforms[field.Key()]; ok {
				value, err = fn(value)
				if err != nil {
					return nil, eris.Wrapf(err, "extract: transform %s", field.Key())
				}
			}
			row = append(row, value)
		}
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return lessValue(rows[i][0], rows[j][0])
	})

	return &Table{Columns: columns, Rows: rows}, nil
}

// lessValue orders first-column sort keys: numerically when both sides are
// numbers, lexically otherwise.
func lessValue(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
