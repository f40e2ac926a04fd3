package artifact

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet pairs a table with its worksheet name.
type Sheet struct {
	Name  string
	Table *Table
}

// WriteWorkbook writes one XLSX file with a worksheet per table, header row
// first. Used for the combined analysis report.
func WriteWorkbook(path string, sheets []Sheet) error {
	file := xlsx.NewFile()

	for _, s := range sheets {
		sheet, err := file.AddSheet(s.Name)
		if err != nil {
			return eris.Wrapf(err, "artifact: add sheet %s", s.Name)
		}

		header := sheet.AddRow()
		for _, col := range s.Table.Columns {
			header.AddCell().SetString(col)
		}
		for _, row := range s.Table.Rows {
			r := sheet.AddRow()
			for _, cell := range row {
				r.AddCell().SetString(cell)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "artifact: create dir for %s", path)
	}
	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "artifact: save workbook %s", path)
	}

	return nil
}
