package artifact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "analysis.xlsx")
	sheets := []Sheet{
		{
			Name: "connection_shares",
			Table: &Table{
				Columns: []string{"probe_id", "starlink"},
				Rows:    [][]string{{"51475", "0.98"}},
			},
		},
		{
			Name: "probe_pop_ips",
			Table: &Table{
				Columns: []string{"probe_id", "pop_ips"},
				Rows:    [][]string{{"51475", "100.1.1.1,100.1.1.2"}},
			},
		},
	}

	require.NoError(t, WriteWorkbook(path, sheets))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 2)

	sheet := file.Sheet["connection_shares"]
	require.NotNil(t, sheet)
	assert.Equal(t, "probe_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "0.98", sheet.Rows[1].Cells[1].String())

	pop := file.Sheet["probe_pop_ips"]
	require.NotNil(t, pop)
	assert.Equal(t, "100.1.1.1,100.1.1.2", pop.Rows[1].Cells[1].String())
}

func TestWriteWorkbook_DuplicateSheetName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.xlsx")
	table := &Table{Columns: []string{"a"}}
	err := WriteWorkbook(path, []Sheet{
		{Name: "summary", Table: table},
		{Name: "summary", Table: table},
	})
	require.Error(t, err)
}
