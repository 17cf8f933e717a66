package timesheet

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportXLSX(t *testing.T) {
	a, _ := testAggregator(
		log("P1", "a", "2025-01-06", 3600, false),
		log("P2", "b", "2025-01-07", 1800, false),
	)
	grid, err := a.Build(context.Background(), user(), monday, nil, map[string]string{"P1": "Billable"})
	require.NoError(t, err)

	raw, err := ExportXLSX(grid, "Asha")
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	sheet := file.GetSheetName(0)

	title, err := file.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "Asha")

	header, err := file.GetCellValue(sheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-06", header)

	cell, err := file.GetCellValue(sheet, "E3")
	require.NoError(t, err)
	assert.Equal(t, "1.00", cell)
}

func TestExportPDF(t *testing.T) {
	a, _ := testAggregator(log("P1", "a", "2025-01-06", 3600, false))
	grid, err := a.Build(context.Background(), user(), monday, nil, nil)
	require.NoError(t, err)

	raw, err := ExportPDF(grid, "Asha")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")), "output must be a PDF document")
}
