package timesheet

import (
	"bytes"
	"fmt"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"
	"github.com/xuri/excelize/v2"
)

// ExportXLSX renders the grid as a spreadsheet: one row per (project, task),
// one column per day, totals at the edges.
func ExportXLSX(grid *Grid, employeeName string) ([]byte, error) {
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)

	file.SetCellValue(sheet, "A1", fmt.Sprintf("Timesheet - %s (%s to %s)", employeeName, grid.Dates[0], grid.Dates[6]))

	headers := []string{"Project", "Task ID", "Task", "Billing"}
	for _, date := range grid.Dates {
		headers = append(headers, date)
	}
	headers = append(headers, "Total")
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		file.SetCellValue(sheet, cell, header)
	}

	for i, row := range grid.Rows {
		values := []any{row.ProjectID, row.TaskID, row.TaskName, row.Billing}
		for _, seconds := range row.Daily {
			values = append(values, hoursLabel(seconds))
		}
		values = append(values, hoursLabel(grid.RowTotals[i]))
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+3)
			if err != nil {
				return nil, fmt.Errorf("row cell: %w", err)
			}
			file.SetCellValue(sheet, cell, value)
		}
	}

	totalRow := len(grid.Rows) + 3
	file.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total")
	for day, seconds := range grid.DayTotals {
		cell, err := excelize.CoordinatesToCellName(day+5, totalRow)
		if err != nil {
			return nil, fmt.Errorf("total cell: %w", err)
		}
		file.SetCellValue(sheet, cell, hoursLabel(seconds))
	}
	cell, err := excelize.CoordinatesToCellName(12, totalRow)
	if err != nil {
		return nil, fmt.Errorf("grand total cell: %w", err)
	}
	file.SetCellValue(sheet, cell, hoursLabel(grid.Total))

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportPDF renders the grid as a printable weekly report.
func ExportPDF(grid *Grid, employeeName string) ([]byte, error) {
	m := pdf.NewMaroto(consts.Landscape, consts.A4)
	m.SetPageMargins(15, 10, 15)

	m.RegisterHeader(func() {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text("Weekly Timesheet", props.Text{
					Top:   3,
					Style: consts.Bold,
					Align: consts.Center,
					Size:  16,
				})
			})
		})
		m.Row(8, func() {
			m.Col(12, func() {
				m.Text(fmt.Sprintf("%s  |  %s – %s", employeeName, grid.Dates[0], grid.Dates[6]), props.Text{
					Top:   2,
					Align: consts.Center,
					Size:  11,
				})
			})
		})
	})

	headers := []string{"Task"}
	for _, date := range grid.Dates {
		headers = append(headers, date[5:])
	}
	headers = append(headers, "Total")

	rows := make([][]string, 0, len(grid.Rows))
	for i, row := range grid.Rows {
		line := []string{row.TaskName}
		for _, seconds := range row.Daily {
			line = append(line, hoursLabel(seconds))
		}
		line = append(line, hoursLabel(grid.RowTotals[i]))
		rows = append(rows, line)
	}

	grids := []uint{4, 1, 1, 1, 1, 1, 1, 1, 1}
	m.TableList(headers, rows, props.TableList{
		HeaderProp:           props.TableListContent{Size: 9, GridSizes: grids},
		ContentProp:          props.TableListContent{Size: 9, GridSizes: grids},
		Align:                consts.Center,
		AlternatedBackground: &color.Color{Red: 240, Green: 240, Blue: 240},
		HeaderContentSpace:   1,
		Line:                 false,
	})

	m.Row(12, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Week total: %s", hoursLabel(grid.Total)), props.Text{
				Top:   4,
				Style: consts.Bold,
				Align: consts.Right,
				Size:  11,
			})
		})
	})

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func hoursLabel(seconds int64) string {
	if seconds == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", float64(seconds)/3600)
}
