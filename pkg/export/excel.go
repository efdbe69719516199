package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName   = "Estudiantes"
	maxColWidth = 50
)

var excelHeaders = []string{"ID", "Nombre", "Email", "Teléfono", "Carrera", "Email Institucional", "Fecha Inscripción"}

func excelRow(st *models.Student, fields []*models.CustomFieldDefinition) []string {
	row := []string{
		st.ID,
		st.FullName,
		st.Email,
		st.Phone,
		st.CareerName,
		st.InstitutionalEmail,
		dateOf(st.CreatedAt),
	}
	for _, f := range fields {
		row = append(row, cellValue(st.CustomFields[f.ID]))
	}
	return row
}

func writeExcel(w io.Writer, students []*models.Student, fields []*models.CustomFieldDefinition) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	headers := append([]string(nil), excelHeaders...)
	for _, fd := range fields {
		headers = append(headers, fd.FieldName)
	}
	widths := make([]int, len(headers))

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		widths[i] = utf8.RuneCountInString(h)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for r, st := range students {
		for c, v := range excelRow(st, fields) {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
			if n := utf8.RuneCountInString(v); n > widths[c] {
				widths[c] = n
			}
		}
	}

	for i, wd := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, col, col, float64(min(wd+2, maxColWidth))); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
