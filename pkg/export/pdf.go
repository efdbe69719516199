package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/jordanlanch/campusflow/pkg/models"
)

// MaxPDFCustomFields is how many custom field columns the PDF carries.
const MaxPDFCustomFields = 3

type pdfColumn struct {
	header string
	width  float64
	limit  int
	value  func(*models.Student) string
}

// pdfColumns lays out the roster. Widths are in millimetres on a landscape
// letter page.
func pdfColumns(fields []*models.CustomFieldDefinition) []pdfColumn {
	cols := []pdfColumn{
		{"Nombre", 38, 25, func(s *models.Student) string { return s.FullName }},
		{"Email", 46, 25, func(s *models.Student) string { return s.Email }},
		{"Teléfono", 30, 15, func(s *models.Student) string { return s.Phone }},
		{"Carrera", 38, 20, func(s *models.Student) string { return s.CareerName }},
		{"Email Inst.", 38, 20, func(s *models.Student) string { return s.InstitutionalEmail }},
	}
	if len(fields) > MaxPDFCustomFields {
		fields = fields[:MaxPDFCustomFields]
	}
	for _, f := range fields {
		id := f.ID
		cols = append(cols, pdfColumn{
			header: truncate(f.FieldName, 15),
			width:  25,
			limit:  15,
			value:  func(s *models.Student) string { return cellValue(s.CustomFields[id]) },
		})
	}
	return cols
}

func writePDF(w io.Writer, students []*models.Student, fields []*models.CustomFieldDefinition, generated time.Time) error {
	pdf := fpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	cols := pdfColumns(fields)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(30, 41, 59)
		pdf.SetTextColor(245, 245, 245)
		for _, c := range cols {
			pdf.CellFormat(c.width, 8, tr(c.header), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr("UCIC - Lista de Estudiantes"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Generado: "+generated.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(6)
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, st := range students {
		if pdf.GetY()+7 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		if i%2 == 1 {
			pdf.SetFillColor(248, 250, 252)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		for _, c := range cols {
			pdf.CellFormat(c.width, 7, tr(truncate(c.value(st), c.limit)), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Total: %d estudiantes", len(students))), "", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
