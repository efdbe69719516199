// Package export renders the student roster as Excel or PDF, including the
// custom field columns.
package export

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Export formats.
const (
	FormatExcel = "excel"
	FormatPDF   = "pdf"

	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF   = "application/pdf"
)

// Service handles export business logic
type Service struct {
	students store.Students
	fields   store.CustomFields
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates a new export service
func NewService(st *store.Store, m *metrics.Metrics) *Service {
	return &Service{
		students: st.Students,
		fields:   st.CustomFields,
		metrics:  m,
		now:      time.Now,
	}
}

// File is a rendered export.
type File struct {
	Filename    string
	ContentType string
}

func (s *Service) load(ctx context.Context) ([]*models.Student, []*models.CustomFieldDefinition, error) {
	students, err := s.students.List(ctx)
	if err != nil {
		return nil, nil, domain.NewInternalError("", fmt.Errorf("failed to list students: %w", err))
	}
	fields, err := s.fields.List(ctx)
	if err != nil {
		return nil, nil, domain.NewInternalError("", fmt.Errorf("failed to list custom fields: %w", err))
	}
	return students, fields, nil
}

func (s *Service) filename(ext string) string {
	return "estudiantes_" + s.now().Format("20060102_150405") + "." + ext
}

// Excel writes every student with one column per custom field to w.
func (s *Service) Excel(ctx context.Context, w io.Writer) (*File, error) {
	students, fields, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := writeExcel(w, students, fields); err != nil {
		return nil, domain.NewInternalError("", err)
	}
	s.metrics.RecordExport(FormatExcel)
	return &File{Filename: s.filename("xlsx"), ContentType: ContentTypeExcel}, nil
}

// PDF writes a landscape roster to w. Only the first three custom fields
// fit on the page.
func (s *Service) PDF(ctx context.Context, w io.Writer) (*File, error) {
	students, fields, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := writePDF(w, students, fields, s.now()); err != nil {
		return nil, domain.NewInternalError("", err)
	}
	s.metrics.RecordExport(FormatPDF)
	return &File{Filename: s.filename("pdf"), ContentType: ContentTypePDF}, nil
}

// cellValue renders a custom field value; missing values are empty.
func cellValue(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func dateOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
