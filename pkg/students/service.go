// Package students manages enrolled students, their documents and their
// attendance records.
package students

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/storage"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Messages returned to clients.
const (
	MsgNotFound          = "Estudiante no encontrado"
	MsgDocumentNotFound  = "Documento no encontrado"
	MsgFileNotFound      = "Archivo no encontrado"
	MsgEmailTaken        = "El email institucional ya está registrado"
	MsgAlreadyConverted  = "Este lead ya fue convertido en estudiante"
	MsgInvalidAttendance = "Estado de asistencia inválido"
	MsgFileTooLarge      = "El archivo excede el tamaño máximo de 10 MB"
	MsgFileRequired      = "Archivo requerido"
)

const (
	// MaxDocumentSize bounds a single uploaded document.
	MaxDocumentSize = 10 << 20

	defaultDocumentName = "Otro"
	maxInsertAttempts   = 20
)

// Service handles student operations
type Service struct {
	students store.Students
	docs     storage.Storage
	domain   string
	now      func() time.Time
}

// NewService creates a new student service. emailDomain is appended to
// generated institutional addresses.
func NewService(students store.Students, docs storage.Storage, emailDomain string) *Service {
	if emailDomain == "" {
		emailDomain = "ucic.edu.mx"
	}
	return &Service{students: students, docs: docs, domain: emailDomain, now: time.Now}
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewNotFoundError(msg)
	}
	return domain.NewInternalError("", err)
}

// Create registers a student. An empty institutional email is generated from
// the name; an explicit one is used as is and must be unused.
func (s *Service) Create(ctx context.Context, req models.CreateStudentRequest, actor *models.User) (*models.Student, error) {
	if req.LeadID != "" {
		if _, err := s.students.GetByLeadID(ctx, req.LeadID); err == nil {
			return nil, domain.NewConflictError(MsgAlreadyConverted)
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewInternalError("", err)
		}
	}

	explicit := strings.ToLower(strings.TrimSpace(req.InstitutionalEmail))
	if explicit != "" {
		taken, err := s.students.InstitutionalEmailExists(ctx, explicit)
		if err != nil {
			return nil, domain.NewInternalError("", err)
		}
		if taken {
			return nil, domain.NewConflictError(MsgEmailTaken)
		}
	}

	base := EmailBase(req.FullName)
	next := 0
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		email := explicit
		if email == "" {
			var err error
			email, next, err = s.freeEmail(ctx, base, next)
			if err != nil {
				return nil, domain.NewInternalError("", err)
			}
		}

		now := s.now().UTC()
		student := &models.Student{
			ID:                 models.NewID(models.PrefixStudent),
			FullName:           strings.TrimSpace(req.FullName),
			Email:              strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:              strings.TrimSpace(req.Phone),
			CareerID:           req.CareerID,
			CareerName:         req.CareerName,
			InstitutionalEmail: email,
			LeadID:             req.LeadID,
			Documents:          []models.StudentDocument{},
			Attendance:         []models.AttendanceRecord{},
			CustomFields:       map[string]interface{}{},
			IsActive:           true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		err := s.students.Create(ctx, student)
		if err == nil {
			log.Printf("✅ Student created: %s (%s)", student.ID, student.InstitutionalEmail)
			return student, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, domain.NewInternalError("", fmt.Errorf("failed to create student: %w", err))
		}

		// a concurrent insert won one of the unique indexes
		if req.LeadID != "" {
			if _, err := s.students.GetByLeadID(ctx, req.LeadID); err == nil {
				return nil, domain.NewConflictError(MsgAlreadyConverted)
			}
		}
		if explicit != "" {
			return nil, domain.NewConflictError(MsgEmailTaken)
		}
		next++
	}
	return nil, domain.NewInternalError("No se pudo generar el email institucional", nil)
}

// freeEmail probes base, base1, base2... starting at n and returns the first
// unused address with its counter.
func (s *Service) freeEmail(ctx context.Context, base string, n int) (string, int, error) {
	for ; ; n++ {
		email := InstitutionalEmail(base, s.domain, n)
		taken, err := s.students.InstitutionalEmailExists(ctx, email)
		if err != nil {
			return "", n, fmt.Errorf("failed to check institutional email: %w", err)
		}
		if !taken {
			return email, n, nil
		}
	}
}

// List returns every student.
func (s *Service) List(ctx context.Context) ([]*models.Student, error) {
	list, err := s.students.List(ctx)
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to list students: %w", err))
	}
	return list, nil
}

// Get returns one student.
func (s *Service) Get(ctx context.Context, id string) (*models.Student, error) {
	st, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, MsgNotFound)
	}
	return st, nil
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		st.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		st.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		st.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.CareerID != nil {
		st.CareerID = *req.CareerID
	}
	if req.CareerName != nil {
		st.CareerName = *req.CareerName
	}
	if req.IsActive != nil {
		st.IsActive = *req.IsActive
	}
	if req.InstitutionalEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*req.InstitutionalEmail))
		if email != st.InstitutionalEmail {
			taken, err := s.students.InstitutionalEmailExists(ctx, email)
			if err != nil {
				return nil, domain.NewInternalError("", err)
			}
			if taken {
				return nil, domain.NewConflictError(MsgEmailTaken)
			}
			st.InstitutionalEmail = email
		}
	}
	st.UpdatedAt = s.now().UTC()

	if err := s.students.Update(ctx, st); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.NewConflictError(MsgEmailTaken)
		}
		return nil, notFoundOr(err, MsgNotFound)
	}
	return st, nil
}

// Delete removes a student and every stored document.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.docs.DeletePrefix(ctx, id); err != nil {
		log.Printf("⚠️  Failed to delete documents of student %s: %v", id, err)
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return notFoundOr(err, MsgNotFound)
	}
	log.Printf("🗑️  Student %s deleted", id)
	return nil
}

// Upload describes a document being attached to a student.
type Upload struct {
	Name        string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadDocument stores a file and records its metadata on the student.
func (s *Service) UploadDocument(ctx context.Context, id string, up Upload) (*models.StudentDocument, error) {
	if up.Body == nil {
		return nil, domain.NewValidationError(MsgFileRequired)
	}
	if up.Size > MaxDocumentSize {
		return nil, domain.NewValidationError(MsgFileTooLarge)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	docID := models.NewID(models.PrefixDocument)
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if ext == "" {
		ext = ".pdf"
	}
	stored := docID + ext
	contentType := up.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentType(stored)
	}
	name := strings.TrimSpace(up.Name)
	if name == "" {
		name = defaultDocumentName
	}

	key, err := storage.Key(id, stored)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	if err := s.docs.Put(ctx, key, io.LimitReader(up.Body, MaxDocumentSize+1), up.Size, contentType); err != nil {
		return nil, domain.NewInternalError("Error al guardar el archivo", err)
	}

	doc := models.StudentDocument{
		ID:               docID,
		Name:             name,
		Filename:         stored,
		OriginalFilename: up.Filename,
		ContentType:      contentType,
		Size:             up.Size,
		UploadedAt:       s.now().UTC(),
	}
	if err := s.students.AddDocument(ctx, id, doc); err != nil {
		_ = s.docs.Delete(ctx, key)
		return nil, notFoundOr(err, MsgNotFound)
	}
	return &doc, nil
}

// DeleteDocument removes a document file and its metadata.
func (s *Service) DeleteDocument(ctx context.Context, id, docID string) error {
	st, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	doc := st.Document(docID)
	if doc == nil {
		return domain.NewNotFoundError(MsgDocumentNotFound)
	}

	if key, err := storage.Key(id, doc.Filename); err == nil {
		if err := s.docs.Delete(ctx, key); err != nil {
			log.Printf("⚠️  Failed to delete file %s: %v", key, err)
		}
	}
	if err := s.students.RemoveDocument(ctx, id, docID); err != nil {
		return notFoundOr(err, MsgDocumentNotFound)
	}
	return nil
}

// OpenDocument returns the metadata and content of a document. The caller
// closes the reader.
func (s *Service) OpenDocument(ctx context.Context, id, docID string) (*models.StudentDocument, io.ReadCloser, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	doc := st.Document(docID)
	if doc == nil {
		return nil, nil, domain.NewNotFoundError(MsgDocumentNotFound)
	}

	key, err := storage.Key(id, doc.Filename)
	if err != nil {
		return nil, nil, domain.NewNotFoundError(MsgFileNotFound)
	}
	rc, err := s.docs.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, domain.NewNotFoundError(MsgFileNotFound)
	}
	if err != nil {
		return nil, nil, domain.NewInternalError("", err)
	}
	if doc.ContentType == "" {
		doc.ContentType = storage.ContentType(doc.Filename)
	}
	return doc, rc, nil
}

// RecordAttendance appends an attendance entry. Date defaults to today and
// status to presente.
func (s *Service) RecordAttendance(ctx context.Context, id string, req models.RecordAttendanceRequest) (*models.AttendanceRecord, error) {
	status := req.Status
	if status == "" {
		status = models.AttendancePresente
	}
	switch status {
	case models.AttendancePresente, models.AttendanceAusente, models.AttendanceJustificado:
	default:
		return nil, domain.NewValidationError(MsgInvalidAttendance)
	}
	date := req.Date
	if date == "" {
		date = s.now().UTC().Format("2006-01-02")
	}

	rec := models.AttendanceRecord{
		Date:        date,
		Subject:     req.Subject,
		TeacherID:   req.TeacherID,
		TeacherName: req.TeacherName,
		Status:      status,
		Notes:       req.Notes,
	}
	if err := s.students.AddAttendance(ctx, id, rec); err != nil {
		return nil, notFoundOr(err, MsgNotFound)
	}
	return &rec, nil
}
