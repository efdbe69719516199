// Package teachers manages the teaching staff catalog.
package teachers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Messages returned to clients.
const (
	MsgNotFound   = "Maestro no encontrado"
	MsgEmailTaken = "El email ya está registrado"
)

// Service handles teacher operations
type Service struct {
	teachers store.Teachers
	now      func() time.Time
}

// NewService creates a new teacher service
func NewService(teachers store.Teachers) *Service {
	return &Service{teachers: teachers, now: time.Now}
}

// Create adds an active teacher. Emails are unique.
func (s *Service) Create(ctx context.Context, req models.CreateTeacherRequest) (*models.Teacher, error) {
	subjects := req.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	now := s.now().UTC()
	t := &models.Teacher{
		ID:        models.NewID(models.PrefixTeacher),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     req.Phone,
		Subjects:  subjects,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.teachers.Create(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.NewConflictError(MsgEmailTaken)
		}
		return nil, domain.NewInternalError("", fmt.Errorf("failed to create teacher: %w", err))
	}
	log.Printf("✅ Teacher created: %s", t.ID)
	return t, nil
}

// List returns every teacher.
func (s *Service) List(ctx context.Context) ([]*models.Teacher, error) {
	list, err := s.teachers.List(ctx)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return list, nil
}

// Get returns one teacher.
func (s *Service) Get(ctx context.Context, id string) (*models.Teacher, error) {
	t, err := s.teachers.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError(MsgNotFound)
	}
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return t, nil
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateTeacherRequest) (*models.Teacher, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		t.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		t.Phone = *req.Phone
	}
	if req.Subjects != nil {
		t.Subjects = *req.Subjects
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.teachers.Update(ctx, t); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, domain.NewConflictError(MsgEmailTaken)
		case errors.Is(err, store.ErrNotFound):
			return nil, domain.NewNotFoundError(MsgNotFound)
		}
		return nil, domain.NewInternalError("", err)
	}
	return t, nil
}

// Delete removes a teacher.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.teachers.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFoundError(MsgNotFound)
		}
		return domain.NewInternalError("", err)
	}
	return nil
}
