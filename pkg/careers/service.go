// Package careers manages academic programs, their weekly schedules and the
// flat career catalog used by dropdowns.
package careers

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
	MsgNotFound = "Carrera no encontrada"
	MsgExists   = "La carrera ya existe"
)

// Service handles career operations
type Service struct {
	careers  store.Careers
	catalog  store.CareerCatalog
	teachers store.Teachers
	now      func() time.Time
}

// NewService creates a new career service
func NewService(st *store.Store) *Service {
	return &Service{
		careers:  st.Careers,
		catalog:  st.CareerCatalog,
		teachers: st.Teachers,
		now:      time.Now,
	}
}

// withTeacherNames copies slots, filling teacher_name for slots whose
// teacher resolves.
func (s *Service) withTeacherNames(ctx context.Context, slots []models.ScheduleSlot) ([]models.ScheduleSlot, error) {
	out := make([]models.ScheduleSlot, len(slots))
	names := map[string]string{}
	for i, slot := range slots {
		out[i] = slot
		if slot.TeacherID == "" {
			continue
		}
		name, ok := names[slot.TeacherID]
		if !ok {
			t, err := s.teachers.GetByID(ctx, slot.TeacherID)
			switch {
			case err == nil:
				name = t.Name
			case !errors.Is(err, store.ErrNotFound):
				return nil, domain.NewInternalError("", err)
			}
			names[slot.TeacherID] = name
		}
		if name != "" {
			out[i].TeacherName = name
		}
	}
	return out, nil
}

func (s *Service) nameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	existing, err := s.careers.GetByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewInternalError("", err)
	}
	return existing.ID != exceptID, nil
}

// Create adds an active career and lists it in the catalog.
func (s *Service) Create(ctx context.Context, req models.CreateCareerRequest) (*models.Career, error) {
	name := strings.TrimSpace(req.Name)
	taken, err := s.nameTaken(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.NewConflictError(MsgExists)
	}

	schedules, err := s.withTeacherNames(ctx, req.Schedules)
	if err != nil {
		return nil, err
	}
	modality := req.Modality
	if modality == "" {
		modality = models.ModalityPresencial
	}

	now := s.now().UTC()
	c := &models.Career{
		ID:          models.NewID(models.PrefixCareer),
		Name:        name,
		Description: req.Description,
		Modality:    modality,
		Schedules:   schedules,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.careers.Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.NewConflictError(MsgExists)
		}
		return nil, domain.NewInternalError("", fmt.Errorf("failed to create career: %w", err))
	}
	if err := s.catalog.Add(ctx, c.Name); err != nil {
		log.Printf("⚠️  Failed to add %q to career catalog: %v", c.Name, err)
	}

	log.Printf("✅ Career created: %s", c.ID)
	return c, nil
}

// List returns every career.
func (s *Service) List(ctx context.Context) ([]*models.Career, error) {
	list, err := s.careers.List(ctx, false)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return list, nil
}

// Get returns one career.
func (s *Service) Get(ctx context.Context, id string) (*models.Career, error) {
	c, err := s.careers.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError(MsgNotFound)
	}
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return c, nil
}

// Update applies the non-nil fields of req. A rename is mirrored in the
// catalog.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateCareerRequest) (*models.Career, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := c.Name

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		taken, err := s.nameTaken(ctx, name, c.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.NewConflictError(MsgExists)
		}
		c.Name = name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Modality != nil {
		c.Modality = *req.Modality
	}
	if req.Schedules != nil {
		if c.Schedules, err = s.withTeacherNames(ctx, *req.Schedules); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	c.UpdatedAt = s.now().UTC()

	if err := s.careers.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, domain.NewConflictError(MsgExists)
		case errors.Is(err, store.ErrNotFound):
			return nil, domain.NewNotFoundError(MsgNotFound)
		}
		return nil, domain.NewInternalError("", err)
	}

	if c.Name != oldName {
		if err := s.catalog.Remove(ctx, oldName); err != nil {
			log.Printf("⚠️  Failed to remove %q from career catalog: %v", oldName, err)
		}
		if err := s.catalog.Add(ctx, c.Name); err != nil {
			log.Printf("⚠️  Failed to add %q to career catalog: %v", c.Name, err)
		}
	}
	return c, nil
}

// Delete removes a career and its catalog entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.catalog.Remove(ctx, c.Name); err != nil {
		return domain.NewInternalError("", err)
	}
	if err := s.careers.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFoundError(MsgNotFound)
		}
		return domain.NewInternalError("", err)
	}
	return nil
}

// Names returns active career names followed by catalog names not already
// listed.
func (s *Service) Names(ctx context.Context) ([]string, error) {
	active, err := s.careers.List(ctx, true)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	seen := make(map[string]bool, len(active))
	names := make([]string, 0, len(active))
	for _, c := range active {
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}

	catalog, err := s.catalog.Names(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewInternalError("", err)
	}
	for _, n := range catalog {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names, nil
}
