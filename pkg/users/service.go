// Package users implements staff account administration.
package users

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jordanlanch/campusflow/pkg/auth"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Messages returned to clients.
const (
	MsgNotFound      = "Usuario no encontrado"
	MsgNothingToDo   = "Nada que actualizar"
	MsgRoleAdminOnly = "Solo admin puede cambiar roles"
	MsgDeleteSelf    = "No puedes eliminar tu propia cuenta"
)

// Service handles user administration
type Service struct {
	users store.Users
	now   func() time.Time
}

// NewService creates a new user service
func NewService(users store.Users) *Service {
	return &Service{users: users, now: time.Now}
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	list, err := s.users.List(ctx, store.UserFilter{})
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return list, nil
}

// Agents returns active agentes.
func (s *Service) Agents(ctx context.Context) ([]*models.User, error) {
	list, err := s.users.List(ctx, store.UserFilter{Role: models.RoleAgente, ActiveOnly: true})
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return list, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError(MsgNotFound)
	}
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return u, nil
}

// Create adds an active user with the requested role.
func (s *Service) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	u, err := auth.NewUser(req, s.now())
	if err != nil {
		return nil, err
	}
	if err := auth.InsertUser(ctx, s.users, u); err != nil {
		return nil, err
	}
	log.Printf("✅ User created: %s (%s)", u.Email, u.Role)
	return u, nil
}

// Update applies the non-nil fields of req. Only admins change roles.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateUserRequest, actor *models.User) (*models.User, error) {
	if req.Role != nil && actor.Role != models.RoleAdmin {
		return nil, domain.NewForbiddenError(MsgRoleAdminOnly)
	}
	if req.IsEmpty() {
		return nil, domain.NewValidationError(MsgNothingToDo)
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.AssignedCareers != nil {
		u.AssignedCareers = *req.AssignedCareers
	}
	u.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError(MsgNotFound)
		}
		return nil, domain.NewInternalError("", err)
	}
	return u, nil
}

// Delete removes a user other than actor.
func (s *Service) Delete(ctx context.Context, id string, actor *models.User) error {
	if id == actor.ID {
		return domain.NewValidationError(MsgDeleteSelf)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFoundError(MsgNotFound)
		}
		return domain.NewInternalError("", err)
	}
	log.Printf("🗑️  User deleted: %s by %s", id, actor.Email)
	return nil
}
