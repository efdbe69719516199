package users

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jordanlanch/campusflow/pkg/auth"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = &models.User{ID: "user_admin", Email: "admin@ucic.edu.mx", Role: models.RoleAdmin}
	gerente = &models.User{ID: "user_ger", Email: "ger@ucic.edu.mx", Role: models.RoleGerente}
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New().Users)
	email := gofakeit.Email()

	t.Run("Success - hashed password and role", func(t *testing.T) {
		u, err := svc.Create(ctx, models.CreateUserRequest{Email: email, Password: "secreto1", Name: "Laura", Role: models.RoleSupervisor})
		require.NoError(t, err)
		assert.Equal(t, models.RoleSupervisor, u.Role)
		assert.True(t, u.IsActive)
		assert.True(t, auth.CheckPassword(u.PasswordHash, "secreto1"))
	})

	t.Run("Error - duplicate email", func(t *testing.T) {
		_, err := svc.Create(ctx, models.CreateUserRequest{Email: email, Password: "secreto1", Name: "Otra"})
		assert.True(t, domain.IsConflict(err))
	})
}

func TestService_Agents(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New().Users)

	active, err := svc.Create(ctx, models.CreateUserRequest{Email: gofakeit.Email(), Password: "secreto1", Name: "A"})
	require.NoError(t, err)
	idle, err := svc.Create(ctx, models.CreateUserRequest{Email: gofakeit.Email(), Password: "secreto1", Name: "B"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, models.CreateUserRequest{Email: gofakeit.Email(), Password: "secreto1", Name: "C", Role: models.RoleGerente})
	require.NoError(t, err)

	off := false
	_, err = svc.Update(ctx, idle.ID, models.UpdateUserRequest{IsActive: &off}, admin)
	require.NoError(t, err)

	agents, err := svc.Agents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, active.ID, agents[0].ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New().Users)
	u, err := svc.Create(ctx, models.CreateUserRequest{Email: gofakeit.Email(), Password: "secreto1", Name: "Laura"})
	require.NoError(t, err)

	t.Run("Error - gerente cannot change roles", func(t *testing.T) {
		role := models.RoleAdmin
		_, err := svc.Update(ctx, u.ID, models.UpdateUserRequest{Role: &role}, gerente)
		assert.True(t, domain.IsForbidden(err))
		assert.Equal(t, MsgRoleAdminOnly, domain.Message(err))
	})

	t.Run("Error - empty update", func(t *testing.T) {
		_, err := svc.Update(ctx, u.ID, models.UpdateUserRequest{}, admin)
		assert.True(t, domain.IsValidation(err))
		assert.Equal(t, MsgNothingToDo, domain.Message(err))
	})

	t.Run("Success - admin changes role and careers", func(t *testing.T) {
		role := models.RoleSupervisor
		careers := []string{"Medicina"}
		updated, err := svc.Update(ctx, u.ID, models.UpdateUserRequest{Role: &role, AssignedCareers: &careers}, admin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleSupervisor, updated.Role)
		assert.True(t, updated.HasCareer("Medicina"))
	})

	t.Run("Success - gerente edits other fields", func(t *testing.T) {
		phone := "+5215512345678"
		updated, err := svc.Update(ctx, u.ID, models.UpdateUserRequest{Phone: &phone}, gerente)
		require.NoError(t, err)
		assert.Equal(t, phone, updated.Phone)
	})

	t.Run("Error - not found", func(t *testing.T) {
		name := "X"
		_, err := svc.Update(ctx, "user_missing", models.UpdateUserRequest{Name: &name}, admin)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New().Users)
	u, err := svc.Create(ctx, models.CreateUserRequest{Email: gofakeit.Email(), Password: "secreto1", Name: "Laura"})
	require.NoError(t, err)

	assert.Equal(t, MsgDeleteSelf, domain.Message(svc.Delete(ctx, admin.ID, admin)))
	require.NoError(t, svc.Delete(ctx, u.ID, admin))
	assert.True(t, domain.IsNotFound(svc.Delete(ctx, u.ID, admin)))
}
