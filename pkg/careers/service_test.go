package careers

import (
	"context"
	"testing"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *store.Store, *models.Teacher) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	teacher := &models.Teacher{ID: "teacher_1", Name: "Marta Ruiz", Email: "marta@ucic.edu.mx", IsActive: true}
	require.NoError(t, st.Teachers.Create(ctx, teacher))
	require.NoError(t, st.CareerCatalog.Seed(ctx, []string{"Derecho", "Otra"}))
	return NewService(st), st, teacher
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - resolves teacher names and joins the catalog", func(t *testing.T) {
		svc, st, teacher := setup(t)
		c, err := svc.Create(ctx, models.CreateCareerRequest{
			Name: "Medicina",
			Schedules: []models.ScheduleSlot{
				{Subject: "Anatomía", TeacherID: teacher.ID, Day: "lunes", StartTime: "08:00", EndTime: "10:00"},
				{Subject: "Química", TeacherID: "teacher_gone", Day: "martes", StartTime: "08:00", EndTime: "10:00"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.ModalityPresencial, c.Modality)
		assert.True(t, c.IsActive)
		assert.Equal(t, "Marta Ruiz", c.Schedules[0].TeacherName)
		assert.Empty(t, c.Schedules[1].TeacherName)

		names, err := st.CareerCatalog.Names(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, "Medicina")
	})

	t.Run("Error - duplicate name", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, err := svc.Create(ctx, models.CreateCareerRequest{Name: "Medicina"})
		require.NoError(t, err)
		_, err = svc.Create(ctx, models.CreateCareerRequest{Name: " Medicina "})
		assert.True(t, domain.IsConflict(err))
		assert.Equal(t, MsgExists, domain.Message(err))
	})
}

func TestService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, st, teacher := setup(t)
	c, err := svc.Create(ctx, models.CreateCareerRequest{Name: "Medicina"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, models.CreateCareerRequest{Name: "Psicología"})
	require.NoError(t, err)

	t.Run("Success - rename and new schedule", func(t *testing.T) {
		name := "Medicina General"
		slots := []models.ScheduleSlot{{Subject: "Anatomía", TeacherID: teacher.ID, Day: "lunes", StartTime: "08:00", EndTime: "10:00"}}
		updated, err := svc.Update(ctx, c.ID, models.UpdateCareerRequest{Name: &name, Schedules: &slots})
		require.NoError(t, err)
		assert.Equal(t, "Medicina General", updated.Name)
		assert.Equal(t, "Marta Ruiz", updated.Schedules[0].TeacherName)

		names, err := st.CareerCatalog.Names(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, "Medicina General")
		assert.NotContains(t, names, "Medicina")
	})

	t.Run("Error - rename onto another career", func(t *testing.T) {
		name := "Psicología"
		_, err := svc.Update(ctx, c.ID, models.UpdateCareerRequest{Name: &name})
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("Success - delete removes catalog entry", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, other.ID))
		names, err := st.CareerCatalog.Names(ctx)
		require.NoError(t, err)
		assert.NotContains(t, names, "Psicología")

		_, err = svc.Get(ctx, other.ID)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestService_Names(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)

	_, err := svc.Create(ctx, models.CreateCareerRequest{Name: "Medicina"})
	require.NoError(t, err)
	closed, err := svc.Create(ctx, models.CreateCareerRequest{Name: "Arquitectura"})
	require.NoError(t, err)
	inactive := false
	_, err = svc.Update(ctx, closed.ID, models.UpdateCareerRequest{IsActive: &inactive})
	require.NoError(t, err)

	names, err := svc.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Medicina", names[0])
	assert.ElementsMatch(t, []string{"Medicina", "Derecho", "Otra", "Arquitectura"}, names)
}
