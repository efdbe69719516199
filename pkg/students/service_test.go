package students

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/storage"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = &models.User{ID: "user_admin", Name: "Admin", Role: models.RoleAdmin}

func newService(t *testing.T) *Service {
	t.Helper()
	docs, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	return NewService(memstore.New().Students, docs, "ucic.edu.mx")
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - generates institutional email with counter", func(t *testing.T) {
		s := newService(t)

		first, err := s.Create(ctx, models.CreateStudentRequest{FullName: "Ana Pérez"}, admin)
		require.NoError(t, err)
		second, err := s.Create(ctx, models.CreateStudentRequest{FullName: "Ana  Pérez"}, admin)
		require.NoError(t, err)
		third, err := s.Create(ctx, models.CreateStudentRequest{FullName: "ana perez"}, admin)
		require.NoError(t, err)

		assert.Equal(t, "ana.perez@ucic.edu.mx", first.InstitutionalEmail)
		assert.Equal(t, "ana.perez1@ucic.edu.mx", second.InstitutionalEmail)
		assert.Equal(t, "ana.perez2@ucic.edu.mx", third.InstitutionalEmail)
		assert.True(t, first.IsActive)
		assert.NotNil(t, first.CustomFields)
		assert.Empty(t, first.Documents)
	})

	t.Run("Success - explicit email used as is", func(t *testing.T) {
		s := newService(t)
		st, err := s.Create(ctx, models.CreateStudentRequest{FullName: "Ana Pérez", InstitutionalEmail: "A.Perez@ucic.edu.mx"}, admin)
		require.NoError(t, err)
		assert.Equal(t, "a.perez@ucic.edu.mx", st.InstitutionalEmail)
	})

	t.Run("Error - explicit email already taken", func(t *testing.T) {
		s := newService(t)
		_, err := s.Create(ctx, models.CreateStudentRequest{FullName: "Ana Pérez"}, admin)
		require.NoError(t, err)

		_, err = s.Create(ctx, models.CreateStudentRequest{FullName: "Otra", InstitutionalEmail: "ana.perez@ucic.edu.mx"}, admin)
		assert.True(t, domain.IsConflict(err))
		assert.Equal(t, MsgEmailTaken, domain.Message(err))
	})

	t.Run("Error - lead already converted", func(t *testing.T) {
		s := newService(t)
		_, err := s.Create(ctx, models.CreateStudentRequest{FullName: "Ana Pérez", LeadID: "lead_1"}, admin)
		require.NoError(t, err)

		_, err = s.Create(ctx, models.CreateStudentRequest{FullName: "Ana Pérez", LeadID: "lead_1"}, admin)
		assert.True(t, domain.IsConflict(err))
		assert.Equal(t, MsgAlreadyConverted, domain.Message(err))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	a, err := s.Create(ctx, models.CreateStudentRequest{FullName: "Ana Pérez"}, admin)
	require.NoError(t, err)
	b, err := s.Create(ctx, models.CreateStudentRequest{FullName: "Luis Mora"}, admin)
	require.NoError(t, err)

	t.Run("Success - partial update", func(t *testing.T) {
		name := "Ana Pérez Ruiz"
		inactive := false
		got, err := s.Update(ctx, a.ID, models.UpdateStudentRequest{FullName: &name, IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, name, got.FullName)
		assert.False(t, got.IsActive)
		assert.Equal(t, a.InstitutionalEmail, got.InstitutionalEmail)
	})

	t.Run("Error - institutional email of another student", func(t *testing.T) {
		email := a.InstitutionalEmail
		_, err := s.Update(ctx, b.ID, models.UpdateStudentRequest{InstitutionalEmail: &email})
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("Error - unknown student", func(t *testing.T) {
		_, err := s.Update(ctx, "student_missing", models.UpdateStudentRequest{})
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestService_Documents(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	st, err := s.Create(ctx, models.CreateStudentRequest{FullName: "Ana Pérez"}, admin)
	require.NoError(t, err)

	doc, err := s.UploadDocument(ctx, st.ID, Upload{
		Name:     "Acta de nacimiento",
		Filename: "acta.PDF",
		Size:     4,
		Body:     strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acta de nacimiento", doc.Name)
	assert.Equal(t, "acta.PDF", doc.OriginalFilename)
	assert.True(t, strings.HasSuffix(doc.Filename, ".pdf"))
	assert.Equal(t, "application/pdf", doc.ContentType)

	meta, rc, err := s.OpenDocument(ctx, st.ID, doc.ID)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF", string(body))
	assert.Equal(t, doc.ID, meta.ID)

	t.Run("Error - unknown document", func(t *testing.T) {
		_, _, err := s.OpenDocument(ctx, st.ID, "doc_missing")
		assert.True(t, domain.IsNotFound(err))
		assert.Equal(t, MsgDocumentNotFound, domain.Message(err))
	})

	t.Run("Error - too large", func(t *testing.T) {
		_, err := s.UploadDocument(ctx, st.ID, Upload{Filename: "x.pdf", Size: MaxDocumentSize + 1, Body: strings.NewReader("x")})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Success - default name", func(t *testing.T) {
		other, err := s.UploadDocument(ctx, st.ID, Upload{Filename: "foto.png", Body: strings.NewReader("png")})
		require.NoError(t, err)
		assert.Equal(t, "Otro", other.Name)
	})

	require.NoError(t, s.DeleteDocument(ctx, st.ID, doc.ID))
	_, _, err = s.OpenDocument(ctx, st.ID, doc.ID)
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, s.Delete(ctx, st.ID))
	_, err = s.Get(ctx, st.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestService_RecordAttendance(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	st, err := s.Create(ctx, models.CreateStudentRequest{FullName: "Ana Pérez"}, admin)
	require.NoError(t, err)

	t.Run("Success - defaults", func(t *testing.T) {
		rec, err := s.RecordAttendance(ctx, st.ID, models.RecordAttendanceRequest{Subject: "Anatomía"})
		require.NoError(t, err)
		assert.Equal(t, models.AttendancePresente, rec.Status)
		assert.Len(t, rec.Date, len("2006-01-02"))

		got, err := s.Get(ctx, st.ID)
		require.NoError(t, err)
		assert.Len(t, got.Attendance, 1)
	})

	t.Run("Error - invalid status", func(t *testing.T) {
		_, err := s.RecordAttendance(ctx, st.ID, models.RecordAttendanceRequest{Status: "tarde"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Error - unknown student", func(t *testing.T) {
		_, err := s.RecordAttendance(ctx, "student_missing", models.RecordAttendanceRequest{})
		assert.True(t, domain.IsNotFound(err))
	})
}
