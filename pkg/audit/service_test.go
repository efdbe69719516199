package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	st := memstore.New()
	svc := NewService(st.AuditLogs)
	ctx := WithIP(context.Background(), "10.0.0.7")

	requester := &models.User{ID: "user_sup", Name: "Sofía", Role: models.RoleSupervisor}
	approver := &models.User{ID: "user_ger", Name: "Gerardo", Role: models.RoleGerente}

	entry, err := svc.Log(ctx, Entry{
		EntityType:   models.EntityStudent,
		EntityID:     "student_1",
		Action:       models.ActionApprove,
		Field:        "Beca",
		OldValue:     nil,
		NewValue:     map[string]int{"pct": 50},
		PerformedBy:  requester,
		AuthorizedBy: approver,
	})
	require.NoError(t, err)

	assert.Regexp(t, `^log_[0-9a-f]{12}$`, entry.ID)
	assert.Equal(t, "", entry.OldValue)
	assert.Equal(t, `{"pct":50}`, entry.NewValue)
	assert.Equal(t, models.RoleSupervisor, entry.PerformedByRole)
	assert.Equal(t, "Gerardo", entry.AuthorizedByName)
	assert.Equal(t, "10.0.0.7", entry.IPAddress)

	listed, err := svc.List(context.Background(), models.AuditFilter{EntityID: "student_1"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, entry.ID, listed[0].ID)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "hola", Stringify("hola"))
	assert.Equal(t, "42", Stringify(42))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, `["a","b"]`, Stringify([]string{"a", "b"}))
}

func TestGetIPAddress(t *testing.T) {
	e := echo.New()
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded chain uses first hop", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"remote addr", nil, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:4242"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			c := e.NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, GetIPAddress(c))
			assert.Equal(t, tt.want, IPFrom(RequestContext(c)))
		})
	}
}
