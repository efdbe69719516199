package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/appointments"
	"github.com/jordanlanch/campusflow/pkg/audit"
	"github.com/jordanlanch/campusflow/pkg/auth"
	"github.com/jordanlanch/campusflow/pkg/cache"
	"github.com/jordanlanch/campusflow/pkg/calendar"
	"github.com/jordanlanch/campusflow/pkg/customfields"
	"github.com/jordanlanch/campusflow/pkg/dashboard"
	"github.com/jordanlanch/campusflow/pkg/email"
	"github.com/jordanlanch/campusflow/pkg/export"
	"github.com/jordanlanch/campusflow/pkg/leadassignment"
	"github.com/jordanlanch/campusflow/pkg/leads"
	"github.com/jordanlanch/campusflow/pkg/logger"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/notification"
	"github.com/jordanlanch/campusflow/pkg/storage"
	"github.com/jordanlanch/campusflow/pkg/store"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/jordanlanch/campusflow/pkg/students"
	"github.com/jordanlanch/campusflow/pkg/users"
	"github.com/jordanlanch/campusflow/pkg/webhook"
	"github.com/jordanlanch/campusflow/pkg/whatsapp"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookToken = "n8n-secret"

type fixture struct {
	st *store.Store

	auth         *AuthHandler
	users        *UserHandler
	leads        *LeadHandler
	students     *StudentHandler
	fields       *CustomFieldsHandler
	webhooks     *WebhookHandler
	calendar     *CalendarHandler
	appointments *AppointmentHandler
	dashboard    *DashboardHandler

	admin      *models.User
	gerente    *models.User
	supervisor *models.User
	agent      *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	c := cache.NewFromRedis(rdb)

	st := memstore.New()
	docs, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	mail := email.NewServiceWithSender(&email.MockSender{}, "http://localhost:3000")
	authSvc := auth.NewService(st, c, mail, auth.NewProviderClient("http://localhost:0"), auth.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
		SessionDays:        7,
	})

	hooks := webhook.NewService(st.Webhooks)
	notifier := notification.NewService(st, hooks, &whatsapp.MockSender{}, mail, nil, logger.Nop())
	auditSvc := audit.NewService(st.AuditLogs)
	studentsSvc := students.NewService(st.Students, docs, "ucic.edu.mx")
	leadsSvc := leads.NewService(st, leadassignment.NewService(st.Users, st.Leads), studentsSvc, auditSvc, notifier, nil, "MX")
	cal := calendar.NewService(calendar.Config{}, st.CalendarTokens, c, nil, logger.Nop())

	f := &fixture{
		st:           st,
		auth:         NewAuthHandler(authSvc, false),
		users:        NewUserHandler(users.NewService(st.Users), authSvc),
		leads:        NewLeadHandler(leadsSvc),
		students:     NewStudentHandler(studentsSvc, export.NewService(st, nil)),
		fields:       NewCustomFieldsHandler(customfields.NewService(st, auditSvc, nil), auditSvc),
		webhooks:     NewWebhookHandler(hooks, leadsSvc, notifier, testWebhookToken),
		calendar:     NewCalendarHandler(cal),
		appointments: NewAppointmentHandler(appointments.NewService(st, notifier, cal)),
		dashboard:    NewDashboardHandler(dashboard.NewService(st, c, nil)),
	}
	f.admin = f.seedUser(t, "admin@ucic.edu.mx", models.RoleAdmin)
	f.gerente = f.seedUser(t, "gerente@ucic.edu.mx", models.RoleGerente)
	f.supervisor = f.seedUser(t, "supervisor@ucic.edu.mx", models.RoleSupervisor)
	f.agent = f.seedUser(t, "agente@ucic.edu.mx", models.RoleAgente)
	return f
}

func (f *fixture) seedUser(t *testing.T, mail string, role models.Role) *models.User {
	t.Helper()
	u, err := auth.NewUser(models.CreateUserRequest{
		Email:    mail,
		Password: "secret123",
		Name:     strings.Split(mail, "@")[0],
		Role:     role,
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.st.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) seedStudent(t *testing.T) *models.Student {
	t.Helper()
	now := time.Now().UTC()
	s := &models.Student{
		ID:           models.NewID(models.PrefixStudent),
		FullName:     "Ana López",
		Email:        "ana@example.com",
		CareerName:   "Derecho",
		Documents:    []models.StudentDocument{},
		Attendance:   []models.AttendanceRecord{},
		CustomFields: map[string]interface{}{},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.st.Students.Create(context.Background(), s))
	return s
}

type request struct {
	method  string
	target  string
	body    string
	user    *models.User
	params  map[string]string
	headers map[string]string
}

func serve(t *testing.T, h echo.HandlerFunc, r request) *httptest.ResponseRecorder {
	t.Helper()
	if r.method == "" {
		r.method = http.MethodGet
	}
	if r.target == "" {
		r.target = "/"
	}
	req := httptest.NewRequest(r.method, r.target, strings.NewReader(r.body))
	if r.body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	return run(t, h, req, r.user, r.params)
}

func run(t *testing.T, h echo.HandlerFunc, req *http.Request, u *models.User, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range params {
		c.SetParamNames(append(c.ParamNames(), name)...)
		c.SetParamValues(append(c.ParamValues(), value)...)
	}
	if u != nil {
		apimw.SetUser(c, u)
	}
	require.NoError(t, h(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAuthHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("Success - register returns a token", func(t *testing.T) {
		rec := serve(t, f.auth.Register, request{
			method: http.MethodPost,
			body:   `{"email":"Nuevo@UCIC.edu.mx","password":"secret123","name":"Nuevo"}`,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.AuthResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "nuevo@ucic.edu.mx", resp.User.Email)
		assert.Equal(t, models.RoleAgente, resp.User.Role)
	})

	t.Run("Error - register with a taken email", func(t *testing.T) {
		rec := serve(t, f.auth.Register, request{
			method: http.MethodPost,
			body:   `{"email":"admin@ucic.edu.mx","password":"secret123","name":"Otro"}`,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Error - malformed body", func(t *testing.T) {
		rec := serve(t, f.auth.Login, request{method: http.MethodPost, body: `{"email":`})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Error - invalid email fails validation", func(t *testing.T) {
		rec := serve(t, f.auth.Login, request{method: http.MethodPost, body: `{"email":"nope","password":"x"}`})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Success - login", func(t *testing.T) {
		rec := serve(t, f.auth.Login, request{
			method: http.MethodPost,
			body:   `{"email":"admin@ucic.edu.mx","password":"secret123"}`,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.AuthResponse
		decode(t, rec, &resp)
		assert.Equal(t, f.admin.ID, resp.User.ID)
	})

	t.Run("Error - wrong password", func(t *testing.T) {
		rec := serve(t, f.auth.Login, request{
			method: http.MethodPost,
			body:   `{"email":"admin@ucic.edu.mx","password":"wrong-one"}`,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Success - me returns the current user", func(t *testing.T) {
		rec := serve(t, f.auth.Me, request{user: f.supervisor})
		require.Equal(t, http.StatusOK, rec.Code)
		var u models.User
		decode(t, rec, &u)
		assert.Equal(t, f.supervisor.ID, u.ID)
	})

	t.Run("Success - logout clears the cookie", func(t *testing.T) {
		rec := serve(t, f.auth.Logout, request{method: http.MethodPost, user: f.admin})
		require.Equal(t, http.StatusOK, rec.Code)

		cookie := rec.Result().Cookies()
		require.Len(t, cookie, 1)
		assert.Equal(t, apimw.SessionCookie, cookie[0].Name)
		assert.Empty(t, cookie[0].Value)
		assert.Equal(t, -1, cookie[0].MaxAge)
	})

	t.Run("Success - forgot password answers the same for unknown emails", func(t *testing.T) {
		rec := serve(t, f.auth.ForgotPassword, request{method: http.MethodPost, body: `{"email":"nadie@ucic.edu.mx"}`})
		require.Equal(t, http.StatusOK, rec.Code)
		var msg models.MessageResponse
		decode(t, rec, &msg)
		assert.Equal(t, auth.MsgForgotPassword, msg.Message)
	})
}

func TestUserHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("Error - only admins change roles", func(t *testing.T) {
		rec := serve(t, f.users.Update, request{
			method: http.MethodPut,
			body:   `{"role":"admin"}`,
			user:   f.gerente,
			params: map[string]string{"id": f.agent.ID},
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Success - admin changes a role", func(t *testing.T) {
		rec := serve(t, f.users.Update, request{
			method: http.MethodPut,
			body:   `{"role":"supervisor"}`,
			user:   f.admin,
			params: map[string]string{"id": f.agent.ID},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var u models.User
		decode(t, rec, &u)
		assert.Equal(t, models.RoleSupervisor, u.Role)
	})

	t.Run("Error - users cannot delete themselves", func(t *testing.T) {
		rec := serve(t, f.users.Delete, request{
			method: http.MethodDelete,
			user:   f.admin,
			params: map[string]string{"id": f.admin.ID},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Error - unknown user", func(t *testing.T) {
		rec := serve(t, f.users.Get, request{user: f.admin, params: map[string]string{"id": "user_missing"}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Success - reset password then login", func(t *testing.T) {
		rec := serve(t, f.users.ResetPassword, request{
			method: http.MethodPost,
			body:   `{"new_password":"another123"}`,
			user:   f.admin,
			params: map[string]string{"id": f.gerente.ID},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = serve(t, f.auth.Login, request{
			method: http.MethodPost,
			body:   `{"email":"gerente@ucic.edu.mx","password":"another123"}`,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestLeadHandler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	foreign := &models.Lead{
		ID:              models.NewID(models.PrefixLead),
		FullName:        "Luis Pérez",
		CareerInterest:  "Derecho",
		Source:          models.SourceManual,
		Status:          models.StatusInformacion,
		AssignedAgentID: "user_someone_else",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.st.Leads.Create(ctx, foreign))

	t.Run("Success - create a lead", func(t *testing.T) {
		rec := serve(t, f.leads.Create, request{
			method: http.MethodPost,
			body:   `{"full_name":"María Ruiz","career_interest":"Medicina","phone":"5512345678"}`,
			user:   f.agent,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var lead models.Lead
		decode(t, rec, &lead)
		assert.NotEmpty(t, lead.ID)
		assert.Equal(t, models.StatusInformacion, lead.Status)
	})

	t.Run("Error - missing career fails validation", func(t *testing.T) {
		rec := serve(t, f.leads.Create, request{method: http.MethodPost, body: `{"full_name":"María"}`, user: f.agent})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Error - agents cannot read leads of other agents", func(t *testing.T) {
		rec := serve(t, f.leads.Get, request{user: f.agent, params: map[string]string{"id": foreign.ID}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Success - gerente reads any lead", func(t *testing.T) {
		rec := serve(t, f.leads.Get, request{user: f.gerente, params: map[string]string{"id": foreign.ID}})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Error - converting a lead that is not enrolled", func(t *testing.T) {
		rec := serve(t, f.leads.Convert, request{method: http.MethodPost, user: f.admin, params: map[string]string{"id": foreign.ID}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCustomFieldsHandler(t *testing.T) {
	f := newFixture(t)
	student := f.seedStudent(t)

	rec := serve(t, f.fields.CreateDefinition, request{
		method: http.MethodPost,
		body:   `{"field_name":"Beca","field_type":"text"}`,
		user:   f.admin,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var def models.CustomFieldDefinition
	decode(t, rec, &def)
	require.NotEmpty(t, def.ID)

	t.Run("Error - agents cannot edit values", func(t *testing.T) {
		rec := serve(t, f.fields.UpdateValues, request{
			method: http.MethodPut,
			body:   `{"fields":{"` + def.ID + `":"50%"}}`,
			user:   f.agent,
			params: map[string]string{"id": student.ID},
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var requestID string
	t.Run("Success - supervisor edits become requests", func(t *testing.T) {
		rec := serve(t, f.fields.UpdateValues, request{
			method: http.MethodPut,
			body:   `{"fields":{"` + def.ID + `":"50%"}}`,
			user:   f.supervisor,
			params: map[string]string{"id": student.ID},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.UpdateFieldValuesResponse
		decode(t, rec, &resp)
		assert.True(t, resp.RequiresApproval)
		assert.Equal(t, 1, resp.RequestsCreated)

		rec = serve(t, f.fields.ListRequests, request{target: "/?status=pending", user: f.admin})
		require.Equal(t, http.StatusOK, rec.Code)
		var pending []models.ChangeRequest
		decode(t, rec, &pending)
		require.Len(t, pending, 1)
		requestID = pending[0].ID
	})

	t.Run("Success - approve applies the value", func(t *testing.T) {
		require.NotEmpty(t, requestID)
		rec := serve(t, f.fields.Approve, request{method: http.MethodPost, user: f.admin, params: map[string]string{"id": requestID}})
		require.Equal(t, http.StatusOK, rec.Code)

		got, err := f.st.Students.GetByID(context.Background(), student.ID)
		require.NoError(t, err)
		assert.Equal(t, "50%", got.CustomFields[def.ID])
	})

	t.Run("Error - a resolved request cannot be approved again", func(t *testing.T) {
		require.NotEmpty(t, requestID)
		rec := serve(t, f.fields.Approve, request{method: http.MethodPost, user: f.admin, params: map[string]string{"id": requestID}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Success - audit log records the approval", func(t *testing.T) {
		rec := serve(t, f.fields.AuditLogs, request{target: "/?entity_id=" + student.ID, user: f.admin})
		require.Equal(t, http.StatusOK, rec.Code)
		var logs []models.AuditLogEntry
		decode(t, rec, &logs)
		assert.NotEmpty(t, logs)
	})
}

func TestWebhookHandler_IncomingLead(t *testing.T) {
	f := newFixture(t)
	body := `{"full_name":"Carla Soto","career_interest":"Derecho","whatsapp_number":"5512345678"}`

	t.Run("Error - missing token", func(t *testing.T) {
		rec := serve(t, f.webhooks.IncomingLead, request{method: http.MethodPost, body: body})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Error - wrong token", func(t *testing.T) {
		rec := serve(t, f.webhooks.IncomingLead, request{
			method:  http.MethodPost,
			body:    body,
			headers: map[string]string{WebhookTokenHeader: "guess"},
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Success - valid token creates the lead", func(t *testing.T) {
		rec := serve(t, f.webhooks.IncomingLead, request{
			method:  http.MethodPost,
			body:    body,
			headers: map[string]string{WebhookTokenHeader: testWebhookToken},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.IncomingLeadResponse
		decode(t, rec, &resp)
		assert.True(t, resp.Success)
		require.NotEmpty(t, resp.LeadID)

		lead, err := f.st.Leads.GetByID(context.Background(), resp.LeadID)
		require.NoError(t, err)
		assert.Equal(t, models.SourceWebhook, lead.Source)
		assert.Equal(t, leads.IncomingCreatedBy, lead.CreatedBy)
	})
}

func TestStudentHandler(t *testing.T) {
	f := newFixture(t)
	student := f.seedStudent(t)

	t.Run("Success - excel export is an attachment", func(t *testing.T) {
		rec := serve(t, f.students.ExportExcel, request{user: f.admin})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, export.ContentTypeExcel, rec.Header().Get(echo.HeaderContentType))
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".xlsx")
	})

	t.Run("Success - pdf export", func(t *testing.T) {
		rec := serve(t, f.students.ExportPDF, request{user: f.admin})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	})

	t.Run("Success - upload then download a document", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("document_type", "Acta de nacimiento"))
		part, err := mw.CreateFormFile("file", "acta.pdf")
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 acta"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
		rec := run(t, f.students.UploadDocument, req, f.admin, map[string]string{"id": student.ID})
		require.Equal(t, http.StatusOK, rec.Code)

		var doc models.StudentDocument
		decode(t, rec, &doc)
		assert.Equal(t, "Acta de nacimiento", doc.Name)
		assert.Equal(t, "acta.pdf", doc.OriginalFilename)

		rec = serve(t, f.students.DownloadDocument, request{
			user:   f.admin,
			params: map[string]string{"id": student.ID, "doc_id": doc.ID},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "%PDF-1.4 acta", rec.Body.String())
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "acta.pdf")
	})

	t.Run("Error - upload without a file", func(t *testing.T) {
		rec := serve(t, f.students.UploadDocument, request{
			method: http.MethodPost,
			user:   f.admin,
			params: map[string]string{"id": student.ID},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Error - unknown student", func(t *testing.T) {
		rec := serve(t, f.students.Get, request{user: f.admin, params: map[string]string{"id": "student_missing"}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCalendarHandler_NotConfigured(t *testing.T) {
	f := newFixture(t)

	rec := serve(t, f.calendar.Connect, request{user: f.agent})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardHandler_Statuses(t *testing.T) {
	f := newFixture(t)

	rec := serve(t, f.dashboard.Statuses, request{user: f.agent})
	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []map[string]interface{}
	decode(t, rec, &statuses)
	assert.Len(t, statuses, 4)
}

func TestAppointmentHandler_Validation(t *testing.T) {
	f := newFixture(t)

	rec := serve(t, f.appointments.Create, request{method: http.MethodPost, body: `{}`, user: f.agent})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
