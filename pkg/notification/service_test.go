package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jordanlanch/campusflow/pkg/email"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/jordanlanch/campusflow/pkg/webhook"
	"github.com/jordanlanch/campusflow/pkg/whatsapp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	st       *store.Store
	svc      *Service
	hooks    *webhook.Service
	wa       *whatsapp.MockSender
	mail     *email.MockSender
	metrics  *metrics.Metrics
	hookHits *int32
	hookURL  string
	lastBody *models.WebhookPayload
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:       memstore.New(),
		wa:       &whatsapp.MockSender{},
		mail:     &email.MockSender{},
		metrics:  metrics.New(prometheus.NewRegistry()),
		hookHits: new(int32),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(f.hookHits, 1)
		var p models.WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil {
			f.lastBody = &p
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	f.hookURL = srv.URL

	f.hooks = webhook.NewService(f.st.Webhooks)
	f.svc = NewService(f.st, f.hooks, f.wa, email.NewServiceWithSender(f.mail, "http://localhost:3000"), f.metrics, nil)
	return f
}

func (f *fixture) saveSettings(t *testing.T, s models.NotificationSettings) {
	t.Helper()
	s.ID = models.SettingsID
	require.NoError(t, f.st.Settings.SaveNotificationSettings(context.Background(), &s))
}

func sampleLead() *models.Lead {
	return &models.Lead{
		ID:             "lead_1",
		FullName:       "Ana Pérez",
		Email:          "ana@example.com",
		Phone:          "+525512345678",
		CareerInterest: "Medicina",
		Source:         models.SourceFacebook,
		Status:         models.StatusInformacion,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestGetSettings_DefaultsWhenMissing(t *testing.T) {
	f := newFixture(t)

	s, err := f.svc.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SettingsID, s.ID)
	assert.True(t, s.NotifyOnNewLead)
	assert.True(t, s.NotifyOnAppointment)
	assert.False(t, s.NotifySupervisors)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false
	phone := " +525512345678 "

	s, err := f.svc.UpdateSettings(ctx, models.UpdateNotificationSettingsRequest{
		NotifyOnNewLead:   &off,
		NotificationPhone: &phone,
	})
	require.NoError(t, err)
	assert.False(t, s.NotifyOnNewLead)
	assert.True(t, s.NotifyOnAppointment)
	assert.Equal(t, "+525512345678", s.NotificationPhone)

	stored, err := f.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.False(t, stored.NotifyOnNewLead)
}

func TestEnabled(t *testing.T) {
	s := &models.NotificationSettings{NotifyOnNewLead: true, NotifyOnAppointment: false}

	assert.True(t, Enabled(s, models.EventLeadCreated))
	assert.False(t, Enabled(s, models.EventAppointmentCreated))
	assert.False(t, Enabled(s, models.EventAppointmentReminder))
	assert.False(t, Enabled(s, models.EventLeadUpdated))

	assert.True(t, Toggled(models.EventAppointmentReminder))
	assert.False(t, Toggled(models.EventLeadUpdated))
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - all channels for a new lead", func(t *testing.T) {
		f := newFixture(t)
		f.saveSettings(t, models.NotificationSettings{
			NotificationPhone:      "+525511111111",
			NotificationEmail:      "admisiones@ucic.edu.mx",
			NotificationWebhookURL: f.hookURL,
			NotifyOnNewLead:        true,
		})
		agent := &models.User{ID: "user_1", Name: "Laura Gómez"}

		report := f.svc.Dispatch(ctx, models.EventLeadCreated, LeadData(sampleLead()), agent)

		assert.False(t, report.Skipped)
		assert.Equal(t, 3, report.Delivered)
		assert.Equal(t, 0, report.Failed)
		assert.Equal(t, int32(1), atomic.LoadInt32(f.hookHits))
		require.NotNil(t, f.lastBody)
		assert.Equal(t, "Laura Gómez", f.lastBody.AssignedAgent.Name)

		require.Equal(t, 1, f.wa.CallCount())
		assert.Equal(t, "+525511111111", f.wa.Calls[0].To)
		assert.Contains(t, f.wa.Calls[0].Body, "🆕 Nuevo Lead!")
		assert.Contains(t, f.wa.Calls[0].Body, "Asignado a: Laura Gómez")
		assert.Equal(t, 1, f.mail.CallCount())
	})

	t.Run("Success - opt out makes no outbound calls", func(t *testing.T) {
		f := newFixture(t)
		f.saveSettings(t, models.NotificationSettings{
			NotificationPhone:      "+525511111111",
			NotificationWebhookURL: f.hookURL,
			NotifyOnNewLead:        false,
			NotifyOnAppointment:    true,
		})

		report := f.svc.Dispatch(ctx, models.EventLeadCreated, LeadData(sampleLead()), nil)

		assert.True(t, report.Skipped)
		assert.Equal(t, int32(0), atomic.LoadInt32(f.hookHits))
		assert.Equal(t, 0, f.wa.CallCount())
		assert.Equal(t, 0, f.mail.CallCount())
	})

	t.Run("Success - supervisors receive WhatsApp", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now().UTC()
		for _, u := range []*models.User{
			{ID: "user_s1", Name: "S1", Email: "s1@x.mx", Role: models.RoleSupervisor, Phone: "+525522222222", IsActive: true, CreatedAt: now},
			{ID: "user_s2", Name: "S2", Email: "s2@x.mx", Role: models.RoleSupervisor, Phone: "+525533333333", IsActive: false, CreatedAt: now},
			{ID: "user_s3", Name: "S3", Email: "s3@x.mx", Role: models.RoleSupervisor, Phone: "+525511111111", IsActive: true, CreatedAt: now},
		} {
			require.NoError(t, f.st.Users.Create(ctx, u))
		}
		f.saveSettings(t, models.NotificationSettings{
			NotificationPhone:   "+525511111111",
			NotifyOnAppointment: true,
			NotifySupervisors:   true,
		})

		appt := &models.Appointment{ID: "apt_1", Title: "Entrevista", LeadName: "Ana", ScheduledAt: now}
		f.svc.Dispatch(ctx, models.EventAppointmentCreated, AppointmentData(appt), nil)

		require.Equal(t, 2, f.wa.CallCount(), "inactive supervisors and duplicate phones are skipped")
		assert.Contains(t, f.wa.Calls[0].Body, "📅 Nueva Cita!")
	})

	t.Run("Success - opt out also silences subscribed webhooks", func(t *testing.T) {
		f := newFixture(t)
		f.saveSettings(t, models.NotificationSettings{NotificationPhone: "+525511111111", NotifyOnNewLead: false})
		_, err := f.hooks.Create(ctx, models.CreateWebhookRequest{Name: "n8n", URL: f.hookURL, Events: []string{models.EventLeadCreated}}, "user_admin")
		require.NoError(t, err)

		report := f.svc.Dispatch(ctx, models.EventLeadCreated, LeadData(sampleLead()), nil)

		assert.True(t, report.Skipped)
		assert.Equal(t, 0, report.Delivered)
		assert.Equal(t, int32(0), atomic.LoadInt32(f.hookHits))
		assert.Equal(t, 0, f.wa.CallCount())
	})

	t.Run("Success - subscribed webhooks receive events once opted in", func(t *testing.T) {
		f := newFixture(t)
		f.saveSettings(t, models.NotificationSettings{NotifyOnNewLead: true})
		_, err := f.hooks.Create(ctx, models.CreateWebhookRequest{Name: "n8n", URL: f.hookURL, Events: []string{models.EventLeadCreated}}, "user_admin")
		require.NoError(t, err)

		report := f.svc.Dispatch(ctx, models.EventLeadCreated, LeadData(sampleLead()), nil)

		assert.False(t, report.Skipped)
		assert.Equal(t, 1, report.Delivered)
		assert.Equal(t, int32(1), atomic.LoadInt32(f.hookHits))
	})

	t.Run("Success - untoggled events reach subscribers only", func(t *testing.T) {
		f := newFixture(t)
		f.saveSettings(t, models.NotificationSettings{NotificationPhone: "+525511111111", NotifyOnNewLead: false})
		_, err := f.hooks.Create(ctx, models.CreateWebhookRequest{Name: "crm", URL: f.hookURL, Events: []string{models.EventLeadUpdated}}, "user_admin")
		require.NoError(t, err)

		report := f.svc.Dispatch(ctx, models.EventLeadUpdated, LeadData(sampleLead()), nil)

		assert.True(t, report.Skipped)
		assert.Equal(t, 1, report.Delivered)
		assert.Equal(t, int32(1), atomic.LoadInt32(f.hookHits))
		assert.Equal(t, 0, f.wa.CallCount())
	})

	t.Run("Error - failures are counted and swallowed", func(t *testing.T) {
		f := newFixture(t)
		f.wa.SendFunc = func(context.Context, string, string) error { return whatsapp.ErrSendFailed }
		f.saveSettings(t, models.NotificationSettings{NotificationPhone: "+525511111111", NotifyOnNewLead: true})

		report := f.svc.Dispatch(ctx, models.EventLeadCreated, LeadData(sampleLead()), nil)

		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.NotificationsSent.WithLabelValues(ChannelWhatsApp, "failed")))
	})
}

func TestMessage(t *testing.T) {
	msg := Message(models.EventLeadCreated, LeadData(sampleLead()), nil)
	assert.Equal(t, "🆕 Nuevo Lead!\n\nNombre: Ana Pérez\nEmail: ana@example.com\nTeléfono: +525512345678\nCarrera: Medicina\nFuente: facebook", msg)

	reminder := Message(models.EventAppointmentReminder, map[string]interface{}{"title": "Visita"}, &models.AgentInfo{Name: "Luis"})
	assert.Contains(t, reminder, "⏰ Recordatorio de Cita")
	assert.Contains(t, reminder, "Título: Visita")
	assert.Contains(t, reminder, "Asignado a: Luis")
}
