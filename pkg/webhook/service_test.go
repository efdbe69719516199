package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	return NewService(memstore.New().Webhooks)
}

func TestService_Create(t *testing.T) {
	s := newService()
	ctx := context.Background()

	wh, err := s.Create(ctx, models.CreateWebhookRequest{
		Name:   "CRM sync",
		URL:    "https://example.com/hook",
		Events: []string{models.EventLeadCreated},
	}, "user_admin")
	require.NoError(t, err)

	assert.True(t, wh.IsActive)
	assert.Len(t, wh.SecretKey, 64)
	assert.Equal(t, "user_admin", wh.CreatedBy)

	other, err := s.Create(ctx, models.CreateWebhookRequest{Name: "b", URL: "https://example.com/b", Events: []string{models.EventLeadUpdated}}, "user_admin")
	require.NoError(t, err)
	assert.NotEqual(t, wh.SecretKey, other.SecretKey)

	subs, err := s.Subscribers(ctx, models.EventLeadCreated)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, wh.ID, subs[0].ID)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_Delete(t *testing.T) {
	s := newService()
	ctx := context.Background()

	t.Run("Error - unknown webhook", func(t *testing.T) {
		err := s.Delete(ctx, "webhook_missing")
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("Success", func(t *testing.T) {
		wh, err := s.Create(ctx, models.CreateWebhookRequest{Name: "a", URL: "https://example.com", Events: []string{models.EventLeadCreated}}, "u")
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, wh.ID))

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestService_Deliver(t *testing.T) {
	t.Run("Success - signed payload", func(t *testing.T) {
		wh := &models.Webhook{SecretKey: "s3cret"}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, models.EventLeadCreated, r.Header.Get(EventHeader))
			assert.True(t, VerifySignature(body, r.Header.Get(SignatureHeader), "s3cret"))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()
		wh.URL = srv.URL

		err := newService().Deliver(context.Background(), wh, models.WebhookPayload{
			Event:     models.EventLeadCreated,
			Timestamp: time.Now().UTC(),
			Data:      map[string]interface{}{"lead_id": "lead_1"},
		})
		require.NoError(t, err)
	})

	t.Run("Error - non 2xx is a failure", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := newService().Deliver(context.Background(), &models.Webhook{URL: srv.URL}, models.WebhookPayload{Event: models.EventLeadCreated})
		assert.Error(t, err)
		assert.Equal(t, 1, calls, "deliveries are not retried")
	})
}

func TestService_Notify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newService().Notify(context.Background(), srv.URL, models.WebhookPayload{Event: models.EventAppointmentCreated}))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"lead.created"}`)
	sig := generateSignature(payload, "secret")

	assert.True(t, VerifySignature(payload, sig, "secret"))
	assert.False(t, VerifySignature(payload, sig, "other"))
	assert.False(t, VerifySignature([]byte(`{}`), sig, "secret"))
}
