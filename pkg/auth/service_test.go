package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/jordanlanch/campusflow/pkg/cache"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/email"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *Service
	store *store.Store
	mail  *email.MockSender
	redis *miniredis.Miniredis
}

func newFixture(t *testing.T, providerURL string) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	st := memstore.New()
	mock := &email.MockSender{}
	svc := NewService(st,
		cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		email.NewServiceWithSender(mock, "https://crm.example"),
		NewProviderClient(providerURL),
		Config{JWTSecret: testSecret, JWTExpirationHours: 24, SessionDays: 7},
	)
	return &fixture{svc: svc, store: st, mail: mock, redis: mr}
}

func registerReq() models.CreateUserRequest {
	return models.CreateUserRequest{
		Email:    gofakeit.Email(),
		Password: "secreto123",
		Name:     gofakeit.Name(),
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - defaults to agente", func(t *testing.T) {
		f := newFixture(t, "")
		resp, err := f.svc.Register(ctx, registerReq())
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, models.RoleAgente, resp.User.Role)
		assert.True(t, resp.User.IsActive)
		assert.Regexp(t, regexp.MustCompile(`^user_[0-9a-f]{12}$`), resp.User.ID)
	})

	t.Run("Error - duplicate email", func(t *testing.T) {
		f := newFixture(t, "")
		req := registerReq()
		_, err := f.svc.Register(ctx, req)
		require.NoError(t, err)

		req.Name = "Otra Persona"
		_, err = f.svc.Register(ctx, req)
		require.Error(t, err)
		assert.True(t, domain.IsConflict(err))
		assert.Equal(t, "El email ya está registrado", domain.Message(err))
	})

	t.Run("Error - short password", func(t *testing.T) {
		f := newFixture(t, "")
		req := registerReq()
		req.Password = "123"
		_, err := f.svc.Register(ctx, req)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	req := registerReq()
	reg, err := f.svc.Register(ctx, req)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		resp, err := f.svc.Login(ctx, models.LoginRequest{Email: req.Email, Password: req.Password})
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, resp.User.ID)
	})

	t.Run("Error - wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, models.LoginRequest{Email: req.Email, Password: "nope"})
		assert.True(t, domain.IsUnauthorized(err))
		assert.Equal(t, "Credenciales inválidas", domain.Message(err))
	})

	t.Run("Error - unknown email", func(t *testing.T) {
		_, err := f.svc.Login(ctx, models.LoginRequest{Email: "nadie@example.com", Password: "x"})
		assert.Equal(t, "Credenciales inválidas", domain.Message(err))
	})

	t.Run("Error - inactive user", func(t *testing.T) {
		u, _ := f.store.Users.GetByID(ctx, reg.User.ID)
		u.IsActive = false
		require.NoError(t, f.store.Users.Update(ctx, u))

		_, err := f.svc.Login(ctx, models.LoginRequest{Email: req.Email, Password: req.Password})
		assert.Equal(t, "Usuario desactivado", domain.Message(err))
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	reg, err := f.svc.Register(ctx, registerReq())
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, f.store.Sessions.Create(ctx, &models.Session{Token: "live", UserID: reg.User.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}))
	require.NoError(t, f.store.Sessions.Create(ctx, &models.Session{Token: "stale", UserID: reg.User.ID, ExpiresAt: now.Add(-time.Hour), CreatedAt: now}))

	t.Run("Success - cookie session", func(t *testing.T) {
		u, err := f.svc.Authenticate(ctx, "live", "")
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, u.ID)
	})

	t.Run("Success - bearer token", func(t *testing.T) {
		u, err := f.svc.Authenticate(ctx, "", reg.Token)
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, u.ID)
	})

	t.Run("Success - unknown cookie falls through to bearer", func(t *testing.T) {
		u, err := f.svc.Authenticate(ctx, "missing", reg.Token)
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, u.ID)
	})

	t.Run("Error - expired session is deleted", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "stale", "")
		assert.True(t, domain.IsUnauthorized(err))
		_, err = f.store.Sessions.Get(ctx, "stale")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Error - no credentials", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "", "")
		assert.True(t, domain.IsUnauthorized(err))
	})

	t.Run("Error - garbage bearer", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "", "not-a-jwt")
		assert.True(t, domain.IsUnauthorized(err))
	})
}

func TestProviderLogin(t *testing.T) {
	ctx := context.Background()
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Session-ID")
		if gotHeader != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"Luis@Example.com","name":"Luis","picture":"https://img/1","session_token":"sess_abc"}`))
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)

	t.Run("Success - creates agente and session", func(t *testing.T) {
		u, sess, err := f.svc.ProviderLogin(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, "good", gotHeader)
		assert.Equal(t, "luis@example.com", u.Email)
		assert.Equal(t, models.RoleAgente, u.Role)
		assert.Equal(t, "sess_abc", sess.Token)
		assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), sess.ExpiresAt, time.Minute)

		authed, err := f.svc.Authenticate(ctx, "sess_abc", "")
		require.NoError(t, err)
		assert.Equal(t, u.ID, authed.ID)
	})

	t.Run("Error - rejected session id", func(t *testing.T) {
		_, _, err := f.svc.ProviderLogin(ctx, "bad")
		assert.True(t, domain.IsUnauthorized(err))
	})

	t.Run("Error - provider not configured", func(t *testing.T) {
		_, _, err := newFixture(t, "").svc.ProviderLogin(ctx, "good")
		assert.True(t, domain.IsInternal(err))
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	now := time.Now()
	require.NoError(t, f.store.Sessions.Create(ctx, &models.Session{Token: "t1", UserID: "user_x", ExpiresAt: now.Add(time.Hour)}))

	require.NoError(t, f.svc.Logout(ctx, "t1"))
	require.NoError(t, f.svc.Logout(ctx, "t1"))
	require.NoError(t, f.svc.Logout(ctx, ""))

	_, err := f.store.Sessions.Get(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPasswordRecovery(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - unknown email sends nothing", func(t *testing.T) {
		f := newFixture(t, "")
		require.NoError(t, f.svc.ForgotPassword(ctx, "nadie@example.com"))
		assert.Equal(t, 0, f.mail.CallCount())
	})

	t.Run("Success - full round trip and single use", func(t *testing.T) {
		f := newFixture(t, "")
		req := registerReq()
		_, err := f.svc.Register(ctx, req)
		require.NoError(t, err)

		require.NoError(t, f.svc.ForgotPassword(ctx, req.Email))
		require.Equal(t, 1, f.mail.CallCount())

		token := regexp.MustCompile(`token=(reset_[0-9a-f]+)`).FindStringSubmatch(f.mail.Calls[0].HTML)
		require.Len(t, token, 2)

		err = f.svc.ResetPassword(ctx, token[1], "123")
		assert.Equal(t, MsgPasswordLength, domain.Message(err))

		require.NoError(t, f.svc.ResetPassword(ctx, token[1], "nueva123"))
		_, err = f.svc.Login(ctx, models.LoginRequest{Email: req.Email, Password: "nueva123"})
		require.NoError(t, err)

		err = f.svc.ResetPassword(ctx, token[1], "otra1234")
		assert.Equal(t, "Token inválido o expirado", domain.Message(err))
	})

	t.Run("Error - token expires after an hour", func(t *testing.T) {
		f := newFixture(t, "")
		req := registerReq()
		_, _ = f.svc.Register(ctx, req)
		require.NoError(t, f.svc.ForgotPassword(ctx, req.Email))
		token := regexp.MustCompile(`token=(reset_[0-9a-f]+)`).FindStringSubmatch(f.mail.Calls[0].HTML)

		f.redis.FastForward(61 * time.Minute)
		err := f.svc.ResetPassword(ctx, token[1], "nueva123")
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Error - a second request invalidates the first token", func(t *testing.T) {
		f := newFixture(t, "")
		req := registerReq()
		_, _ = f.svc.Register(ctx, req)
		require.NoError(t, f.svc.ForgotPassword(ctx, req.Email))
		require.NoError(t, f.svc.ForgotPassword(ctx, req.Email))

		rx := regexp.MustCompile(`token=(reset_[0-9a-f]+)`)
		first := rx.FindStringSubmatch(f.mail.Calls[0].HTML)[1]
		second := rx.FindStringSubmatch(f.mail.Calls[1].HTML)[1]

		assert.True(t, domain.IsValidation(f.svc.ResetPassword(ctx, first, "nueva123")))
		assert.NoError(t, f.svc.ResetPassword(ctx, second, "nueva123"))
	})

	t.Run("Error - email not configured", func(t *testing.T) {
		f := newFixture(t, "")
		req := registerReq()
		_, _ = f.svc.Register(ctx, req)
		f.svc.email = email.NewServiceWithSender(nil, "")

		err := f.svc.ForgotPassword(ctx, req.Email)
		assert.Equal(t, "El servicio de email no está configurado", domain.Message(err))
	})

	t.Run("Error - send failure", func(t *testing.T) {
		f := newFixture(t, "")
		req := registerReq()
		_, _ = f.svc.Register(ctx, req)
		f.mail.SendFunc = func(context.Context, email.Message) error { return errors.New("down") }

		err := f.svc.ForgotPassword(ctx, req.Email)
		assert.Equal(t, "Error al enviar el email", domain.Message(err))
	})
}

func TestSetPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	req := registerReq()
	reg, _ := f.svc.Register(ctx, req)

	assert.True(t, domain.IsValidation(f.svc.SetPassword(ctx, reg.User.ID, "12345")))
	assert.True(t, domain.IsNotFound(f.svc.SetPassword(ctx, "user_missing", "123456")))
	require.NoError(t, f.svc.SetPassword(ctx, reg.User.ID, "123456"))

	_, err := f.svc.Login(ctx, models.LoginRequest{Email: req.Email, Password: "123456"})
	assert.NoError(t, err)
}

func TestPurgeExpiredSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	now := time.Now()
	_ = f.store.Sessions.Create(ctx, &models.Session{Token: "a", ExpiresAt: now.Add(-time.Minute)})
	_ = f.store.Sessions.Create(ctx, &models.Session{Token: "b", ExpiresAt: now.Add(time.Hour)})

	n, err := f.svc.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
