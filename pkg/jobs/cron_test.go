package jobs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/campusflow/pkg/cache"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	calls int
	err   error
}

func (f *fakeSessions) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	f.calls++
	return 3, f.err
}

type fakeReminders struct{ calls int }

func (f *fakeReminders) SendReminders(ctx context.Context) (int, error) {
	f.calls++
	return 2, nil
}

func newManager(t *testing.T, locks *cache.Client) (*CronManager, *fakeSessions, *fakeReminders, *bytes.Buffer) {
	t.Helper()
	st := memstore.New()
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	sessions := &fakeSessions{}
	reminders := &fakeReminders{}
	cm := NewCronManager(sessions, reminders, NewPipelineMonitor(st.Leads, st.Students, logger), locks, nil, logger)
	return cm, sessions, reminders, &buf
}

func TestCronManager_SetupJobs(t *testing.T) {
	cm, _, _, _ := newManager(t, nil)
	require.NoError(t, cm.SetupJobs())
	assert.Equal(t, 3, cm.Entries())

	cm.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cm.Stop(ctx)
}

func TestCronManager_Run(t *testing.T) {
	t.Run("Success - runs without locks", func(t *testing.T) {
		cm, sessions, _, buf := newManager(t, nil)
		cm.run(JobPurgeSessions, time.Second, cm.PurgeSessions)
		cm.run(JobPurgeSessions, time.Second, cm.PurgeSessions)
		assert.Equal(t, 2, sessions.calls)
		assert.Contains(t, buf.String(), "Purged 3 expired sessions")
	})

	t.Run("Success - lock skips concurrent instances", func(t *testing.T) {
		mr := miniredis.RunT(t)
		locks := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

		cm, _, reminders, buf := newManager(t, locks)
		cm.run(JobReminders, time.Minute, cm.SendReminders)
		cm.run(JobReminders, time.Minute, cm.SendReminders)
		assert.Equal(t, 1, reminders.calls)
		assert.Contains(t, buf.String(), "already running elsewhere")

		mr.FastForward(2 * time.Minute)
		cm.run(JobReminders, time.Minute, cm.SendReminders)
		assert.Equal(t, 2, reminders.calls)
	})

	t.Run("Error - failure is logged", func(t *testing.T) {
		cm, sessions, _, buf := newManager(t, nil)
		sessions.err = errors.New("mongo down")
		cm.run(JobPurgeSessions, time.Second, cm.PurgeSessions)
		assert.Contains(t, buf.String(), "Job purge_sessions failed: mongo down")
	})
}

func TestPipelineMonitor_Stats(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	for i, status := range []models.LeadStatus{models.StatusInformacion, models.StatusInformacion, models.StatusContacto, models.StatusInscrito} {
		require.NoError(t, st.Leads.Create(ctx, &models.Lead{
			ID:        models.NewID(models.PrefixLead),
			FullName:  "Lead",
			Status:    status,
			Source:    models.SourceManual,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	var buf bytes.Buffer
	m := NewPipelineMonitor(st.Leads, st.Students, log.New(&buf, "", 0))
	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalLeads)
	assert.EqualValues(t, 2, stats.ByStatus[string(models.StatusInformacion)])
	assert.EqualValues(t, 4, stats.BySource[models.SourceManual])
	assert.Equal(t, 25.0, stats.ConversionRate)

	require.NoError(t, m.LogStats(ctx))
	assert.Contains(t, buf.String(), "Total leads: 4")
}
