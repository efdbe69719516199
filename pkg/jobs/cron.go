// Package jobs schedules the background work of the API: session cleanup,
// appointment reminders and the daily pipeline report.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jordanlanch/campusflow/pkg/cache"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// Job names, also used as metric labels and lock keys.
const (
	JobPurgeSessions = "purge_sessions"
	JobReminders     = "appointment_reminders"
	JobPipelineStats = "pipeline_stats"

	lockPrefix = "job_lock:"
)

// SessionPurger deletes expired sessions.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// ReminderSender notifies agents of upcoming appointments.
type ReminderSender interface {
	SendReminders(ctx context.Context) (int, error)
}

// CronManager manages scheduled jobs
type CronManager struct {
	cron      *cron.Cron
	sessions  SessionPurger
	reminders ReminderSender
	monitor   *PipelineMonitor
	locks     *cache.Client
	metrics   *metrics.Metrics
	logger    *log.Logger
}

// NewCronManager creates a new cron manager. locks may be nil, in which
// case every instance runs every job.
func NewCronManager(sessions SessionPurger, reminders ReminderSender, monitor *PipelineMonitor, locks *cache.Client, m *metrics.Metrics, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}
	return &CronManager{
		cron:      cron.New(),
		sessions:  sessions,
		reminders: reminders,
		monitor:   monitor,
		locks:     locks,
		metrics:   m,
		logger:    logger,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	cm.logger.Println("Setting up cron jobs...")

	schedule := []struct {
		spec    string
		name    string
		timeout time.Duration
		fn      func(context.Context) error
	}{
		{"0 * * * *", JobPurgeSessions, time.Minute, cm.PurgeSessions},
		{"*/15 * * * *", JobReminders, 5 * time.Minute, cm.SendReminders},
		{"0 4 * * *", JobPipelineStats, time.Minute, cm.monitor.LogStats},
	}

	for _, job := range schedule {
		job := job
		if _, err := cm.cron.AddFunc(job.spec, func() {
			cm.run(job.name, job.timeout, job.fn)
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}

	cm.logger.Println("✅ Cron jobs configured successfully")
	cm.logger.Println("  - Hourly: Purge expired sessions")
	cm.logger.Println("  - Every 15 minutes: Appointment reminders")
	cm.logger.Println("  - Daily at 4 AM: Log pipeline statistics")
	return nil
}

// run executes one job under a cluster-wide lock held for the job timeout.
func (cm *CronManager) run(name string, timeout time.Duration, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if cm.locks != nil {
		acquired, err := cm.locks.SetNX(ctx, lockPrefix+name, time.Now().UTC().Format(time.RFC3339), timeout)
		if err != nil {
			cm.logger.Printf("⚠️ Failed to acquire lock for %s, running anyway: %v", name, err)
		} else if !acquired {
			cm.logger.Printf("⏭️ Skipping %s: already running elsewhere", name)
			return
		}
	}

	cm.logger.Printf("🕐 Running %s job...", name)
	err := fn(ctx)
	cm.metrics.RecordJobRun(name, err == nil)
	if err != nil {
		cm.logger.Printf("❌ Job %s failed: %v", name, err)
		return
	}
	cm.logger.Printf("✅ Job %s completed", name)
}

// PurgeSessions deletes expired sessions.
func (cm *CronManager) PurgeSessions(ctx context.Context) error {
	n, err := cm.sessions.PurgeExpiredSessions(ctx)
	if err != nil {
		return err
	}
	cm.logger.Printf("🧹 Purged %d expired sessions", n)
	return nil
}

// SendReminders notifies agents about appointments starting soon.
func (cm *CronManager) SendReminders(ctx context.Context) error {
	n, err := cm.reminders.SendReminders(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		cm.logger.Printf("🔔 Sent %d appointment reminders", n)
	}
	return nil
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Println("🚀 Starting cron scheduler...")
	cm.cron.Start()
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (cm *CronManager) Stop(ctx context.Context) {
	cm.logger.Println("🛑 Stopping cron scheduler...")
	select {
	case <-cm.cron.Stop().Done():
	case <-ctx.Done():
		cm.logger.Println("⚠️ Cron jobs still running at shutdown deadline")
	}
}

// Entries returns how many jobs are scheduled.
func (cm *CronManager) Entries() int {
	return len(cm.cron.Entries())
}
