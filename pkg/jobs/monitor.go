package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/jordanlanch/campusflow/pkg/dashboard"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// PipelineStats is the daily snapshot of the admissions funnel.
type PipelineStats struct {
	TotalLeads     int64            `json:"total_leads"`
	ByStatus       map[string]int64 `json:"by_status"`
	BySource       map[string]int64 `json:"by_source"`
	TotalStudents  int              `json:"total_students"`
	ConversionRate float64          `json:"conversion_rate"`
}

// PipelineMonitor computes funnel statistics for the daily log line.
type PipelineMonitor struct {
	leads    store.Leads
	students store.Students
	logger   *log.Logger
}

// NewPipelineMonitor creates a new pipeline monitor instance
func NewPipelineMonitor(leads store.Leads, students store.Students, logger *log.Logger) *PipelineMonitor {
	if logger == nil {
		logger = log.Default()
	}
	return &PipelineMonitor{leads: leads, students: students, logger: logger}
}

// Stats gathers lead and student counts.
func (m *PipelineMonitor) Stats(ctx context.Context) (*PipelineStats, error) {
	total, err := m.leads.Count(ctx, models.LeadFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	byStatus, err := m.leads.CountBy(ctx, store.GroupByStatus, models.LeadFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to group leads by status: %w", err)
	}
	bySource, err := m.leads.CountBy(ctx, store.GroupBySource, models.LeadFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to group leads by source: %w", err)
	}
	students, err := m.students.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	return &PipelineStats{
		TotalLeads:     total,
		ByStatus:       byStatus,
		BySource:       bySource,
		TotalStudents:  len(students),
		ConversionRate: dashboard.ConversionRate(byStatus[string(models.StatusInscrito)], total),
	}, nil
}

// LogStats writes the snapshot to the job logger.
func (m *PipelineMonitor) LogStats(ctx context.Context) error {
	stats, err := m.Stats(ctx)
	if err != nil {
		return err
	}
	m.logger.Printf("📊 Pipeline Statistics:")
	m.logger.Printf("  Total leads: %d", stats.TotalLeads)
	m.logger.Printf("  By status: %v", stats.ByStatus)
	m.logger.Printf("  By source: %v", stats.BySource)
	m.logger.Printf("  Students: %d (conversion %.2f%%)", stats.TotalStudents, stats.ConversionRate)
	return nil
}
