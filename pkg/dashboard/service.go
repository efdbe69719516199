// Package dashboard computes pipeline statistics and the dropdown option
// lists used by the frontend.
package dashboard

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jordanlanch/campusflow/pkg/cache"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

const (
	statsKeyPrefix = "dashboard_stats:"
	statsTTL       = 30 * time.Second
	cacheType      = "dashboard_stats"
)

// Service computes dashboard data
type Service struct {
	leads        store.Leads
	appointments store.Appointments
	users        store.Users
	careers      store.Careers
	catalog      store.CareerCatalog
	cache        *cache.Client
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewService creates a new dashboard service. c may be nil to disable
// caching.
func NewService(st *store.Store, c *cache.Client, m *metrics.Metrics) *Service {
	return &Service{
		leads:        st.Leads,
		appointments: st.Appointments,
		users:        st.Users,
		careers:      st.Careers,
		catalog:      st.CareerCatalog,
		cache:        c,
		metrics:      m,
		now:          time.Now,
	}
}

// Stats returns pipeline statistics as seen by actor. Agents only count
// their own leads and appointments. Results are cached per user for 30s.
func (s *Service) Stats(ctx context.Context, actor *models.User) (*models.DashboardStats, error) {
	key := statsKeyPrefix + actor.ID
	if s.cache != nil {
		var cached models.DashboardStats
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			s.metrics.RecordCache(cacheType, true)
			return &cached, nil
		}
		s.metrics.RecordCache(cacheType, false)
	}

	stats, err := s.compute(ctx, actor)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, stats, statsTTL)
	}
	return stats, nil
}

func (s *Service) compute(ctx context.Context, actor *models.User) (*models.DashboardStats, error) {
	var scope models.LeadFilter
	var aptScope models.AppointmentFilter
	if actor.Role == models.RoleAgente {
		scope.AssignedAgentID = actor.ID
		aptScope.AgentID = actor.ID
	}

	total, err := s.leads.Count(ctx, scope)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.leads.CountBy(ctx, store.GroupByStatus, scope)
	if err != nil {
		return nil, err
	}
	bySource, err := s.leads.CountBy(ctx, store.GroupBySource, scope)
	if err != nil {
		return nil, err
	}
	byCareer, err := s.leads.CountBy(ctx, store.GroupByCareer, scope)
	if err != nil {
		return nil, err
	}

	byAgent := map[string]int64{}
	if actor.Role.IsManager() {
		if byAgent, err = s.leadsByAgentName(ctx); err != nil {
			return nil, err
		}
	}

	todayStart := s.now().UTC().Truncate(24 * time.Hour)
	today := scope
	today.CreatedFrom = todayStart
	newToday, err := s.leads.Count(ctx, today)
	if err != nil {
		return nil, err
	}
	aptScope.ScheduledFrom = todayStart
	aptScope.ScheduledUntil = todayStart.Add(24 * time.Hour)
	aptsToday, err := s.appointments.Count(ctx, aptScope)
	if err != nil {
		return nil, err
	}

	return &models.DashboardStats{
		TotalLeads:        total,
		LeadsByStatus:     byStatus,
		LeadsBySource:     bySource,
		LeadsByCareer:     byCareer,
		LeadsByAgent:      byAgent,
		ConversionRate:    ConversionRate(byStatus[string(models.StatusInscrito)], total),
		NewLeadsToday:     newToday,
		AppointmentsToday: aptsToday,
	}, nil
}

// leadsByAgentName keys lead counts by agent name, falling back to the id
// for agents that no longer exist.
func (s *Service) leadsByAgentName(ctx context.Context) (map[string]int64, error) {
	counts, err := s.leads.CountBy(ctx, store.GroupByAgent, models.LeadFilter{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	names := map[string]string{}
	if len(ids) > 0 {
		agents, err := s.users.List(ctx, store.UserFilter{IDs: ids})
		if err != nil {
			return nil, err
		}
		for _, a := range agents {
			names[a.ID] = a.Name
		}
	}

	out := make(map[string]int64, len(counts))
	for id, n := range counts {
		label := id
		if name := names[id]; name != "" {
			label = name
		}
		out[label] += n
	}
	return out, nil
}

// ConversionRate is enrolled over total as a percentage with two decimals.
func ConversionRate(enrolled, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(enrolled)/float64(total)*100*100) / 100
}

// Careers returns the career dropdown: the catalog when it has names,
// otherwise active careers, otherwise the defaults.
func (s *Service) Careers(ctx context.Context) ([]string, error) {
	names, err := s.catalog.Names(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewInternalError("", err)
	}
	if len(names) > 0 {
		return names, nil
	}

	active, err := s.careers.List(ctx, true)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	if len(active) > 0 {
		out := make([]string, 0, len(active))
		for _, c := range active {
			out = append(out, c.Name)
		}
		return out, nil
	}
	return append([]string(nil), models.DefaultCareers...), nil
}

// Sources returns the accepted lead sources.
func Sources() []string {
	return append([]string(nil), models.LeadSources...)
}

// Statuses returns the lead pipeline stages in order.
func Statuses() []models.LeadStatus {
	return append([]models.LeadStatus(nil), models.LeadStatuses...)
}
