package models

// DashboardStats aggregates pipeline numbers for the dashboard.
type DashboardStats struct {
	TotalLeads        int64            `json:"total_leads"`
	LeadsByStatus     map[string]int64 `json:"leads_by_status"`
	LeadsBySource     map[string]int64 `json:"leads_by_source"`
	LeadsByCareer     map[string]int64 `json:"leads_by_career"`
	LeadsByAgent      map[string]int64 `json:"leads_by_agent"`
	ConversionRate    float64          `json:"conversion_rate"`
	NewLeadsToday     int64            `json:"new_leads_today"`
	AppointmentsToday int64            `json:"appointments_today"`
}
