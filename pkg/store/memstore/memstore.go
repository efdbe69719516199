// Package memstore is an in-process implementation of the store contracts.
// It backs the test suites and local runs with STORE=memory.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// New returns a Store whose collections live in memory.
func New() *store.Store {
	return &store.Store{
		Users:          &users{c: newCollection(cloneUser)},
		Leads:          &leads{c: newCollection(cloneLead)},
		Conversations:  &conversations{c: newCollection(cloneConversation)},
		Students:       &students{c: newCollection(cloneStudent)},
		CustomFields:   &customFields{c: newCollection(cloneDefinition)},
		ChangeRequests: &changeRequests{c: newCollection(cloneRequest)},
		AuditLogs:      &auditLogs{c: newCollection(cloneEntry)},
		Appointments:   &appointments{c: newCollection(cloneAppointment)},
		Teachers:       &teachers{c: newCollection(cloneTeacher)},
		Careers:        &careers{c: newCollection(cloneCareer)},
		CareerCatalog:  &catalog{},
		Webhooks:       &webhooks{c: newCollection(cloneWebhook)},
		Settings:       &settings{},
		Sessions:       &sessions{c: newCollection(cloneSession)},
		CalendarTokens: &calendarTokens{c: newCollection(cloneToken)},
		Health:         pinger{},
	}
}

type pinger struct{}

func (pinger) Ping(context.Context) error { return nil }

// ---------- users ----------

type users struct{ c *collection[models.User] }

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.AssignedCareers = cloneStrings(u.AssignedCareers)
	return &cp
}

func (s *users) Create(_ context.Context, u *models.User) error {
	email := strings.ToLower(u.Email)
	return s.c.insert(u.ID, u, func(o *models.User) bool { return strings.ToLower(o.Email) == email })
}

func (s *users) GetByID(_ context.Context, id string) (*models.User, error) {
	return s.c.get(id)
}

func (s *users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	found := s.c.filter(func(u *models.User) bool { return strings.ToLower(u.Email) == email })
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return found[0], nil
}

func (s *users) List(_ context.Context, f store.UserFilter) ([]*models.User, error) {
	ids := make(map[string]bool, len(f.IDs))
	for _, id := range f.IDs {
		ids[id] = true
	}
	return s.c.filter(func(u *models.User) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		if f.ActiveOnly && !u.IsActive {
			return false
		}
		if f.Career != "" && !u.HasCareer(f.Career) {
			return false
		}
		if len(f.IDs) > 0 && !ids[u.ID] {
			return false
		}
		return true
	}), nil
}

func (s *users) Update(_ context.Context, u *models.User) error {
	email := strings.ToLower(u.Email)
	return s.c.replace(u.ID, u, func(o *models.User) bool { return strings.ToLower(o.Email) == email })
}

func (s *users) Delete(_ context.Context, id string) error {
	return s.c.remove(id)
}

// ---------- leads ----------

type leads struct{ c *collection[models.Lead] }

func cloneLead(l *models.Lead) *models.Lead {
	cp := *l
	return &cp
}

func matchLead(l *models.Lead, f models.LeadFilter) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Source != "" && l.Source != f.Source {
		return false
	}
	if f.AssignedAgentID != "" && l.AssignedAgentID != f.AssignedAgentID {
		return false
	}
	if f.CareerInterest != "" && l.CareerInterest != f.CareerInterest {
		return false
	}
	if !f.CreatedFrom.IsZero() && l.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(l.FullName), q) &&
			!strings.Contains(strings.ToLower(l.Email), q) &&
			!strings.Contains(strings.ToLower(l.Phone), q) {
			return false
		}
	}
	return true
}

func (s *leads) Create(_ context.Context, l *models.Lead) error {
	return s.c.insert(l.ID, l, nil)
}

func (s *leads) GetByID(_ context.Context, id string) (*models.Lead, error) {
	return s.c.get(id)
}

func (s *leads) List(_ context.Context, f models.LeadFilter) ([]*models.Lead, error) {
	out := s.c.filter(func(l *models.Lead) bool { return matchLead(l, f) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *leads) Update(_ context.Context, l *models.Lead) error {
	return s.c.replace(l.ID, l, nil)
}

func (s *leads) Delete(_ context.Context, id string) error {
	return s.c.remove(id)
}

func (s *leads) Count(_ context.Context, f models.LeadFilter) (int64, error) {
	return int64(len(s.c.filter(func(l *models.Lead) bool { return matchLead(l, f) }))), nil
}

func (s *leads) CountByAgent(_ context.Context, agentID string) (int64, error) {
	return int64(len(s.c.filter(func(l *models.Lead) bool { return l.AssignedAgentID == agentID }))), nil
}

func (s *leads) CountBy(_ context.Context, group store.LeadGroup, f models.LeadFilter) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, l := range s.c.filter(func(l *models.Lead) bool { return matchLead(l, f) }) {
		var key string
		switch group {
		case store.GroupByStatus:
			key = string(l.Status)
		case store.GroupBySource:
			key = l.Source
		case store.GroupByCareer:
			key = l.CareerInterest
		case store.GroupByAgent:
			key = l.AssignedAgentID
		}
		if key != "" {
			counts[key]++
		}
	}
	return counts, nil
}

// ---------- conversations ----------

type conversations struct {
	c *collection[models.Conversation]
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Messages = append([]models.ConversationMessage(nil), c.Messages...)
	return &cp
}

func (s *conversations) Ensure(_ context.Context, leadID string) (*models.Conversation, error) {
	now := time.Now().UTC()
	conv := &models.Conversation{LeadID: leadID, Messages: []models.ConversationMessage{}, CreatedAt: now, UpdatedAt: now}
	if err := s.c.insert(leadID, conv, nil); err != nil && err != store.ErrDuplicate {
		return nil, err
	}
	return s.c.get(leadID)
}

func (s *conversations) Append(ctx context.Context, leadID string, msg models.ConversationMessage) (*models.Conversation, error) {
	if _, err := s.Ensure(ctx, leadID); err != nil {
		return nil, err
	}
	err := s.c.mutate(leadID, func(c *models.Conversation) error {
		c.Messages = append(c.Messages, msg)
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.c.get(leadID)
}

func (s *conversations) Delete(_ context.Context, leadID string) error {
	return s.c.remove(leadID)
}

// ---------- students ----------

type students struct{ c *collection[models.Student] }

func cloneStudent(st *models.Student) *models.Student {
	cp := *st
	cp.Documents = append([]models.StudentDocument(nil), st.Documents...)
	cp.Attendance = append([]models.AttendanceRecord(nil), st.Attendance...)
	cp.CustomFields = make(map[string]interface{}, len(st.CustomFields))
	for k, v := range st.CustomFields {
		cp.CustomFields[k] = v
	}
	return &cp
}

func studentConflict(st *models.Student) func(*models.Student) bool {
	return func(o *models.Student) bool {
		if st.InstitutionalEmail != "" && strings.EqualFold(o.InstitutionalEmail, st.InstitutionalEmail) {
			return true
		}
		return st.LeadID != "" && o.LeadID == st.LeadID
	}
}

func (s *students) Create(_ context.Context, st *models.Student) error {
	return s.c.insert(st.ID, st, studentConflict(st))
}

func (s *students) GetByID(_ context.Context, id string) (*models.Student, error) {
	return s.c.get(id)
}

func (s *students) GetByLeadID(_ context.Context, leadID string) (*models.Student, error) {
	found := s.c.filter(func(st *models.Student) bool { return st.LeadID == leadID })
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return found[0], nil
}

func (s *students) List(_ context.Context) ([]*models.Student, error) {
	return s.c.filter(nil), nil
}

func (s *students) InstitutionalEmailExists(_ context.Context, email string) (bool, error) {
	found := s.c.filter(func(st *models.Student) bool { return strings.EqualFold(st.InstitutionalEmail, email) })
	return len(found) > 0, nil
}

func (s *students) Update(_ context.Context, st *models.Student) error {
	return s.c.replace(st.ID, st, studentConflict(st))
}

func (s *students) Delete(_ context.Context, id string) error {
	return s.c.remove(id)
}

func (s *students) SetCustomFields(_ context.Context, id string, values map[string]interface{}) error {
	return s.c.mutate(id, func(st *models.Student) error {
		if st.CustomFields == nil {
			st.CustomFields = make(map[string]interface{})
		}
		for k, v := range values {
			st.CustomFields[k] = v
		}
		st.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *students) UnsetCustomField(_ context.Context, fieldID string) (int64, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	var n int64
	for _, st := range s.c.items {
		if _, ok := st.CustomFields[fieldID]; ok {
			delete(st.CustomFields, fieldID)
			n++
		}
	}
	return n, nil
}

func (s *students) AddDocument(_ context.Context, id string, doc models.StudentDocument) error {
	return s.c.mutate(id, func(st *models.Student) error {
		st.Documents = append(st.Documents, doc)
		return nil
	})
}

func (s *students) RemoveDocument(_ context.Context, id, documentID string) error {
	return s.c.mutate(id, func(st *models.Student) error {
		kept := st.Documents[:0]
		for _, d := range st.Documents {
			if d.ID != documentID {
				kept = append(kept, d)
			}
		}
		st.Documents = kept
		return nil
	})
}

func (s *students) AddAttendance(_ context.Context, id string, rec models.AttendanceRecord) error {
	return s.c.mutate(id, func(st *models.Student) error {
		st.Attendance = append(st.Attendance, rec)
		return nil
	})
}

// ---------- custom fields ----------

type customFields struct {
	c *collection[models.CustomFieldDefinition]
}

func cloneDefinition(d *models.CustomFieldDefinition) *models.CustomFieldDefinition {
	cp := *d
	cp.Options = cloneStrings(d.Options)
	return &cp
}

func (s *customFields) Create(_ context.Context, d *models.CustomFieldDefinition) error {
	return s.c.insert(d.ID, d, nil)
}

func (s *customFields) GetByID(_ context.Context, id string) (*models.CustomFieldDefinition, error) {
	return s.c.get(id)
}

func (s *customFields) List(_ context.Context) ([]*models.CustomFieldDefinition, error) {
	out := s.c.filter(nil)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *customFields) Update(_ context.Context, d *models.CustomFieldDefinition) error {
	return s.c.replace(d.ID, d, nil)
}

func (s *customFields) Delete(_ context.Context, id string) error {
	return s.c.remove(id)
}

func (s *customFields) NextOrder(_ context.Context) (int, error) {
	all := s.c.filter(nil)
	if len(all) == 0 {
		return 0, nil
	}
	max := all[0].Order
	for _, d := range all[1:] {
		if d.Order > max {
			max = d.Order
		}
	}
	return max + 1, nil
}

// ---------- change requests ----------

type changeRequests struct {
	c *collection[models.ChangeRequest]
}

func cloneRequest(r *models.ChangeRequest) *models.ChangeRequest {
	cp := *r
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

func (s *changeRequests) Create(_ context.Context, r *models.ChangeRequest) error {
	return s.c.insert(r.ID, r, nil)
}

func (s *changeRequests) GetByID(_ context.Context, id string) (*models.ChangeRequest, error) {
	return s.c.get(id)
}

func (s *changeRequests) List(_ context.Context, status string) ([]*models.ChangeRequest, error) {
	out := s.c.filter(func(r *models.ChangeRequest) bool { return status == "" || r.Status == status })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *changeRequests) Resolve(_ context.Context, id, status, byID, byName string, at time.Time) error {
	return s.c.mutate(id, func(r *models.ChangeRequest) error {
		if r.Status != models.RequestPending {
			return store.ErrStale
		}
		r.Status = status
		r.ApprovedByID = byID
		r.ApprovedByName = byName
		r.ResolvedAt = &at
		return nil
	})
}

// ---------- audit logs ----------

type auditLogs struct {
	c *collection[models.AuditLogEntry]
}

func cloneEntry(e *models.AuditLogEntry) *models.AuditLogEntry {
	cp := *e
	return &cp
}

func (s *auditLogs) Append(_ context.Context, e *models.AuditLogEntry) error {
	return s.c.insert(e.ID, e, nil)
}

func (s *auditLogs) List(_ context.Context, f models.AuditFilter) ([]*models.AuditLogEntry, error) {
	out := s.c.filter(func(e *models.AuditLogEntry) bool {
		return (f.EntityType == "" || e.EntityType == f.EntityType) &&
			(f.EntityID == "" || e.EntityID == f.EntityID)
	})
	// Reverse insertion order keeps entries with equal timestamps newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// ---------- appointments ----------

type appointments struct {
	c *collection[models.Appointment]
}

func cloneAppointment(a *models.Appointment) *models.Appointment {
	cp := *a
	return &cp
}

func matchAppointment(a *models.Appointment, f models.AppointmentFilter) bool {
	if f.AgentID != "" && a.AgentID != f.AgentID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if !f.ScheduledFrom.IsZero() && a.ScheduledAt.Before(f.ScheduledFrom) {
		return false
	}
	if !f.ScheduledUntil.IsZero() && !a.ScheduledAt.Before(f.ScheduledUntil) {
		return false
	}
	if f.ReminderSent != nil && a.ReminderSent != *f.ReminderSent {
		return false
	}
	return true
}

func (s *appointments) Create(_ context.Context, a *models.Appointment) error {
	return s.c.insert(a.ID, a, nil)
}

func (s *appointments) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	return s.c.get(id)
}

func (s *appointments) List(_ context.Context, f models.AppointmentFilter) ([]*models.Appointment, error) {
	out := s.c.filter(func(a *models.Appointment) bool { return matchAppointment(a, f) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *appointments) Count(_ context.Context, f models.AppointmentFilter) (int64, error) {
	return int64(len(s.c.filter(func(a *models.Appointment) bool { return matchAppointment(a, f) }))), nil
}

func (s *appointments) Update(_ context.Context, a *models.Appointment) error {
	return s.c.replace(a.ID, a, nil)
}

func (s *appointments) Delete(_ context.Context, id string) error {
	return s.c.remove(id)
}

func (s *appointments) MarkReminded(_ context.Context, id string) error {
	return s.c.mutate(id, func(a *models.Appointment) error {
		a.ReminderSent = true
		return nil
	})
}

// ---------- teachers ----------

type teachers struct{ c *collection[models.Teacher] }

func cloneTeacher(t *models.Teacher) *models.Teacher {
	cp := *t
	cp.Subjects = cloneStrings(t.Subjects)
	return &cp
}

func (s *teachers) Create(_ context.Context, t *models.Teacher) error {
	return s.c.insert(t.ID, t, func(o *models.Teacher) bool { return strings.EqualFold(o.Email, t.Email) })
}

func (s *teachers) GetByID(_ context.Context, id string) (*models.Teacher, error) {
	return s.c.get(id)
}

func (s *teachers) List(_ context.Context) ([]*models.Teacher, error) {
	return s.c.filter(nil), nil
}

func (s *teachers) Update(_ context.Context, t *models.Teacher) error {
	return s.c.replace(t.ID, t, func(o *models.Teacher) bool { return strings.EqualFold(o.Email, t.Email) })
}

func (s *teachers) Delete(_ context.Context, id string) error {
	return s.c.remove(id)
}

// ---------- careers ----------

type careers struct{ c *collection[models.Career] }

func cloneCareer(c *models.Career) *models.Career {
	cp := *c
	cp.Schedules = append([]models.ScheduleSlot(nil), c.Schedules...)
	return &cp
}

func (s *careers) Create(_ context.Context, c *models.Career) error {
	return s.c.insert(c.ID, c, func(o *models.Career) bool { return o.Name == c.Name })
}

func (s *careers) GetByID(_ context.Context, id string) (*models.Career, error) {
	return s.c.get(id)
}

func (s *careers) GetByName(_ context.Context, name string) (*models.Career, error) {
	found := s.c.filter(func(c *models.Career) bool { return c.Name == name })
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return found[0], nil
}

func (s *careers) List(_ context.Context, activeOnly bool) ([]*models.Career, error) {
	return s.c.filter(func(c *models.Career) bool { return !activeOnly || c.IsActive }), nil
}

func (s *careers) Update(_ context.Context, c *models.Career) error {
	return s.c.replace(c.ID, c, func(o *models.Career) bool { return o.Name == c.Name })
}

func (s *careers) Delete(_ context.Context, id string) error {
	return s.c.remove(id)
}

// ---------- career catalog ----------

type catalog struct {
	mu     sync.Mutex
	seeded bool
	names  []string
}

func (s *catalog) Names(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seeded {
		return nil, store.ErrNotFound
	}
	return cloneStrings(s.names), nil
}

func (s *catalog) Seed(_ context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seeded {
		s.seeded = true
		s.names = cloneStrings(names)
	}
	return nil
}

func (s *catalog) Add(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seeded {
		return nil
	}
	for _, n := range s.names {
		if n == name {
			return nil
		}
	}
	s.names = append(s.names, name)
	return nil
}

func (s *catalog) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.names[:0]
	for _, n := range s.names {
		if n != name {
			kept = append(kept, n)
		}
	}
	s.names = kept
	return nil
}

// ---------- webhooks ----------

type webhooks struct{ c *collection[models.Webhook] }

func cloneWebhook(w *models.Webhook) *models.Webhook {
	cp := *w
	cp.Events = cloneStrings(w.Events)
	return &cp
}

func (s *webhooks) Create(_ context.Context, w *models.Webhook) error {
	return s.c.insert(w.ID, w, nil)
}

func (s *webhooks) GetByID(_ context.Context, id string) (*models.Webhook, error) {
	return s.c.get(id)
}

func (s *webhooks) List(_ context.Context) ([]*models.Webhook, error) {
	return s.c.filter(nil), nil
}

func (s *webhooks) ListForEvent(_ context.Context, event string) ([]*models.Webhook, error) {
	return s.c.filter(func(w *models.Webhook) bool { return w.IsActive && w.Subscribed(event) }), nil
}

func (s *webhooks) Delete(_ context.Context, id string) error {
	return s.c.remove(id)
}

// ---------- notification settings ----------

type settings struct {
	mu      sync.Mutex
	current *models.NotificationSettings
}

func (s *settings) GetNotificationSettings(context.Context) (*models.NotificationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, store.ErrNotFound
	}
	cp := *s.current
	return &cp, nil
}

func (s *settings) SaveNotificationSettings(_ context.Context, ns *models.NotificationSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ns
	cp.ID = models.SettingsID
	s.current = &cp
	return nil
}

// ---------- sessions ----------

type sessions struct{ c *collection[models.Session] }

func cloneSession(s *models.Session) *models.Session {
	cp := *s
	return &cp
}

func (s *sessions) Create(_ context.Context, sess *models.Session) error {
	return s.c.insert(sess.Token, sess, nil)
}

func (s *sessions) Get(_ context.Context, token string) (*models.Session, error) {
	return s.c.get(token)
}

func (s *sessions) Delete(_ context.Context, token string) error {
	return s.c.remove(token)
}

func (s *sessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	var n int64
	for token, sess := range s.c.items {
		if sess.Expired(now) {
			delete(s.c.items, token)
			delete(s.c.seq, token)
			n++
		}
	}
	return n, nil
}

// ---------- calendar tokens ----------

type calendarTokens struct {
	c *collection[models.CalendarToken]
}

func cloneToken(t *models.CalendarToken) *models.CalendarToken {
	cp := *t
	return &cp
}

func (s *calendarTokens) Get(_ context.Context, userID string) (*models.CalendarToken, error) {
	return s.c.get(userID)
}

func (s *calendarTokens) Save(_ context.Context, t *models.CalendarToken) error {
	err := s.c.replace(t.UserID, t, nil)
	if err == store.ErrNotFound {
		return s.c.insert(t.UserID, t, nil)
	}
	return err
}

func (s *calendarTokens) Delete(_ context.Context, userID string) error {
	err := s.c.remove(userID)
	if err == store.ErrNotFound {
		return nil
	}
	return err
}
