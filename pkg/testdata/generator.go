// Package testdata generates realistic CampusFlow records for tests and
// for seeding a development instance.
package testdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Generator builds fake users, leads and students. The same seed always
// yields the same records.
type Generator struct {
	faker   *gofakeit.Faker
	careers []string
	now     func() time.Time
}

// NewGenerator creates a generator. An empty careers list falls back to the
// default career catalog.
func NewGenerator(seed int64, careers []string) *Generator {
	if len(careers) == 0 {
		careers = models.DefaultCareers
	}
	return &Generator{faker: gofakeit.New(seed), careers: careers, now: time.Now}
}

// Agent returns an active agente covering the given careers. It carries no
// password hash and cannot log in.
func (g *Generator) Agent(careers ...string) *models.User {
	if careers == nil {
		careers = []string{}
	}
	now := g.now().UTC()
	first, last := g.faker.FirstName(), g.faker.LastName()
	return &models.User{
		ID:              models.NewID(models.PrefixUser),
		Email:           strings.ToLower(fmt.Sprintf("%s.%s.%d@ucic.edu.mx", first, last, g.faker.Number(1, 999))),
		Name:            first + " " + last,
		Role:            models.RoleAgente,
		Phone:           g.faker.Phone(),
		IsActive:        true,
		AssignedCareers: careers,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Lead returns a lead at a random stage, assigned to agent when given.
func (g *Generator) Lead(agent *models.User) *models.Lead {
	created := g.now().UTC().Add(-time.Duration(g.faker.Number(0, 60*24)) * time.Hour)
	lead := &models.Lead{
		ID:             models.NewID(models.PrefixLead),
		FullName:       g.faker.Name(),
		Email:          strings.ToLower(g.faker.Email()),
		Phone:          "+52" + g.faker.Phone(),
		CareerInterest: g.faker.RandomString(g.careers),
		Source:         g.faker.RandomString(models.LeadSources),
		Status:         models.LeadStatuses[g.faker.Number(0, len(models.LeadStatuses)-1)],
		CreatedBy:      "seed",
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	if agent != nil {
		lead.AssignedAgentID = agent.ID
		lead.AssignedAgentName = agent.Name
	}
	return lead
}

// Student returns an active student enrolled in a random career.
func (g *Generator) Student() *models.Student {
	now := g.now().UTC()
	return &models.Student{
		ID:           models.NewID(models.PrefixStudent),
		FullName:     g.faker.Name(),
		Email:        strings.ToLower(g.faker.Email()),
		Phone:        "+52" + g.faker.Phone(),
		CareerName:   g.faker.RandomString(g.careers),
		Documents:    []models.StudentDocument{},
		Attendance:   []models.AttendanceRecord{},
		CustomFields: map[string]interface{}{},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SeedConfig sets how many records Seed creates.
type SeedConfig struct {
	Agents   int
	Leads    int
	Students int
}

// Seed inserts agents, leads spread across those agents, and students.
func Seed(ctx context.Context, st *store.Store, g *Generator, cfg SeedConfig) error {
	agents := make([]*models.User, 0, cfg.Agents)
	for i := 0; i < cfg.Agents; i++ {
		a := g.Agent(g.faker.RandomString(g.careers))
		if err := st.Users.Create(ctx, a); err != nil {
			return fmt.Errorf("seed agent: %w", err)
		}
		agents = append(agents, a)
	}

	for i := 0; i < cfg.Leads; i++ {
		var agent *models.User
		if len(agents) > 0 {
			agent = agents[i%len(agents)]
		}
		if err := st.Leads.Create(ctx, g.Lead(agent)); err != nil {
			return fmt.Errorf("seed lead: %w", err)
		}
	}

	for i := 0; i < cfg.Students; i++ {
		if err := st.Students.Create(ctx, g.Student()); err != nil {
			return fmt.Errorf("seed student: %w", err)
		}
	}
	return nil
}
