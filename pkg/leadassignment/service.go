// Package leadassignment picks the agent that owns a new lead.
package leadassignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Assignment types.
const (
	TypeExplicit    = "explicit"
	TypeLeastLoaded = "least_loaded"
	TypeRequester   = "requester"
	TypeUnassigned  = "unassigned"
)

// Assignment is the outcome of a selection. Agent is nil when the lead stays
// unassigned or the explicit id does not resolve to a user.
type Assignment struct {
	AgentID   string
	AgentName string
	Agent     *models.User
	Type      string
}

// Service handles lead assignment.
type Service struct {
	users store.Users
	leads store.Leads
}

// NewService creates a new lead assignment service.
func NewService(users store.Users, leads store.Leads) *Service {
	return &Service{users: users, leads: leads}
}

// Assign selects an agent for a lead interested in career.
//
// An explicit agent id always wins and is kept even when no such user
// exists. Otherwise the active agentes serving the career compete and the
// one with the fewest leads wins, ties going to the first candidate. With
// no candidate the requester keeps the lead if they are an agente.
//
// Selection reads counts without locking, so two concurrent calls can pick
// the same agent.
func (s *Service) Assign(ctx context.Context, career, explicitAgentID string, requester *models.User) (*Assignment, error) {
	if explicitAgentID != "" {
		a := &Assignment{AgentID: explicitAgentID, Type: TypeExplicit}
		u, err := s.users.GetByID(ctx, explicitAgentID)
		switch {
		case err == nil:
			a.Agent, a.AgentName = u, u.Name
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("lookup explicit agent: %w", err)
		}
		return a, nil
	}

	agent, err := s.LeastLoaded(ctx, career)
	if err != nil {
		return nil, err
	}
	if agent != nil {
		return &Assignment{AgentID: agent.ID, AgentName: agent.Name, Agent: agent, Type: TypeLeastLoaded}, nil
	}

	if requester != nil && requester.Role == models.RoleAgente {
		return &Assignment{AgentID: requester.ID, AgentName: requester.Name, Agent: requester, Type: TypeRequester}, nil
	}
	return &Assignment{Type: TypeUnassigned}, nil
}

// LeastLoaded returns the active agente serving career with the fewest
// leads, or nil when nobody serves it.
func (s *Service) LeastLoaded(ctx context.Context, career string) (*models.User, error) {
	if career == "" {
		return nil, nil
	}
	candidates, err := s.users.List(ctx, store.UserFilter{
		Role:       models.RoleAgente,
		ActiveOnly: true,
		Career:     career,
	})
	if err != nil {
		return nil, fmt.Errorf("list candidate agents: %w", err)
	}

	var best *models.User
	var bestCount int64
	for _, c := range candidates {
		n, err := s.leads.CountByAgent(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("count leads of %s: %w", c.ID, err)
		}
		if best == nil || n < bestCount {
			best, bestCount = c, n
		}
	}
	return best, nil
}
