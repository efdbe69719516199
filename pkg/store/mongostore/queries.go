package mongostore

import (
	"regexp"

	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeadQuery translates a lead filter into a MongoDB filter document.
func LeadQuery(f models.LeadFilter) bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Source != "" {
		q["source"] = f.Source
	}
	if f.AssignedAgentID != "" {
		q["assigned_agent_id"] = f.AssignedAgentID
	}
	if f.CareerInterest != "" {
		q["career_interest"] = f.CareerInterest
	}
	if !f.CreatedFrom.IsZero() {
		q["created_at"] = bson.M{"$gte": f.CreatedFrom}
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"full_name": rx},
			bson.M{"email": rx},
			bson.M{"phone": rx},
		}
	}
	return q
}

// UserQuery translates a user filter into a MongoDB filter document.
func UserQuery(f store.UserFilter) bson.M {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if f.ActiveOnly {
		q["is_active"] = true
	}
	if f.Career != "" {
		// matches when the array contains the value
		q["assigned_careers"] = f.Career
	}
	if len(f.IDs) > 0 {
		q["_id"] = bson.M{"$in": f.IDs}
	}
	return q
}

// AppointmentQuery translates an appointment filter into a MongoDB filter document.
func AppointmentQuery(f models.AppointmentFilter) bson.M {
	q := bson.M{}
	if f.AgentID != "" {
		q["agent_id"] = f.AgentID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if !f.ScheduledFrom.IsZero() || !f.ScheduledUntil.IsZero() {
		window := bson.M{}
		if !f.ScheduledFrom.IsZero() {
			window["$gte"] = f.ScheduledFrom
		}
		if !f.ScheduledUntil.IsZero() {
			window["$lt"] = f.ScheduledUntil
		}
		q["scheduled_at"] = window
	}
	if f.ReminderSent != nil {
		q["reminder_sent"] = *f.ReminderSent
	}
	return q
}

// AuditQuery translates an audit filter into a MongoDB filter document.
func AuditQuery(f models.AuditFilter) bson.M {
	q := bson.M{}
	if f.EntityType != "" {
		q["entity_type"] = f.EntityType
	}
	if f.EntityID != "" {
		q["entity_id"] = f.EntityID
	}
	return q
}

// CountByPipeline groups leads matching f by the given attribute.
func CountByPipeline(group store.LeadGroup, f models.LeadFilter) bson.A {
	match := LeadQuery(f)
	if _, ok := match[string(group)]; !ok {
		match[string(group)] = bson.M{"$nin": bson.A{nil, ""}}
	}
	return bson.A{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$" + string(group), "count": bson.M{"$sum": 1}}}},
	}
}
