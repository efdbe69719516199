package mongostore

import (
	"testing"
	"time"

	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLeadQuery(t *testing.T) {
	t.Run("empty filter matches everything", func(t *testing.T) {
		assert.Empty(t, LeadQuery(models.LeadFilter{}))
	})

	t.Run("exact fields", func(t *testing.T) {
		q := LeadQuery(models.LeadFilter{
			Status:          models.StatusContacto,
			Source:          models.SourceFacebook,
			AssignedAgentID: "user_abc",
			CareerInterest:  "Derecho",
		})
		assert.Equal(t, models.StatusContacto, q["status"])
		assert.Equal(t, models.SourceFacebook, q["source"])
		assert.Equal(t, "user_abc", q["assigned_agent_id"])
		assert.Equal(t, "Derecho", q["career_interest"])
	})

	t.Run("search escapes regex metacharacters", func(t *testing.T) {
		q := LeadQuery(models.LeadFilter{Search: "a.b+c"})
		or, ok := q["$or"].(bson.A)
		require.True(t, ok)
		require.Len(t, or, 3)

		first := or[0].(bson.M)
		rx := first["full_name"].(primitive.Regex)
		assert.Equal(t, `a\.b\+c`, rx.Pattern)
		assert.Equal(t, "i", rx.Options)
	})

	t.Run("created from", func(t *testing.T) {
		from := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		q := LeadQuery(models.LeadFilter{CreatedFrom: from})
		assert.Equal(t, bson.M{"$gte": from}, q["created_at"])
	})
}

func TestUserQuery(t *testing.T) {
	q := UserQuery(store.UserFilter{Role: models.RoleAgente, ActiveOnly: true, Career: "Medicina", IDs: []string{"a", "b"}})
	assert.Equal(t, models.RoleAgente, q["role"])
	assert.Equal(t, true, q["is_active"])
	assert.Equal(t, "Medicina", q["assigned_careers"])
	assert.Equal(t, bson.M{"$in": []string{"a", "b"}}, q["_id"])

	assert.Empty(t, UserQuery(store.UserFilter{}))
}

func TestAppointmentQuery(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	until := from.Add(24 * time.Hour)
	sent := false

	tests := []struct {
		name   string
		filter models.AppointmentFilter
		want   bson.M
	}{
		{"empty", models.AppointmentFilter{}, bson.M{}},
		{"agent", models.AppointmentFilter{AgentID: "user_1"}, bson.M{"agent_id": "user_1"}},
		{"open window", models.AppointmentFilter{ScheduledFrom: from}, bson.M{"scheduled_at": bson.M{"$gte": from}}},
		{
			"closed window with reminder flag",
			models.AppointmentFilter{ScheduledFrom: from, ScheduledUntil: until, ReminderSent: &sent},
			bson.M{"scheduled_at": bson.M{"$gte": from, "$lt": until}, "reminder_sent": false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AppointmentQuery(tt.filter))
		})
	}
}

func TestAuditQuery(t *testing.T) {
	q := AuditQuery(models.AuditFilter{EntityType: models.EntityStudent, EntityID: "student_1"})
	assert.Equal(t, bson.M{"entity_type": models.EntityStudent, "entity_id": "student_1"}, q)
}

func TestCountByPipeline(t *testing.T) {
	t.Run("excludes empty group keys", func(t *testing.T) {
		p := CountByPipeline(store.GroupByCareer, models.LeadFilter{})
		require.Len(t, p, 2)
		match := p[0].(bson.D)[0].Value.(bson.M)
		assert.Equal(t, bson.M{"$nin": bson.A{nil, ""}}, match["career_interest"])

		group := p[1].(bson.D)[0].Value.(bson.M)
		assert.Equal(t, "$career_interest", group["_id"])
	})

	t.Run("keeps an explicit filter on the group field", func(t *testing.T) {
		p := CountByPipeline(store.GroupByAgent, models.LeadFilter{AssignedAgentID: "user_1"})
		match := p[0].(bson.D)[0].Value.(bson.M)
		assert.Equal(t, "user_1", match["assigned_agent_id"])
	})
}
