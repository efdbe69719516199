// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/campusflow/pkg/database"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// New returns a Store backed by the given database client.
func New(c *database.Client) *store.Store {
	db := c.DB
	return &store.Store{
		Users:          &users{coll: db.Collection(database.CollUsers)},
		Leads:          &leads{coll: db.Collection(database.CollLeads)},
		Conversations:  &conversations{coll: db.Collection(database.CollConversations)},
		Students:       &students{coll: db.Collection(database.CollStudents)},
		CustomFields:   &customFields{coll: db.Collection(database.CollCustomFields)},
		ChangeRequests: &changeRequests{coll: db.Collection(database.CollChangeRequests)},
		AuditLogs:      &auditLogs{coll: db.Collection(database.CollAuditLogs)},
		Appointments:   &appointments{coll: db.Collection(database.CollAppointments)},
		Teachers:       &teachers{coll: db.Collection(database.CollTeachers)},
		Careers:        &careers{coll: db.Collection(database.CollCareers)},
		CareerCatalog:  &catalog{coll: db.Collection(database.CollSettings)},
		Webhooks:       &webhooks{coll: db.Collection(database.CollWebhooks)},
		Settings:       &settings{coll: db.Collection(database.CollNotifications)},
		Sessions:       &sessions{coll: db.Collection(database.CollSessions)},
		CalendarTokens: &calendarTokens{coll: db.Collection(database.CollCalendarTokens)},
		Health:         c,
	}
}

// ---------- users ----------

type users struct{ coll *mongo.Collection }

func (s *users) Create(ctx context.Context, u *models.User) error {
	return insertOne(ctx, s.coll, u)
}

func (s *users) GetByID(ctx context.Context, id string) (*models.User, error) {
	return findByID[models.User](ctx, s.coll, id)
}

func (s *users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.coll, bson.M{"email": email})
}

func (s *users) List(ctx context.Context, f store.UserFilter) ([]*models.User, error) {
	return findMany[models.User](ctx, s.coll, UserQuery(f), options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (s *users) Update(ctx context.Context, u *models.User) error {
	return replaceByID(ctx, s.coll, u.ID, u)
}

func (s *users) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.coll, id)
}

// ---------- leads ----------

type leads struct{ coll *mongo.Collection }

func (s *leads) Create(ctx context.Context, l *models.Lead) error {
	return insertOne(ctx, s.coll, l)
}

func (s *leads) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	return findByID[models.Lead](ctx, s.coll, id)
}

func (s *leads) List(ctx context.Context, f models.LeadFilter) ([]*models.Lead, error) {
	return findMany[models.Lead](ctx, s.coll, LeadQuery(f), options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (s *leads) Update(ctx context.Context, l *models.Lead) error {
	return replaceByID(ctx, s.coll, l.ID, l)
}

func (s *leads) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.coll, id)
}

func (s *leads) Count(ctx context.Context, f models.LeadFilter) (int64, error) {
	return count(ctx, s.coll, LeadQuery(f))
}

func (s *leads) CountByAgent(ctx context.Context, agentID string) (int64, error) {
	return count(ctx, s.coll, bson.M{"assigned_agent_id": agentID})
}

func (s *leads) CountBy(ctx context.Context, group store.LeadGroup, f models.LeadFilter) (map[string]int64, error) {
	cur, err := s.coll.Aggregate(ctx, CountByPipeline(group, f))
	if err != nil {
		return nil, fmt.Errorf("aggregate leads by %s: %w", group, err)
	}
	defer cur.Close(ctx)

	counts := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Key   interface{} `bson:"_id"`
			Count int64       `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode lead group: %w", err)
		}
		if key, ok := row.Key.(string); ok && key != "" {
			counts[key] = row.Count
		}
	}
	return counts, cur.Err()
}

// ---------- conversations ----------

type conversations struct{ coll *mongo.Collection }

func (s *conversations) Ensure(ctx context.Context, leadID string) (*models.Conversation, error) {
	now := time.Now().UTC()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": leadID},
		bson.M{"$setOnInsert": bson.M{"messages": bson.A{}, "created_at": now, "updated_at": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}
	return findByID[models.Conversation](ctx, s.coll, leadID)
}

func (s *conversations) Append(ctx context.Context, leadID string, msg models.ConversationMessage) (*models.Conversation, error) {
	now := time.Now().UTC()
	var conv models.Conversation
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": leadID},
		bson.M{
			"$push":        bson.M{"messages": msg},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&conv)
	if err != nil {
		return nil, fmt.Errorf("append conversation message: %w", err)
	}
	return &conv, nil
}

func (s *conversations) Delete(ctx context.Context, leadID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": leadID}); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// ---------- students ----------

type students struct{ coll *mongo.Collection }

func (s *students) Create(ctx context.Context, st *models.Student) error {
	// $push fails on null arrays
	if st.Documents == nil {
		st.Documents = []models.StudentDocument{}
	}
	if st.Attendance == nil {
		st.Attendance = []models.AttendanceRecord{}
	}
	if st.CustomFields == nil {
		st.CustomFields = map[string]interface{}{}
	}
	return insertOne(ctx, s.coll, st)
}

func (s *students) GetByID(ctx context.Context, id string) (*models.Student, error) {
	return findByID[models.Student](ctx, s.coll, id)
}

func (s *students) GetByLeadID(ctx context.Context, leadID string) (*models.Student, error) {
	return findOne[models.Student](ctx, s.coll, bson.M{"lead_id": leadID})
}

func (s *students) List(ctx context.Context) ([]*models.Student, error) {
	return findMany[models.Student](ctx, s.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (s *students) InstitutionalEmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"institutional_email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check institutional email: %w", err)
	}
	return n > 0, nil
}

func (s *students) Update(ctx context.Context, st *models.Student) error {
	return replaceByID(ctx, s.coll, st.ID, st)
}

func (s *students) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.coll, id)
}

func (s *students) SetCustomFields(ctx context.Context, id string, values map[string]interface{}) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range values {
		set["custom_fields."+k] = v
	}
	return updateByID(ctx, s.coll, id, bson.M{"$set": set})
}

func (s *students) UnsetCustomField(ctx context.Context, fieldID string) (int64, error) {
	key := "custom_fields." + fieldID
	res, err := s.coll.UpdateMany(ctx,
		bson.M{key: bson.M{"$exists": true}},
		bson.M{"$unset": bson.M{key: ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("unset custom field %s: %w", fieldID, err)
	}
	return res.ModifiedCount, nil
}

func (s *students) AddDocument(ctx context.Context, id string, doc models.StudentDocument) error {
	return updateByID(ctx, s.coll, id, bson.M{"$push": bson.M{"documents": doc}})
}

func (s *students) RemoveDocument(ctx context.Context, id, documentID string) error {
	return updateByID(ctx, s.coll, id, bson.M{"$pull": bson.M{"documents": bson.M{"document_id": documentID}}})
}

func (s *students) AddAttendance(ctx context.Context, id string, rec models.AttendanceRecord) error {
	return updateByID(ctx, s.coll, id, bson.M{"$push": bson.M{"attendance": rec}})
}

// ---------- custom fields ----------

type customFields struct{ coll *mongo.Collection }

func (s *customFields) Create(ctx context.Context, d *models.CustomFieldDefinition) error {
	return insertOne(ctx, s.coll, d)
}

func (s *customFields) GetByID(ctx context.Context, id string) (*models.CustomFieldDefinition, error) {
	return findByID[models.CustomFieldDefinition](ctx, s.coll, id)
}

func (s *customFields) List(ctx context.Context) ([]*models.CustomFieldDefinition, error) {
	return findMany[models.CustomFieldDefinition](ctx, s.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
}

func (s *customFields) Update(ctx context.Context, d *models.CustomFieldDefinition) error {
	return replaceByID(ctx, s.coll, d.ID, d)
}

func (s *customFields) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.coll, id)
}

func (s *customFields) NextOrder(ctx context.Context) (int, error) {
	var top models.CustomFieldDefinition
	err := s.coll.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}})).Decode(&top)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find last custom field: %w", err)
	}
	return top.Order + 1, nil
}

// ---------- change requests ----------

type changeRequests struct{ coll *mongo.Collection }

func (s *changeRequests) Create(ctx context.Context, r *models.ChangeRequest) error {
	return insertOne(ctx, s.coll, r)
}

func (s *changeRequests) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	return findByID[models.ChangeRequest](ctx, s.coll, id)
}

func (s *changeRequests) List(ctx context.Context, status string) ([]*models.ChangeRequest, error) {
	q := bson.M{}
	if status != "" {
		q["status"] = status
	}
	return findMany[models.ChangeRequest](ctx, s.coll, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (s *changeRequests) Resolve(ctx context.Context, id, status, byID, byName string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RequestPending},
		bson.M{"$set": bson.M{
			"status":           status,
			"approved_by_id":   byID,
			"approved_by_name": byName,
			"resolved_at":      at,
		}},
	)
	if err != nil {
		return fmt.Errorf("resolve change request: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return store.ErrStale
	}
	return nil
}

// ---------- audit logs ----------

type auditLogs struct{ coll *mongo.Collection }

func (s *auditLogs) Append(ctx context.Context, e *models.AuditLogEntry) error {
	return insertOne(ctx, s.coll, e)
}

func (s *auditLogs) List(ctx context.Context, f models.AuditFilter) ([]*models.AuditLogEntry, error) {
	return findMany[models.AuditLogEntry](ctx, s.coll, AuditQuery(f),
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(1000))
}

// ---------- appointments ----------

type appointments struct{ coll *mongo.Collection }

func (s *appointments) Create(ctx context.Context, a *models.Appointment) error {
	return insertOne(ctx, s.coll, a)
}

func (s *appointments) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	return findByID[models.Appointment](ctx, s.coll, id)
}

func (s *appointments) List(ctx context.Context, f models.AppointmentFilter) ([]*models.Appointment, error) {
	return findMany[models.Appointment](ctx, s.coll, AppointmentQuery(f), options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}}))
}

func (s *appointments) Count(ctx context.Context, f models.AppointmentFilter) (int64, error) {
	return count(ctx, s.coll, AppointmentQuery(f))
}

func (s *appointments) Update(ctx context.Context, a *models.Appointment) error {
	return replaceByID(ctx, s.coll, a.ID, a)
}

func (s *appointments) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.coll, id)
}

func (s *appointments) MarkReminded(ctx context.Context, id string) error {
	return updateByID(ctx, s.coll, id, bson.M{"$set": bson.M{"reminder_sent": true}})
}

// ---------- teachers ----------

type teachers struct{ coll *mongo.Collection }

func (s *teachers) Create(ctx context.Context, t *models.Teacher) error {
	return insertOne(ctx, s.coll, t)
}

func (s *teachers) GetByID(ctx context.Context, id string) (*models.Teacher, error) {
	return findByID[models.Teacher](ctx, s.coll, id)
}

func (s *teachers) List(ctx context.Context) ([]*models.Teacher, error) {
	return findMany[models.Teacher](ctx, s.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (s *teachers) Update(ctx context.Context, t *models.Teacher) error {
	return replaceByID(ctx, s.coll, t.ID, t)
}

func (s *teachers) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.coll, id)
}

// ---------- careers ----------

type careers struct{ coll *mongo.Collection }

func (s *careers) Create(ctx context.Context, c *models.Career) error {
	return insertOne(ctx, s.coll, c)
}

func (s *careers) GetByID(ctx context.Context, id string) (*models.Career, error) {
	return findByID[models.Career](ctx, s.coll, id)
}

func (s *careers) GetByName(ctx context.Context, name string) (*models.Career, error) {
	return findOne[models.Career](ctx, s.coll, bson.M{"name": name})
}

func (s *careers) List(ctx context.Context, activeOnly bool) ([]*models.Career, error) {
	q := bson.M{}
	if activeOnly {
		q["is_active"] = true
	}
	return findMany[models.Career](ctx, s.coll, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (s *careers) Update(ctx context.Context, c *models.Career) error {
	return replaceByID(ctx, s.coll, c.ID, c)
}

func (s *careers) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.coll, id)
}

// ---------- career catalog ----------

const catalogID = "careers"

type catalog struct{ coll *mongo.Collection }

func (s *catalog) Names(ctx context.Context) ([]string, error) {
	var doc struct {
		Items []string `bson:"items"`
	}
	if err := s.coll.FindOne(ctx, bson.M{"_id": catalogID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("read career catalog: %w", err)
	}
	return doc.Items, nil
}

func (s *catalog) Seed(ctx context.Context, names []string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": catalogID},
		bson.M{"$setOnInsert": bson.M{"items": names}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed career catalog: %w", err)
	}
	return nil
}

func (s *catalog) Add(ctx context.Context, name string) error {
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": catalogID}, bson.M{"$addToSet": bson.M{"items": name}}); err != nil {
		return fmt.Errorf("add to career catalog: %w", err)
	}
	return nil
}

func (s *catalog) Remove(ctx context.Context, name string) error {
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": catalogID}, bson.M{"$pull": bson.M{"items": name}}); err != nil {
		return fmt.Errorf("remove from career catalog: %w", err)
	}
	return nil
}

// ---------- webhooks ----------

type webhooks struct{ coll *mongo.Collection }

func (s *webhooks) Create(ctx context.Context, w *models.Webhook) error {
	return insertOne(ctx, s.coll, w)
}

func (s *webhooks) GetByID(ctx context.Context, id string) (*models.Webhook, error) {
	return findByID[models.Webhook](ctx, s.coll, id)
}

func (s *webhooks) List(ctx context.Context) ([]*models.Webhook, error) {
	return findMany[models.Webhook](ctx, s.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (s *webhooks) ListForEvent(ctx context.Context, event string) ([]*models.Webhook, error) {
	return findMany[models.Webhook](ctx, s.coll, bson.M{"is_active": true, "events": event})
}

func (s *webhooks) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.coll, id)
}

// ---------- notification settings ----------

type settings struct{ coll *mongo.Collection }

func (s *settings) GetNotificationSettings(ctx context.Context) (*models.NotificationSettings, error) {
	return findByID[models.NotificationSettings](ctx, s.coll, models.SettingsID)
}

func (s *settings) SaveNotificationSettings(ctx context.Context, ns *models.NotificationSettings) error {
	ns.ID = models.SettingsID
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": ns.ID}, ns, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save notification settings: %w", err)
	}
	return nil
}

// ---------- sessions ----------

type sessions struct{ coll *mongo.Collection }

func (s *sessions) Create(ctx context.Context, sess *models.Session) error {
	return insertOne(ctx, s.coll, sess)
}

func (s *sessions) Get(ctx context.Context, token string) (*models.Session, error) {
	return findByID[models.Session](ctx, s.coll, token)
}

func (s *sessions) Delete(ctx context.Context, token string) error {
	return deleteByID(ctx, s.coll, token)
}

func (s *sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}

// ---------- calendar tokens ----------

type calendarTokens struct{ coll *mongo.Collection }

func (s *calendarTokens) Get(ctx context.Context, userID string) (*models.CalendarToken, error) {
	return findByID[models.CalendarToken](ctx, s.coll, userID)
}

func (s *calendarTokens) Save(ctx context.Context, t *models.CalendarToken) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": t.UserID}, t, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save calendar token: %w", err)
	}
	return nil
}

func (s *calendarTokens) Delete(ctx context.Context, userID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("delete calendar token: %w", err)
	}
	return nil
}
