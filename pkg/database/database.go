package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	CollUsers          = "users"
	CollLeads          = "leads"
	CollConversations  = "conversations"
	CollStudents       = "students"
	CollCustomFields   = "custom_fields"
	CollChangeRequests = "change_requests"
	CollAuditLogs      = "audit_logs"
	CollAppointments   = "appointments"
	CollTeachers       = "teachers"
	CollCareers        = "careers"
	CollSettings       = "settings"
	CollNotifications  = "notification_settings"
	CollWebhooks       = "webhooks"
	CollSessions       = "user_sessions"
	CollCalendarTokens = "google_calendar_tokens"
)

// Client holds the MongoDB client and the application database
type Client struct {
	Mongo *mongo.Client
	DB    *mongo.Database
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxPoolSize     uint64        // Maximum number of connections per server
	MinPoolSize     uint64        // Connections kept warm
	MaxConnIdleTime time.Duration // Close idle connections after this long
	ConnectTimeout  time.Duration
}

// DefaultPoolConfig returns sensible defaults for connection pooling
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxPoolSize:     50,
		MinPoolSize:     5,
		MaxConnIdleTime: 10 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// ClientOptions builds the driver options for uri with the given pool settings.
func ClientOptions(uri string, pool PoolConfig) *options.ClientOptions {
	opts := options.Client().ApplyURI(uri).SetBSONOptions(&options.BSONOptions{
		// custom field values holding documents decode as maps, not bson.D
		DefaultDocumentM: true,
	})
	if pool.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(pool.MaxPoolSize)
	}
	if pool.MinPoolSize > 0 {
		opts.SetMinPoolSize(pool.MinPoolSize)
	}
	if pool.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(pool.MaxConnIdleTime)
	}
	if pool.ConnectTimeout > 0 {
		opts.SetConnectTimeout(pool.ConnectTimeout)
	}
	return opts
}

// NewClient connects to MongoDB, verifies the connection and creates indexes.
func NewClient(ctx context.Context, uri, dbName string, pool PoolConfig) (*Client, error) {
	if dbName == "" {
		return nil, fmt.Errorf("database name is required")
	}

	client, err := mongo.Connect(ctx, ClientOptions(uri, pool))
	if err != nil {
		return nil, fmt.Errorf("failed connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed pinging mongo: %w", err)
	}

	c := &Client{Mongo: client, DB: client.Database(dbName)}
	if err := c.EnsureIndexes(ctx); err != nil {
		log.Printf("⚠️  Index creation warning: %v", err)
	}

	log.Printf("✅ Database connected (%s)", dbName)
	return c, nil
}

// Close disconnects from MongoDB
func (c *Client) Close(ctx context.Context) error {
	return c.Mongo.Disconnect(ctx)
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.Mongo.Ping(ctx, readpref.Primary())
}

// Indexes returns the index models per collection.
func Indexes() map[string][]mongo.IndexModel {
	unique := options.Index().SetUnique(true)
	uniqueSparse := options.Index().SetUnique(true).SetSparse(true)

	return map[string][]mongo.IndexModel{
		CollUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "is_active", Value: 1}}},
		},
		CollLeads: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "assigned_agent_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		CollStudents: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "institutional_email", Value: 1}}, Options: uniqueSparse},
			{Keys: bson.D{{Key: "lead_id", Value: 1}}, Options: uniqueSparse},
		},
		CollTeachers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		CollCareers: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
		},
		CollAppointments: {
			{Keys: bson.D{{Key: "scheduled_at", Value: 1}}},
			{Keys: bson.D{{Key: "agent_id", Value: 1}}},
		},
		CollCustomFields: {
			{Keys: bson.D{{Key: "order", Value: 1}}},
		},
		CollChangeRequests: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		CollAuditLogs: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "entity_id", Value: 1}}},
		},
		CollSessions: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
	}
}

// EnsureIndexes creates every index. Existing indexes are left as they are.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	for coll, models := range Indexes() {
		if _, err := c.DB.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll, err)
		}
	}
	return nil
}
