package models

import "time"

// PaymentCredential is a tenant's processor credential set. The billing engine
// treats it as read-only input; administration of credentials happens
// elsewhere.
type PaymentCredential struct {
	TenantID       string    `bson:"tenant_id" json:"tenantId"`
	SecretKey      string    `bson:"secret_key" json:"-"`
	PublishableKey string    `bson:"publishable_key" json:"publishableKey"`
	WebhookSecret  string    `bson:"webhook_secret" json:"-"`
	Enabled        bool      `bson:"enabled" json:"enabled"`
	// GraceDays overrides the platform default overdue tolerance; 0 means use
	// the configured default.
	GraceDays int       `bson:"grace_days,omitempty" json:"graceDays,omitempty"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
