package models

import "time"

// User is the slice of the platform user record the billing engine needs:
// contact details for processor customer creation and the cached processor
// customer reference.
type User struct {
	ID               string    `bson:"id" json:"id"`
	TenantID         string    `bson:"tenant_id" json:"tenantId"`
	Email            string    `bson:"email" json:"email"`
	Name             string    `bson:"name" json:"name"`
	StripeCustomerID string    `bson:"stripe_customer_id,omitempty" json:"stripeCustomerId,omitempty"`
	FCMToken         string    `bson:"fcm_token,omitempty" json:"-"`
	CreatedAt        time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updatedAt"`
}
