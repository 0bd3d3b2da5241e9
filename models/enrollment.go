package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentStatus is the lifecycle state of an enrollment. It is owned by the
// enrollment workflow; the billing engine never writes it.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// PaymentStatus summarizes payment health on the enrollment aggregate.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Enrollment is one (user, product) purchase. The billing engine only mutates
// PaidAmount, PaymentStatus and StripeCustomerID; everything else belongs to
// the enrollment workflow.
type Enrollment struct {
	ID               string           `bson:"id" json:"id"`
	TenantID         string           `bson:"tenant_id" json:"tenantId"`
	UserID           string           `bson:"user_id" json:"userId"`
	ProductID        string           `bson:"product_id" json:"productId"`
	Status           EnrollmentStatus `bson:"status" json:"status"`
	TotalAmount      decimal.Decimal  `bson:"total_amount" json:"totalAmount"`
	PaidAmount       decimal.Decimal  `bson:"paid_amount" json:"paidAmount"`
	Currency         string           `bson:"currency" json:"currency"`
	PaymentStatus    PaymentStatus    `bson:"payment_status" json:"paymentStatus"`
	StripeCustomerID string           `bson:"stripe_customer_id,omitempty" json:"stripeCustomerId,omitempty"`
	EnrolledAt       time.Time        `bson:"enrolled_at" json:"enrolledAt"`
	ExpiresAt        *time.Time       `bson:"expires_at,omitempty" json:"expiresAt,omitempty"`
}
