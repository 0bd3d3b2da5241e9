package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecordStatus tracks the ledger mirror of a collected payment. Unlike
// the schedule row, the mirror does flip to partially_refunded, because it is
// the record admins reconcile against.
type PaymentRecordStatus string

const (
	PaymentRecordSucceeded         PaymentRecordStatus = "succeeded"
	PaymentRecordFailed            PaymentRecordStatus = "failed"
	PaymentRecordRefunded          PaymentRecordStatus = "refunded"
	PaymentRecordPartiallyRefunded PaymentRecordStatus = "partially_refunded"
)

// PaymentRecord mirrors a settled charge for audit purposes. It carries the
// cumulative refunded amount across possibly multiple partial refunds.
type PaymentRecord struct {
	ID              string              `bson:"id" json:"id"`
	TenantID        string              `bson:"tenant_id" json:"tenantId"`
	EnrollmentID    string              `bson:"enrollment_id" json:"enrollmentId"`
	ScheduleID      string              `bson:"schedule_id" json:"scheduleId"`
	Amount          decimal.Decimal     `bson:"amount" json:"amount"`
	Currency        string              `bson:"currency" json:"currency"`
	Status          PaymentRecordStatus `bson:"status" json:"status"`
	StripeIntentID  string              `bson:"stripe_intent_id,omitempty" json:"stripeIntentId,omitempty"`
	StripeInvoiceID string              `bson:"stripe_invoice_id,omitempty" json:"stripeInvoiceId,omitempty"`
	RefundedAmount  decimal.Decimal     `bson:"refunded_amount" json:"refundedAmount"`
	RefundReason    string              `bson:"refund_reason,omitempty" json:"refundReason,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updatedAt"`
}
