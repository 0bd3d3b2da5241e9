package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleStatus is the stored state of a schedule row. "Overdue" is never
// stored; it is derived at read time via IsOverdue.
type ScheduleStatus string

const (
	SchedulePending    ScheduleStatus = "pending"
	ScheduleProcessing ScheduleStatus = "processing"
	SchedulePaid       ScheduleStatus = "paid"
	ScheduleFailed     ScheduleStatus = "failed"
	ScheduleRefunded   ScheduleStatus = "refunded"
	// ScheduleAdjusted marks a manually corrected row awaiting the next sweep.
	ScheduleAdjusted ScheduleStatus = "adjusted"
)

// PaymentType classifies what a schedule row collects.
type PaymentType string

const (
	PaymentTypeDeposit           PaymentType = "deposit"
	PaymentTypeInstallment       PaymentType = "installment"
	PaymentTypeOneTime           PaymentType = "one_time"
	PaymentTypeSubscriptionCycle PaymentType = "subscription_cycle"
)

// PaymentSchedule is one due payment within an enrollment's plan. Rows are
// created in bulk at enrollment time and mutated in place; they are never
// deleted, so the collection doubles as an auditable ledger.
type PaymentSchedule struct {
	ID              string          `bson:"id" json:"id"`
	TenantID        string          `bson:"tenant_id" json:"tenantId"`
	EnrollmentID    string          `bson:"enrollment_id" json:"enrollmentId"`
	PaymentNumber   int             `bson:"payment_number" json:"paymentNumber"`
	PaymentType     PaymentType     `bson:"payment_type" json:"paymentType"`
	Amount          decimal.Decimal `bson:"amount" json:"amount"`
	Currency        string          `bson:"currency" json:"currency"`
	ScheduledDate   time.Time       `bson:"scheduled_date" json:"scheduledDate"`
	Status          ScheduleStatus  `bson:"status" json:"status"`
	StripeInvoiceID string          `bson:"stripe_invoice_id,omitempty" json:"stripeInvoiceId,omitempty"`
	StripeIntentID  string          `bson:"stripe_intent_id,omitempty" json:"stripeIntentId,omitempty"`
	PaidDate        *time.Time      `bson:"paid_date,omitempty" json:"paidDate,omitempty"`
	RefundedAmount  decimal.Decimal `bson:"refunded_amount" json:"refundedAmount"`
	CreatedAt       time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updatedAt"`
}

// IsOverdue reports whether the row is an uncollected payment whose due date
// passed more than graceDays ago. Computed at read time only.
func (s *PaymentSchedule) IsOverdue(now time.Time, graceDays int) bool {
	if s.Status != SchedulePending && s.Status != ScheduleFailed && s.Status != ScheduleAdjusted {
		return false
	}
	return now.After(s.ScheduledDate.AddDate(0, 0, graceDays))
}

// OverdueDays returns how many whole days past due the row is, ignoring grace.
func (s *PaymentSchedule) OverdueDays(now time.Time) int {
	if !now.After(s.ScheduledDate) {
		return 0
	}
	return int(now.Sub(s.ScheduledDate).Hours() / 24)
}
