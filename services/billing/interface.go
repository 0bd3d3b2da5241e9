package billing

import (
	"context"
	"time"

	"coursebill/models"

	"github.com/shopspring/decimal"
)

// CheckoutIntent is what the checkout UI needs to collect a payment.
type CheckoutIntent struct {
	ClientSecret   string `json:"clientSecret"`
	IntentID       string `json:"intentId"`
	PublishableKey string `json:"publishableKey"`
}

// SweepResult aggregates one batch sweep run. Per-row failures are isolated;
// Errors carries their messages for observability.
type SweepResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// RefundResult reports an issued refund.
type RefundResult struct {
	RefundID string          `json:"refundId"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
}

// InvoiceOrchestrator drives schedule rows through the processor: on-demand
// at checkout and in bulk from the scheduled sweep.
type InvoiceOrchestrator interface {
	CreateOrReuseIntent(ctx context.Context, scheduleID string) (*CheckoutIntent, error)
	SweepUpcoming(ctx context.Context, daysAhead int) (*SweepResult, error)
	AdjustSchedule(ctx context.Context, scheduleID string, amount decimal.Decimal, scheduledDate time.Time) error
}

// SettlementReconciler applies charge and refund outcomes back onto schedule
// rows and the enrollment aggregate, idempotently.
type SettlementReconciler interface {
	ApplyInvoicePaid(ctx context.Context, tenantID, invoiceID string, paidAt time.Time) error
	ApplyIntentSucceeded(ctx context.Context, tenantID, intentID string, paidAt time.Time) error
	ApplyChargeFailed(ctx context.Context, tenantID, invoiceID, intentID string) error
	Refund(ctx context.Context, scheduleID string, amount *decimal.Decimal, reason string) (*RefundResult, error)
}

// AccessGate decides whether payment health permits course access.
type AccessGate interface {
	CheckAccess(ctx context.Context, userID, courseID, tenantID string) (*models.AccessDecision, error)
}
