package scheduleRepo

import (
	"time"

	"coursebill/models"

	"github.com/shopspring/decimal"
)

// ScheduleRepository is the persistence boundary for payment schedule rows.
// Rows are mutated in place and never deleted. Lookups return (nil, nil) when
// no row matches, so callers can distinguish absence from store failure.
type ScheduleRepository interface {
	InsertMany(rows []models.PaymentSchedule) error
	GetByID(id string) (*models.PaymentSchedule, error)
	GetByInvoiceID(invoiceID string) (*models.PaymentSchedule, error)
	GetByIntentID(intentID string) (*models.PaymentSchedule, error)
	ListByEnrollment(enrollmentID string) ([]models.PaymentSchedule, error)
	// ListDue returns rows due on or before the horizon that are eligible for
	// invoicing: pending and adjusted rows without a processor invoice
	// reference, plus failed rows regardless of a leftover reference so
	// declined charges keep getting retried.
	ListDue(horizon time.Time) ([]models.PaymentSchedule, error)
	// ListUncollected returns pending/failed/adjusted rows for the
	// enrollments given, used by the access gate.
	ListUncollected(enrollmentIDs []string) ([]models.PaymentSchedule, error)

	SetProcessing(id, invoiceID, intentID string) error
	SetIntent(id, intentID string) error
	MarkPaid(id string, paidAt time.Time) error
	MarkFailed(id string) error
	SetRefund(id string, status models.ScheduleStatus, refundedAmount decimal.Decimal) error
	// Adjust overrides amount and/or due date on a failed row, clears its
	// processor references and marks it adjusted so the next sweep picks it
	// up as a fresh charge.
	Adjust(id string, amount decimal.Decimal, scheduledDate time.Time) error

	// SumPaid recomputes the collected total for an enrollment as the sum of
	// face amounts of its paid rows.
	SumPaid(enrollmentID string) (decimal.Decimal, error)
}
