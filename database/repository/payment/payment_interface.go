package paymentRepo

import (
	"coursebill/models"

	"github.com/shopspring/decimal"
)

// PaymentRepository is the persistence boundary for the payments ledger
// mirror. Lookups return (nil, nil) when no record matches.
type PaymentRepository interface {
	Insert(record models.PaymentRecord) error
	GetByScheduleID(scheduleID string) (*models.PaymentRecord, error)
	// ApplyRefund bumps the cumulative refunded amount and derived status.
	ApplyRefund(id string, refundedAmount decimal.Decimal, status models.PaymentRecordStatus, reason string) error
}
