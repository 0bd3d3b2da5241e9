package models

import "github.com/shopspring/decimal"

// AccessDecision is the result of the payment-health gate for one
// (user, course) pair. Reason and the overdue figures are only set when
// access is denied.
type AccessDecision struct {
	HasAccess     bool            `json:"hasAccess"`
	Reason        string          `json:"reason,omitempty"`
	OverdueAmount decimal.Decimal `json:"overdueAmount,omitempty"`
	OverdueDays   int             `json:"overdueDays,omitempty"`
}
