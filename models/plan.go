package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentModel selects how a product's price is collected.
type PaymentModel string

const (
	ModelOneTime         PaymentModel = "one_time"
	ModelFree            PaymentModel = "free"
	ModelDepositThenPlan PaymentModel = "deposit_then_plan"
	ModelSubscription    PaymentModel = "subscription"
)

// DepositType selects how the upfront deposit is computed.
type DepositType string

const (
	DepositFixed      DepositType = "fixed"
	DepositPercentage DepositType = "percentage"
)

// PlanFrequency is the cadence of installments after a deposit.
type PlanFrequency string

const (
	FrequencyWeekly   PlanFrequency = "weekly"
	FrequencyBiweekly PlanFrequency = "biweekly"
	FrequencyMonthly  PlanFrequency = "monthly"
	FrequencyCustom   PlanFrequency = "custom"
)

// BillingInterval is the cadence of subscription cycles.
type BillingInterval string

const (
	IntervalWeekly    BillingInterval = "weekly"
	IntervalMonthly   BillingInterval = "monthly"
	IntervalQuarterly BillingInterval = "quarterly"
	IntervalAnnually  BillingInterval = "annually"
)

// PaymentPlan carries the per-product plan parameters. Which fields apply
// depends on Model; BuildSchedule switches exhaustively on it.
type PaymentPlan struct {
	Model             PaymentModel    `bson:"model" json:"model"`
	DepositType       DepositType     `bson:"deposit_type,omitempty" json:"depositType,omitempty"`
	DepositAmount     decimal.Decimal `bson:"deposit_amount,omitempty" json:"depositAmount,omitempty"`
	DepositPercentage decimal.Decimal `bson:"deposit_percentage,omitempty" json:"depositPercentage,omitempty"`
	Installments      int             `bson:"installments,omitempty" json:"installments,omitempty"`
	Frequency         PlanFrequency   `bson:"frequency,omitempty" json:"frequency,omitempty"`
	CustomDays        int             `bson:"custom_days,omitempty" json:"customDays,omitempty"`
	Interval          BillingInterval `bson:"interval,omitempty" json:"interval,omitempty"`
	Cycles            int             `bson:"cycles,omitempty" json:"cycles,omitempty"`
	TrialDays         int             `bson:"trial_days,omitempty" json:"trialDays,omitempty"`
}

// ScheduleLineItem is one entry of a built payment schedule, before it is
// persisted as a PaymentSchedule row.
type ScheduleLineItem struct {
	PaymentNumber int             `json:"paymentNumber"`
	PaymentType   PaymentType     `json:"paymentType"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"dueDate"`
}
