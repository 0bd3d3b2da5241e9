package billing

import (
	"time"

	"coursebill/models"
	"coursebill/utils"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// BuildSchedule translates a product's payment model and plan parameters into
// the concrete list of due payments. It is a pure function: no I/O, no clock
// reads, all dates derived from start.
//
// For one_time, free and deposit_then_plan the face amounts of the returned
// items sum exactly to total; any rounding remainder is absorbed by the last
// installment. For subscription, total is the per-cycle price.
func BuildSchedule(total decimal.Decimal, currency string, plan models.PaymentPlan, start time.Time) ([]models.ScheduleLineItem, error) {
	if !utils.ValidCurrency(currency) {
		return nil, validationErrorf("invalid currency code %q", currency)
	}
	if plan.Model != models.ModelFree && total.LessThanOrEqual(decimal.Zero) {
		return nil, validationErrorf("total amount must be positive, got %s", total)
	}

	switch plan.Model {
	case models.ModelFree:
		return []models.ScheduleLineItem{{
			PaymentNumber: 1,
			PaymentType:   models.PaymentTypeOneTime,
			Amount:        decimal.Zero,
			DueDate:       start,
		}}, nil

	case models.ModelOneTime:
		return []models.ScheduleLineItem{{
			PaymentNumber: 1,
			PaymentType:   models.PaymentTypeOneTime,
			Amount:        utils.RoundMoney(total, currency),
			DueDate:       start,
		}}, nil

	case models.ModelDepositThenPlan:
		return buildDepositPlan(total, currency, plan, start)

	case models.ModelSubscription:
		return buildSubscription(total, currency, plan, start)

	default:
		return nil, validationErrorf("unknown payment model %q", plan.Model)
	}
}

func buildDepositPlan(total decimal.Decimal, currency string, plan models.PaymentPlan, start time.Time) ([]models.ScheduleLineItem, error) {
	if plan.Installments < 1 {
		return nil, validationErrorf("installment count must be at least 1, got %d", plan.Installments)
	}
	switch plan.Frequency {
	case models.FrequencyWeekly, models.FrequencyBiweekly, models.FrequencyMonthly:
	case models.FrequencyCustom:
		if plan.CustomDays < 1 {
			return nil, validationErrorf("custom frequency requires a positive day interval, got %d", plan.CustomDays)
		}
	default:
		return nil, validationErrorf("unknown installment frequency %q", plan.Frequency)
	}

	deposit, err := computeDeposit(total, currency, plan)
	if err != nil {
		return nil, err
	}
	if deposit.GreaterThanOrEqual(total) {
		return nil, validationErrorf("deposit %s must be less than total %s", deposit, total)
	}
	if deposit.LessThanOrEqual(decimal.Zero) {
		return nil, validationErrorf("deposit must be positive, got %s", deposit)
	}

	// Allocation happens in the currency's minor units so no installment can
	// round to zero or below. Every installment must be fundable at one minor
	// unit minimum.
	remaining := total.Sub(deposit)
	remainingMinor := utils.ToMinorUnits(remaining, currency)
	if remainingMinor < int64(plan.Installments) {
		return nil, validationErrorf("remaining balance %s cannot fund %d installments", remaining, plan.Installments)
	}

	base := remainingMinor / int64(plan.Installments)
	extra := remainingMinor % int64(plan.Installments)

	items := make([]models.ScheduleLineItem, 0, plan.Installments+1)
	items = append(items, models.ScheduleLineItem{
		PaymentNumber: 1,
		PaymentType:   models.PaymentTypeDeposit,
		Amount:        deposit,
		DueDate:       start,
	})

	for i := 1; i <= plan.Installments; i++ {
		minor := base
		// The remainder spreads one minor unit at a time across the trailing
		// installments so the face amounts sum exactly to the balance.
		if int64(plan.Installments-i) < extra {
			minor++
		}

		items = append(items, models.ScheduleLineItem{
			PaymentNumber: i + 1,
			PaymentType:   models.PaymentTypeInstallment,
			Amount:        utils.FromMinorUnits(minor, currency),
			DueDate:       advanceBy(start, plan.Frequency, plan.CustomDays, i),
		})
	}
	return items, nil
}

func computeDeposit(total decimal.Decimal, currency string, plan models.PaymentPlan) (decimal.Decimal, error) {
	switch plan.DepositType {
	case models.DepositFixed:
		return utils.RoundMoney(plan.DepositAmount, currency), nil
	case models.DepositPercentage:
		if plan.DepositPercentage.LessThanOrEqual(decimal.Zero) || plan.DepositPercentage.GreaterThanOrEqual(oneHundred) {
			return decimal.Zero, validationErrorf("deposit percentage must be in (0, 100), got %s", plan.DepositPercentage)
		}
		return utils.RoundMoney(total.Mul(plan.DepositPercentage).Div(oneHundred), currency), nil
	default:
		return decimal.Zero, validationErrorf("unknown deposit type %q", plan.DepositType)
	}
}

func buildSubscription(total decimal.Decimal, currency string, plan models.PaymentPlan, start time.Time) ([]models.ScheduleLineItem, error) {
	if plan.Cycles < 1 {
		return nil, validationErrorf("subscription cycle count must be at least 1, got %d", plan.Cycles)
	}

	first := start
	if plan.TrialDays > 0 {
		first = start.AddDate(0, 0, plan.TrialDays)
	}
	price := utils.RoundMoney(total, currency)

	items := make([]models.ScheduleLineItem, 0, plan.Cycles)
	for i := 0; i < plan.Cycles; i++ {
		due, err := advanceByInterval(first, plan.Interval, i)
		if err != nil {
			return nil, err
		}
		items = append(items, models.ScheduleLineItem{
			PaymentNumber: i + 1,
			PaymentType:   models.PaymentTypeSubscriptionCycle,
			Amount:        price,
			DueDate:       due,
		})
	}
	return items, nil
}

// advanceBy returns start advanced by n steps of the installment frequency.
// Monthly advances by calendar months, not fixed day counts.
func advanceBy(start time.Time, freq models.PlanFrequency, customDays, n int) time.Time {
	switch freq {
	case models.FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case models.FrequencyBiweekly:
		return start.AddDate(0, 0, 14*n)
	case models.FrequencyCustom:
		return start.AddDate(0, 0, customDays*n)
	default: // monthly
		return start.AddDate(0, n, 0)
	}
}

func advanceByInterval(start time.Time, interval models.BillingInterval, n int) (time.Time, error) {
	switch interval {
	case models.IntervalWeekly:
		return start.AddDate(0, 0, 7*n), nil
	case models.IntervalMonthly:
		return start.AddDate(0, n, 0), nil
	case models.IntervalQuarterly:
		return start.AddDate(0, 3*n, 0), nil
	case models.IntervalAnnually:
		return start.AddDate(n, 0, 0), nil
	default:
		return time.Time{}, validationErrorf("unknown billing interval %q", interval)
	}
}
