package billing

import (
	"context"
	"fmt"
	"time"

	enrollmentRepo "coursebill/database/repository/enrollment"
	paymentRepo "coursebill/database/repository/payment"
	scheduleRepo "coursebill/database/repository/schedule"
	"coursebill/models"
	"coursebill/services/notification"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultSettlementReconciler is the production SettlementReconciler.
type DefaultSettlementReconciler struct {
	Schedules   scheduleRepo.ScheduleRepository
	Enrollments enrollmentRepo.EnrollmentRepository
	Payments    paymentRepo.PaymentRepository
	Provider    ProcessorProvider
	Notifier    notification.NotificationService
	Logger      *zap.Logger
}

// ApplyInvoicePaid settles the schedule row referenced by a processor
// invoice. Re-delivery of the same event is a no-op: a row already marked
// paid is never re-applied, so paid_amount cannot double-count.
func (r *DefaultSettlementReconciler) ApplyInvoicePaid(ctx context.Context, tenantID, invoiceID string, paidAt time.Time) error {
	row, err := r.Schedules.GetByInvoiceID(invoiceID)
	if err != nil {
		return err
	}
	return r.settle(ctx, tenantID, row, invoiceID, "", paidAt)
}

// ApplyIntentSucceeded settles the schedule row referenced by a charge intent.
func (r *DefaultSettlementReconciler) ApplyIntentSucceeded(ctx context.Context, tenantID, intentID string, paidAt time.Time) error {
	row, err := r.Schedules.GetByIntentID(intentID)
	if err != nil {
		return err
	}
	return r.settle(ctx, tenantID, row, "", intentID, paidAt)
}

func (r *DefaultSettlementReconciler) settle(ctx context.Context, tenantID string, row *models.PaymentSchedule, invoiceID, intentID string, paidAt time.Time) error {
	if row == nil {
		// Events can reference invoices created outside the engine; ignore.
		r.Logger.Warn("settlement event references no known schedule row",
			zap.String("tenantID", tenantID),
			zap.String("invoiceID", invoiceID),
			zap.String("intentID", intentID),
		)
		return nil
	}
	if row.Status == models.SchedulePaid {
		return nil
	}

	if err := r.Schedules.MarkPaid(row.ID, paidAt); err != nil {
		return err
	}

	record := models.PaymentRecord{
		ID:              uuid.New().String(),
		TenantID:        row.TenantID,
		EnrollmentID:    row.EnrollmentID,
		ScheduleID:      row.ID,
		Amount:          row.Amount,
		Currency:        row.Currency,
		Status:          models.PaymentRecordSucceeded,
		StripeIntentID:  firstNonEmpty(intentID, row.StripeIntentID),
		StripeInvoiceID: firstNonEmpty(invoiceID, row.StripeInvoiceID),
		RefundedAmount:  decimal.Zero,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	// The ledger mirror is auxiliary; its failure never rolls back the
	// settlement.
	existing, err := r.Payments.GetByScheduleID(row.ID)
	if err != nil {
		r.Logger.Error("failed to check payments ledger", zap.String("scheduleID", row.ID), zap.Error(err))
	} else if existing == nil {
		if err := r.Payments.Insert(record); err != nil {
			r.Logger.Error("failed to insert payments ledger record", zap.String("scheduleID", row.ID), zap.Error(err))
		}
	}

	r.recomputePaidAmount(row.EnrollmentID)
	return nil
}

// ApplyChargeFailed records a declined or failed charge on the matching row.
// A paid row is never un-paid by a late failure event.
func (r *DefaultSettlementReconciler) ApplyChargeFailed(ctx context.Context, tenantID, invoiceID, intentID string) error {
	var row *models.PaymentSchedule
	var err error
	if invoiceID != "" {
		row, err = r.Schedules.GetByInvoiceID(invoiceID)
	} else {
		row, err = r.Schedules.GetByIntentID(intentID)
	}
	if err != nil {
		return err
	}
	if row == nil || row.Status == models.SchedulePaid {
		return nil
	}

	if err := r.Schedules.MarkFailed(row.ID); err != nil {
		return err
	}

	if r.Notifier != nil {
		enrollment, err := r.Enrollments.GetByID(row.EnrollmentID)
		if err == nil && enrollment != nil {
			if err := r.Notifier.SendPaymentFailed(ctx, enrollment.UserID, row.Amount.StringFixed(2), row.Currency); err != nil {
				r.Logger.Warn("failed to send payment-failed notification", zap.String("userID", enrollment.UserID), zap.Error(err))
			}
		}
	}
	return nil
}

// Refund issues an administrator-initiated refund for a collected schedule
// row. amount == nil means a full refund of the row's face amount.
func (r *DefaultSettlementReconciler) Refund(ctx context.Context, scheduleID string, amount *decimal.Decimal, reason string) (*RefundResult, error) {
	if reason == "" {
		return nil, validationErrorf("refund reason is required")
	}

	row, err := r.Schedules.GetByID(scheduleID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrScheduleNotFound
	}
	if row.Status != models.SchedulePaid {
		return nil, validationErrorf("cannot refund schedule row %s with status %s, only collected payments are refundable", scheduleID, row.Status)
	}

	refundAmount := row.Amount
	if amount != nil {
		refundAmount = *amount
	}
	if refundAmount.LessThanOrEqual(decimal.Zero) {
		return nil, validationErrorf("refund amount must be positive, got %s", refundAmount)
	}
	if refundAmount.GreaterThan(row.Amount) {
		return nil, validationErrorf("refund amount %s exceeds schedule amount %s", refundAmount, row.Amount)
	}
	newRefunded := row.RefundedAmount.Add(refundAmount)
	if newRefunded.GreaterThan(row.Amount) {
		return nil, validationErrorf("cumulative refunds %s would exceed schedule amount %s", newRefunded, row.Amount)
	}

	pc, err := r.Provider.ClientFor(ctx, row.TenantID)
	if err != nil {
		return nil, err
	}

	ledger, err := r.Payments.GetByScheduleID(scheduleID)
	if err != nil {
		r.Logger.Error("failed to load payments ledger record", zap.String("scheduleID", scheduleID), zap.Error(err))
	}

	intentID, err := r.resolveChargeReference(ctx, pc, row, ledger)
	if err != nil {
		return nil, err
	}

	refund, err := pc.CreateRefund(ctx, intentID, refundAmount, row.Currency, reason, map[string]string{
		"schedule_id":   row.ID,
		"enrollment_id": row.EnrollmentID,
	})
	if err != nil {
		return nil, err
	}

	// A partial refund does not un-pay the row: the installment was still
	// collected. Only a full-face refund flips the stored status.
	isPartial := refundAmount.LessThan(row.Amount)
	status := models.ScheduleRefunded
	if isPartial {
		status = models.SchedulePaid
	}
	if err := r.Schedules.SetRefund(row.ID, status, newRefunded); err != nil {
		return nil, fmt.Errorf("refund %s issued but schedule row update failed: %w", refund.ID, err)
	}

	// Ledger mirror update is best-effort.
	if ledger != nil {
		cumulative := ledger.RefundedAmount.Add(refundAmount)
		ledgerStatus := models.PaymentRecordPartiallyRefunded
		if cumulative.GreaterThanOrEqual(ledger.Amount) {
			ledgerStatus = models.PaymentRecordRefunded
		}
		if err := r.Payments.ApplyRefund(ledger.ID, cumulative, ledgerStatus, reason); err != nil {
			r.Logger.Error("failed to update payments ledger after refund", zap.String("scheduleID", scheduleID), zap.Error(err))
		}
	}

	r.recomputePaidAmount(row.EnrollmentID)

	return &RefundResult{
		RefundID: refund.ID,
		Amount:   refund.Amount,
		Currency: refund.Currency,
		Status:   refund.Status,
	}, nil
}

// resolveChargeReference hunts for the upstream payment intent behind a
// collected row, in fixed order: the row's intent, the ledger's intent, the
// ledger's invoice, the row's invoice. No reference means a manual refund in
// the processor console.
func (r *DefaultSettlementReconciler) resolveChargeReference(ctx context.Context, pc ProcessorClient, row *models.PaymentSchedule, ledger *models.PaymentRecord) (string, error) {
	if row.StripeIntentID != "" {
		return row.StripeIntentID, nil
	}
	if ledger != nil && ledger.StripeIntentID != "" {
		return ledger.StripeIntentID, nil
	}

	invoiceIDs := []string{}
	if ledger != nil && ledger.StripeInvoiceID != "" {
		invoiceIDs = append(invoiceIDs, ledger.StripeInvoiceID)
	}
	if row.StripeInvoiceID != "" {
		invoiceIDs = append(invoiceIDs, row.StripeInvoiceID)
	}
	for _, invoiceID := range invoiceIDs {
		invoice, err := pc.GetInvoice(ctx, invoiceID)
		if err != nil {
			r.Logger.Warn("failed to fetch invoice while resolving charge reference",
				zap.String("invoiceID", invoiceID), zap.Error(err))
			continue
		}
		if invoice != nil && invoice.PaymentIntentID != "" {
			return invoice.PaymentIntentID, nil
		}
	}
	return "", fmt.Errorf("schedule row %s: %w", row.ID, ErrReferenceNotFound)
}

// recomputePaidAmount re-derives the enrollment aggregate from paid rows.
// Refunds are tracked separately; a partially refunded installment still
// counts as collected at face value.
func (r *DefaultSettlementReconciler) recomputePaidAmount(enrollmentID string) {
	paid, err := r.Schedules.SumPaid(enrollmentID)
	if err != nil {
		r.Logger.Error("failed to recompute paid amount", zap.String("enrollmentID", enrollmentID), zap.Error(err))
		return
	}

	enrollment, err := r.Enrollments.GetByID(enrollmentID)
	if err != nil || enrollment == nil {
		r.Logger.Error("failed to load enrollment for paid-amount update", zap.String("enrollmentID", enrollmentID), zap.Error(err))
		return
	}

	status := models.PaymentStatusPending
	switch {
	case paid.GreaterThanOrEqual(enrollment.TotalAmount) && enrollment.TotalAmount.GreaterThan(decimal.Zero):
		status = models.PaymentStatusPaid
	case paid.GreaterThan(decimal.Zero):
		status = models.PaymentStatusPartial
	}

	if err := r.Enrollments.SetPaidAmount(enrollmentID, paid, status); err != nil {
		r.Logger.Error("failed to persist recomputed paid amount", zap.String("enrollmentID", enrollmentID), zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
