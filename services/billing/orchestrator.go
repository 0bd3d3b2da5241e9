package billing

import (
	"context"
	"fmt"
	"time"

	enrollmentRepo "coursebill/database/repository/enrollment"
	scheduleRepo "coursebill/database/repository/schedule"
	"coursebill/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// sweepPacer spaces out processor calls during the batch sweep to respect the
// processor's rate limit. Serialization here is a courtesy, not a correctness
// requirement.
var sweepPacer = rate.NewLimiter(rate.Every(50*time.Millisecond), 1)

// Intent statuses under which an existing checkout intent is still usable and
// must be reused instead of creating a duplicate.
var reusableIntentStatuses = map[string]bool{
	"requires_payment_method": true,
	"requires_confirmation":   true,
	"requires_action":         true,
}

// DefaultInvoiceOrchestrator is the production InvoiceOrchestrator.
type DefaultInvoiceOrchestrator struct {
	Schedules   scheduleRepo.ScheduleRepository
	Enrollments enrollmentRepo.EnrollmentRepository
	Provider    ProcessorProvider
	Resolver    *CustomerResolver
	Logger      *zap.Logger

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (o *DefaultInvoiceOrchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// CreateOrReuseIntent is the checkout path. It re-reads the row immediately
// before acting and reuses a stored intent that is still collectible, so two
// quick checkout attempts hand back the same intent instead of minting a
// duplicate.
func (o *DefaultInvoiceOrchestrator) CreateOrReuseIntent(ctx context.Context, scheduleID string) (*CheckoutIntent, error) {
	row, err := o.Schedules.GetByID(scheduleID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrScheduleNotFound
	}
	if row.Status == models.SchedulePaid {
		return nil, validationErrorf("schedule row %s is already paid", scheduleID)
	}

	enrollment, err := o.Enrollments.GetByID(row.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, fmt.Errorf("enrollment %s not found for schedule row %s", row.EnrollmentID, scheduleID)
	}

	pc, err := o.Provider.ClientFor(ctx, row.TenantID)
	if err != nil {
		return nil, err
	}

	if row.StripeIntentID != "" {
		intent, err := pc.GetPaymentIntent(ctx, row.StripeIntentID)
		if err != nil {
			return nil, err
		}
		if intent != nil && reusableIntentStatuses[intent.Status] {
			return &CheckoutIntent{
				ClientSecret:   intent.ClientSecret,
				IntentID:       intent.ID,
				PublishableKey: pc.PublishableKey(),
			}, nil
		}
	}

	cust, err := o.Resolver.Resolve(ctx, pc, enrollment)
	if err != nil {
		return nil, err
	}

	params := IntentParams{
		Amount:   row.Amount,
		Currency: row.Currency,
		Metadata: map[string]string{
			"tenant_id":      row.TenantID,
			"enrollment_id":  row.EnrollmentID,
			"schedule_id":    row.ID,
			"payment_number": fmt.Sprintf("%d", row.PaymentNumber),
		},
	}
	if cust != nil {
		params.CustomerID = cust.ID
	}

	intent, err := pc.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := o.Schedules.SetIntent(row.ID, intent.ID); err != nil {
		return nil, err
	}

	return &CheckoutIntent{
		ClientSecret:   intent.ClientSecret,
		IntentID:       intent.ID,
		PublishableKey: pc.PublishableKey(),
	}, nil
}

// ensureInvoice runs the per-row algorithm: resolve customer and payment
// method, decide charge timing, create the processor-side invoice or intent,
// and persist the references with status processing.
func (o *DefaultInvoiceOrchestrator) ensureInvoice(ctx context.Context, pc ProcessorClient, stale *models.PaymentSchedule) error {
	// Re-read current state so a row settled between listing and acting is
	// skipped. Best-effort protection, not a distributed lock.
	row, err := o.Schedules.GetByID(stale.ID)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrScheduleNotFound
	}
	if row.Status == models.SchedulePaid || row.Status == models.ScheduleProcessing {
		return nil
	}

	enrollment, err := o.Enrollments.GetByID(row.EnrollmentID)
	if err != nil {
		return err
	}
	if enrollment == nil {
		return fmt.Errorf("enrollment %s not found for schedule row %s", row.EnrollmentID, row.ID)
	}

	cust, err := o.Resolver.Resolve(ctx, pc, enrollment)
	if err != nil {
		return err
	}

	// Customer-less rows cannot carry a processor invoice; fall back to a
	// bare charge intent the user settles at checkout.
	if cust == nil {
		intent, err := pc.CreatePaymentIntent(ctx, IntentParams{
			Amount:   row.Amount,
			Currency: row.Currency,
			Metadata: map[string]string{"schedule_id": row.ID, "enrollment_id": row.EnrollmentID},
		})
		if err != nil {
			return err
		}
		return o.Schedules.SetProcessing(row.ID, "", intent.ID)
	}

	paymentMethod, err := ResolvePaymentMethod(ctx, pc, cust, "")
	if err != nil {
		return err
	}
	if paymentMethod == "" {
		o.Logger.Info("no payment method on file, invoice will not auto-settle",
			zap.String("scheduleID", row.ID),
			zap.String("customerID", cust.ID),
		)
	}

	// Past-due rows are charged immediately; future rows get a send_invoice
	// with the processor's own due-date automation. Creating an invoice with
	// a past due date would be rejected upstream.
	chargeNow := !row.ScheduledDate.After(o.now())

	invoiceParams := InvoiceParams{
		CustomerID:          cust.ID,
		ChargeAutomatically: chargeNow,
		Metadata: map[string]string{
			"tenant_id":     row.TenantID,
			"enrollment_id": row.EnrollmentID,
			"schedule_id":   row.ID,
		},
	}
	if !chargeNow {
		due := row.ScheduledDate
		invoiceParams.DueDate = &due
	}

	invoice, err := pc.CreateInvoice(ctx, invoiceParams)
	if err != nil {
		return err
	}

	description := fmt.Sprintf("Payment %d of enrollment %s (%s)", row.PaymentNumber, row.EnrollmentID, row.PaymentType)
	if err := pc.AddInvoiceItem(ctx, cust.ID, invoice.ID, row.Amount, row.Currency, description); err != nil {
		return err
	}

	finalized, err := pc.FinalizeInvoice(ctx, invoice.ID)
	if err != nil {
		return err
	}
	if err := o.Schedules.SetProcessing(row.ID, finalized.ID, finalized.PaymentIntentID); err != nil {
		return err
	}

	if chargeNow && paymentMethod != "" {
		if _, err := pc.PayInvoice(ctx, finalized.ID, paymentMethod); err != nil {
			if markErr := o.Schedules.MarkFailed(row.ID); markErr != nil {
				o.Logger.Error("failed to mark schedule row failed", zap.String("scheduleID", row.ID), zap.Error(markErr))
			}
			return err
		}
	}
	return nil
}

// SweepUpcoming is the batch path run by the daily job. It walks due rows
// sequentially, pacing processor calls to stay inside the rate limit, and
// isolates each row's failure.
func (o *DefaultInvoiceOrchestrator) SweepUpcoming(ctx context.Context, daysAhead int) (*SweepResult, error) {
	horizon := o.now().AddDate(0, 0, daysAhead)
	rows, err := o.Schedules.ListDue(horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to list due schedule rows: %w", err)
	}

	result := &SweepResult{}
	clients := make(map[string]ProcessorClient)

	for i := range rows {
		row := &rows[i]

		if err := sweepPacer.Wait(ctx); err != nil {
			return result, err
		}

		pc, ok := clients[row.TenantID]
		if !ok {
			pc, err = o.Provider.ClientFor(ctx, row.TenantID)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("schedule %s: %v", row.ID, err))
				continue
			}
			clients[row.TenantID] = pc
		}

		if err := o.ensureInvoice(ctx, pc, row); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("schedule %s: %v", row.ID, err))
			o.Logger.Error("sweep: failed to invoice schedule row",
				zap.String("scheduleID", row.ID),
				zap.String("tenantID", row.TenantID),
				zap.Error(err),
			)
			continue
		}
		result.Created++
	}

	o.Logger.Info("sweep finished",
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
		zap.Int("eligible", len(rows)),
	)
	return result, nil
}

// AdjustSchedule is the manual admin override: a failed row gets a new amount
// and/or due date and is marked adjusted, which the next sweep picks up as a
// fresh charge. An adjusted row can be corrected again before the sweep runs.
func (o *DefaultInvoiceOrchestrator) AdjustSchedule(ctx context.Context, scheduleID string, amount decimal.Decimal, scheduledDate time.Time) error {
	row, err := o.Schedules.GetByID(scheduleID)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrScheduleNotFound
	}
	if row.Status != models.ScheduleFailed && row.Status != models.ScheduleAdjusted {
		return validationErrorf("only failed schedule rows can be adjusted, row %s is %s", scheduleID, row.Status)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return validationErrorf("adjusted amount must be positive, got %s", amount)
	}
	return o.Schedules.Adjust(scheduleID, amount, scheduledDate)
}
