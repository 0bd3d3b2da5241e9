package billing

import (
	"context"
	"testing"
	"time"

	"coursebill/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(schedules *fakeScheduleRepo, enrollments *fakeEnrollmentRepo, payments *fakePaymentRepo, pc *fakeProcessorClient) *DefaultSettlementReconciler {
	return &DefaultSettlementReconciler{
		Schedules:   schedules,
		Enrollments: enrollments,
		Payments:    payments,
		Provider:    &fakeProvider{client: pc},
		Logger:      testLogger(),
	}
}

func TestApplyInvoicePaidSettlesRow(t *testing.T) {
	row := testRow("sch-1", models.ScheduleProcessing, testNow)
	row.StripeInvoiceID = "in_1"
	row.StripeIntentID = "pi_1"

	schedules := newFakeScheduleRepo(row)
	enrollments := newFakeEnrollmentRepo(testEnrollment())
	payments := newFakePaymentRepo()

	r := newTestReconciler(schedules, enrollments, payments, newFakeProcessorClient())

	paidAt := testNow.Add(time.Hour)
	require.NoError(t, r.ApplyInvoicePaid(context.Background(), "tenant-1", "in_1", paidAt))

	updated, _ := schedules.GetByID("sch-1")
	assert.Equal(t, models.SchedulePaid, updated.Status)
	require.NotNil(t, updated.PaidDate)
	assert.Equal(t, paidAt, *updated.PaidDate)

	// Ledger mirror written once.
	record, _ := payments.GetByScheduleID("sch-1")
	require.NotNil(t, record)
	assert.Equal(t, models.PaymentRecordSucceeded, record.Status)
	assert.True(t, record.Amount.Equal(row.Amount))

	// Enrollment aggregate recomputed.
	enrollment, _ := enrollments.GetByID("enr-1")
	assert.True(t, enrollment.PaidAmount.Equal(row.Amount))
	assert.Equal(t, models.PaymentStatusPartial, enrollment.PaymentStatus)
}

func TestApplyInvoicePaidIsIdempotent(t *testing.T) {
	row := testRow("sch-1", models.ScheduleProcessing, testNow)
	row.StripeInvoiceID = "in_1"

	schedules := newFakeScheduleRepo(row)
	enrollments := newFakeEnrollmentRepo(testEnrollment())
	payments := newFakePaymentRepo()

	r := newTestReconciler(schedules, enrollments, payments, newFakeProcessorClient())

	require.NoError(t, r.ApplyInvoicePaid(context.Background(), "tenant-1", "in_1", testNow))
	require.NoError(t, r.ApplyInvoicePaid(context.Background(), "tenant-1", "in_1", testNow.Add(time.Hour)))

	assert.Len(t, payments.records, 1, "re-delivered event must not duplicate the ledger record")
	enrollment, _ := enrollments.GetByID("enr-1")
	assert.True(t, enrollment.PaidAmount.Equal(row.Amount), "paid amount must not double-count")
}

func TestApplyInvoicePaidIgnoresUnknownInvoice(t *testing.T) {
	r := newTestReconciler(newFakeScheduleRepo(), newFakeEnrollmentRepo(), newFakePaymentRepo(), newFakeProcessorClient())

	// Events can reference invoices created outside the engine.
	assert.NoError(t, r.ApplyInvoicePaid(context.Background(), "tenant-1", "in_unknown", testNow))
}

func TestApplyIntentSucceededSettlesRow(t *testing.T) {
	row := testRow("sch-1", models.ScheduleProcessing, testNow)
	row.StripeIntentID = "pi_1"

	schedules := newFakeScheduleRepo(row)
	r := newTestReconciler(schedules, newFakeEnrollmentRepo(testEnrollment()), newFakePaymentRepo(), newFakeProcessorClient())

	require.NoError(t, r.ApplyIntentSucceeded(context.Background(), "tenant-1", "pi_1", testNow))

	updated, _ := schedules.GetByID("sch-1")
	assert.Equal(t, models.SchedulePaid, updated.Status)
}

func TestApplyChargeFailedNeverUnpaysPaidRow(t *testing.T) {
	row := testRow("sch-1", models.SchedulePaid, testNow)
	row.StripeInvoiceID = "in_1"

	schedules := newFakeScheduleRepo(row)
	r := newTestReconciler(schedules, newFakeEnrollmentRepo(testEnrollment()), newFakePaymentRepo(), newFakeProcessorClient())

	require.NoError(t, r.ApplyChargeFailed(context.Background(), "tenant-1", "in_1", ""))

	updated, _ := schedules.GetByID("sch-1")
	assert.Equal(t, models.SchedulePaid, updated.Status, "late failure event must not un-pay a settled row")
}

func TestApplyChargeFailedMarksRowFailed(t *testing.T) {
	row := testRow("sch-1", models.ScheduleProcessing, testNow)
	row.StripeIntentID = "pi_1"

	schedules := newFakeScheduleRepo(row)
	r := newTestReconciler(schedules, newFakeEnrollmentRepo(testEnrollment()), newFakePaymentRepo(), newFakeProcessorClient())

	require.NoError(t, r.ApplyChargeFailed(context.Background(), "tenant-1", "", "pi_1"))

	updated, _ := schedules.GetByID("sch-1")
	assert.Equal(t, models.ScheduleFailed, updated.Status)
}

func paidRowForRefund() models.PaymentSchedule {
	row := testRow("sch-1", models.SchedulePaid, testNow)
	row.StripeIntentID = "pi_1"
	return row
}

func TestRefundFullFlipsRowToRefunded(t *testing.T) {
	schedules := newFakeScheduleRepo(paidRowForRefund())
	enrollments := newFakeEnrollmentRepo(testEnrollment())
	pc := newFakeProcessorClient()

	r := newTestReconciler(schedules, enrollments, newFakePaymentRepo(), pc)

	result, err := r.Refund(context.Background(), "sch-1", nil, "course cancelled")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(250)))

	updated, _ := schedules.GetByID("sch-1")
	assert.Equal(t, models.ScheduleRefunded, updated.Status)
	assert.True(t, updated.RefundedAmount.Equal(decimal.NewFromInt(250)))

	// A refunded row no longer counts as collected.
	enrollment, _ := enrollments.GetByID("enr-1")
	assert.True(t, enrollment.PaidAmount.IsZero())
}

func TestRefundPartialKeepsRowPaid(t *testing.T) {
	schedules := newFakeScheduleRepo(paidRowForRefund())
	enrollments := newFakeEnrollmentRepo(testEnrollment())
	pc := newFakeProcessorClient()

	r := newTestReconciler(schedules, enrollments, newFakePaymentRepo(), pc)

	amount := decimal.NewFromInt(100)
	result, err := r.Refund(context.Background(), "sch-1", &amount, "goodwill")
	require.NoError(t, err)
	assert.True(t, result.Amount.Equal(amount))

	updated, _ := schedules.GetByID("sch-1")
	assert.Equal(t, models.SchedulePaid, updated.Status, "a partially refunded installment was still collected")
	assert.True(t, updated.RefundedAmount.Equal(amount))

	// Partial refunds do not reduce the collected aggregate.
	enrollment, _ := enrollments.GetByID("enr-1")
	assert.True(t, enrollment.PaidAmount.Equal(decimal.NewFromInt(250)))
}

func TestRefundCumulativeBound(t *testing.T) {
	schedules := newFakeScheduleRepo(paidRowForRefund())
	r := newTestReconciler(schedules, newFakeEnrollmentRepo(testEnrollment()), newFakePaymentRepo(), newFakeProcessorClient())

	first := decimal.NewFromInt(200)
	_, err := r.Refund(context.Background(), "sch-1", &first, "goodwill")
	require.NoError(t, err)

	second := decimal.NewFromInt(100)
	_, err = r.Refund(context.Background(), "sch-1", &second, "goodwill")
	require.Error(t, err)
	assert.True(t, IsValidation(err), "cumulative refunds beyond face amount must be rejected, got %v", err)
}

func TestRefundValidations(t *testing.T) {
	negative := decimal.NewFromInt(-5)
	tooMuch := decimal.NewFromInt(300)

	cases := []struct {
		name   string
		row    models.PaymentSchedule
		amount *decimal.Decimal
		reason string
	}{
		{name: "missing reason", row: paidRowForRefund(), amount: nil, reason: ""},
		{name: "negative amount", row: paidRowForRefund(), amount: &negative, reason: "x"},
		{name: "amount exceeds face", row: paidRowForRefund(), amount: &tooMuch, reason: "x"},
		{name: "row not collected", row: testRow("sch-1", models.SchedulePending, testNow), amount: nil, reason: "x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schedules := newFakeScheduleRepo(tc.row)
			r := newTestReconciler(schedules, newFakeEnrollmentRepo(testEnrollment()), newFakePaymentRepo(), newFakeProcessorClient())

			_, err := r.Refund(context.Background(), "sch-1", tc.amount, tc.reason)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestRefundUnknownRow(t *testing.T) {
	r := newTestReconciler(newFakeScheduleRepo(), newFakeEnrollmentRepo(), newFakePaymentRepo(), newFakeProcessorClient())

	_, err := r.Refund(context.Background(), "missing", nil, "x")
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestRefundResolvesIntentThroughInvoice(t *testing.T) {
	// Row carries only an invoice reference; the intent is found upstream.
	row := testRow("sch-1", models.SchedulePaid, testNow)
	row.StripeInvoiceID = "in_1"

	schedules := newFakeScheduleRepo(row)
	pc := newFakeProcessorClient()
	pc.invoices["in_1"] = &ProcessorInvoice{ID: "in_1", Status: "paid", PaymentIntentID: "pi_upstream"}

	r := newTestReconciler(schedules, newFakeEnrollmentRepo(testEnrollment()), newFakePaymentRepo(), pc)

	_, err := r.Refund(context.Background(), "sch-1", nil, "course cancelled")
	require.NoError(t, err)
	require.Len(t, pc.refunds, 1)
}

func TestRefundWithoutAnyChargeReference(t *testing.T) {
	row := testRow("sch-1", models.SchedulePaid, testNow)

	schedules := newFakeScheduleRepo(row)
	r := newTestReconciler(schedules, newFakeEnrollmentRepo(testEnrollment()), newFakePaymentRepo(), newFakeProcessorClient())

	_, err := r.Refund(context.Background(), "sch-1", nil, "course cancelled")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	// The row is untouched when the refund could not be issued.
	updated, _ := schedules.GetByID("sch-1")
	assert.Equal(t, models.SchedulePaid, updated.Status)
	assert.True(t, updated.RefundedAmount.IsZero())
}

func TestRefundUpdatesLedgerMirror(t *testing.T) {
	schedules := newFakeScheduleRepo(paidRowForRefund())
	payments := newFakePaymentRepo(models.PaymentRecord{
		ID:             "pay-1",
		ScheduleID:     "sch-1",
		EnrollmentID:   "enr-1",
		Amount:         decimal.NewFromInt(250),
		Currency:       "USD",
		Status:         models.PaymentRecordSucceeded,
		StripeIntentID: "pi_1",
		RefundedAmount: decimal.Zero,
	})

	r := newTestReconciler(schedules, newFakeEnrollmentRepo(testEnrollment()), payments, newFakeProcessorClient())

	amount := decimal.NewFromInt(100)
	_, err := r.Refund(context.Background(), "sch-1", &amount, "goodwill")
	require.NoError(t, err)

	record, _ := payments.GetByScheduleID("sch-1")
	require.NotNil(t, record)
	assert.Equal(t, models.PaymentRecordPartiallyRefunded, record.Status)
	assert.True(t, record.RefundedAmount.Equal(amount))
	assert.Equal(t, "goodwill", record.RefundReason)
}
