package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coursebill/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// In-memory fakes for the persistence and processor boundaries. They mimic
// the repository contracts: lookups return (nil, nil) on absence, mutations
// error on unknown ids.

type fakeScheduleRepo struct {
	rows map[string]*models.PaymentSchedule

	failMarkPaid bool
}

func newFakeScheduleRepo(rows ...models.PaymentSchedule) *fakeScheduleRepo {
	repo := &fakeScheduleRepo{rows: make(map[string]*models.PaymentSchedule)}
	for i := range rows {
		row := rows[i]
		repo.rows[row.ID] = &row
	}
	return repo
}

func (f *fakeScheduleRepo) InsertMany(rows []models.PaymentSchedule) error {
	for i := range rows {
		row := rows[i]
		f.rows[row.ID] = &row
	}
	return nil
}

func (f *fakeScheduleRepo) GetByID(id string) (*models.PaymentSchedule, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeScheduleRepo) GetByInvoiceID(invoiceID string) (*models.PaymentSchedule, error) {
	for _, row := range f.rows {
		if row.StripeInvoiceID == invoiceID && invoiceID != "" {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeScheduleRepo) GetByIntentID(intentID string) (*models.PaymentSchedule, error) {
	for _, row := range f.rows {
		if row.StripeIntentID == intentID && intentID != "" {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeScheduleRepo) ListByEnrollment(enrollmentID string) ([]models.PaymentSchedule, error) {
	var out []models.PaymentSchedule
	for _, row := range f.rows {
		if row.EnrollmentID == enrollmentID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentNumber < out[j].PaymentNumber })
	return out, nil
}

func (f *fakeScheduleRepo) ListDue(horizon time.Time) ([]models.PaymentSchedule, error) {
	var out []models.PaymentSchedule
	for _, row := range f.rows {
		fresh := (row.Status == models.SchedulePending || row.Status == models.ScheduleAdjusted) &&
			row.StripeInvoiceID == ""
		if (fresh || row.Status == models.ScheduleFailed) && !row.ScheduledDate.After(horizon) {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeScheduleRepo) ListUncollected(enrollmentIDs []string) ([]models.PaymentSchedule, error) {
	wanted := make(map[string]bool, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		wanted[id] = true
	}
	var out []models.PaymentSchedule
	for _, row := range f.rows {
		if wanted[row.EnrollmentID] && (row.Status == models.SchedulePending || row.Status == models.ScheduleFailed || row.Status == models.ScheduleAdjusted) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) SetProcessing(id, invoiceID, intentID string) error {
	row, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("schedule %s not found", id)
	}
	row.Status = models.ScheduleProcessing
	row.StripeInvoiceID = invoiceID
	row.StripeIntentID = intentID
	return nil
}

func (f *fakeScheduleRepo) SetIntent(id, intentID string) error {
	row, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("schedule %s not found", id)
	}
	row.StripeIntentID = intentID
	return nil
}

func (f *fakeScheduleRepo) MarkPaid(id string, paidAt time.Time) error {
	if f.failMarkPaid {
		return fmt.Errorf("mark paid failed")
	}
	row, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("schedule %s not found", id)
	}
	row.Status = models.SchedulePaid
	row.PaidDate = &paidAt
	return nil
}

func (f *fakeScheduleRepo) MarkFailed(id string) error {
	row, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("schedule %s not found", id)
	}
	row.Status = models.ScheduleFailed
	return nil
}

func (f *fakeScheduleRepo) SetRefund(id string, status models.ScheduleStatus, refundedAmount decimal.Decimal) error {
	row, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("schedule %s not found", id)
	}
	row.Status = status
	row.RefundedAmount = refundedAmount
	return nil
}

func (f *fakeScheduleRepo) Adjust(id string, amount decimal.Decimal, scheduledDate time.Time) error {
	row, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("schedule %s not found", id)
	}
	row.Amount = amount
	row.ScheduledDate = scheduledDate
	row.Status = models.ScheduleAdjusted
	row.StripeInvoiceID = ""
	row.StripeIntentID = ""
	return nil
}

func (f *fakeScheduleRepo) SumPaid(enrollmentID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, row := range f.rows {
		if row.EnrollmentID == enrollmentID && row.Status == models.SchedulePaid {
			sum = sum.Add(row.Amount)
		}
	}
	return sum, nil
}

type fakeEnrollmentRepo struct {
	enrollments map[string]*models.Enrollment
}

func newFakeEnrollmentRepo(enrollments ...models.Enrollment) *fakeEnrollmentRepo {
	repo := &fakeEnrollmentRepo{enrollments: make(map[string]*models.Enrollment)}
	for i := range enrollments {
		e := enrollments[i]
		repo.enrollments[e.ID] = &e
	}
	return repo
}

func (f *fakeEnrollmentRepo) Insert(enrollment models.Enrollment) error {
	f.enrollments[enrollment.ID] = &enrollment
	return nil
}

func (f *fakeEnrollmentRepo) GetByID(id string) (*models.Enrollment, error) {
	e, ok := f.enrollments[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEnrollmentRepo) ListByUserAndProducts(tenantID, userID string, productIDs []string) ([]models.Enrollment, error) {
	wanted := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	var out []models.Enrollment
	for _, e := range f.enrollments {
		if e.TenantID == tenantID && e.UserID == userID && wanted[e.ProductID] {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) SetStripeCustomerID(id, customerID string) error {
	e, ok := f.enrollments[id]
	if !ok {
		return fmt.Errorf("enrollment %s not found", id)
	}
	e.StripeCustomerID = customerID
	return nil
}

func (f *fakeEnrollmentRepo) ClearStripeCustomerID(id string) error {
	e, ok := f.enrollments[id]
	if !ok {
		return fmt.Errorf("enrollment %s not found", id)
	}
	e.StripeCustomerID = ""
	return nil
}

func (f *fakeEnrollmentRepo) SetPaidAmount(id string, paidAmount decimal.Decimal, paymentStatus models.PaymentStatus) error {
	e, ok := f.enrollments[id]
	if !ok {
		return fmt.Errorf("enrollment %s not found", id)
	}
	e.PaidAmount = paidAmount
	e.PaymentStatus = paymentStatus
	return nil
}

type fakePaymentRepo struct {
	records map[string]*models.PaymentRecord
}

func newFakePaymentRepo(records ...models.PaymentRecord) *fakePaymentRepo {
	repo := &fakePaymentRepo{records: make(map[string]*models.PaymentRecord)}
	for i := range records {
		rec := records[i]
		repo.records[rec.ID] = &rec
	}
	return repo
}

func (f *fakePaymentRepo) Insert(record models.PaymentRecord) error {
	f.records[record.ID] = &record
	return nil
}

func (f *fakePaymentRepo) GetByScheduleID(scheduleID string) (*models.PaymentRecord, error) {
	for _, rec := range f.records {
		if rec.ScheduleID == scheduleID {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) ApplyRefund(id string, refundedAmount decimal.Decimal, status models.PaymentRecordStatus, reason string) error {
	rec, ok := f.records[id]
	if !ok {
		return fmt.Errorf("payment record %s not found", id)
	}
	rec.RefundedAmount = refundedAmount
	rec.Status = status
	rec.RefundReason = reason
	return nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*models.User)}
	for i := range users {
		u := users[i]
		repo.users[u.ID] = &u
	}
	return repo
}

func (f *fakeUserRepo) GetByID(id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) SetStripeCustomerID(id, customerID string) error {
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	u.StripeCustomerID = customerID
	return nil
}

type fakeCourseRepo struct {
	courses map[string]*models.Course
}

func newFakeCourseRepo(courses ...models.Course) *fakeCourseRepo {
	repo := &fakeCourseRepo{courses: make(map[string]*models.Course)}
	for i := range courses {
		c := courses[i]
		repo.courses[c.ID] = &c
	}
	return repo
}

func (f *fakeCourseRepo) GetByID(id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

// fakeProcessorClient records calls and hands back canned processor objects.
type fakeProcessorClient struct {
	publishableKey string

	customers map[string]*ProcessorCustomer
	methods   map[string][]string
	intents   map[string]*ProcessorIntent
	invoices  map[string]*ProcessorInvoice

	createdIntents   []IntentParams
	createdCustomers int
	paidInvoices     []string
	refunds          []decimal.Decimal

	payInvoiceErr   error
	createRefundErr error

	nextID int
}

func newFakeProcessorClient() *fakeProcessorClient {
	return &fakeProcessorClient{
		publishableKey: "pk_test_fake",
		customers:      make(map[string]*ProcessorCustomer),
		methods:        make(map[string][]string),
		intents:        make(map[string]*ProcessorIntent),
		invoices:       make(map[string]*ProcessorInvoice),
	}
}

func (f *fakeProcessorClient) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%d", prefix, f.nextID)
}

func (f *fakeProcessorClient) PublishableKey() string { return f.publishableKey }

func (f *fakeProcessorClient) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*ProcessorCustomer, error) {
	f.createdCustomers++
	cust := &ProcessorCustomer{ID: f.id("cus"), Email: email}
	f.customers[cust.ID] = cust
	return cust, nil
}

func (f *fakeProcessorClient) GetCustomer(ctx context.Context, id string) (*ProcessorCustomer, error) {
	cust, ok := f.customers[id]
	if !ok {
		return nil, nil
	}
	return cust, nil
}

func (f *fakeProcessorClient) ListPaymentMethods(ctx context.Context, customerID string) ([]string, error) {
	return f.methods[customerID], nil
}

func (f *fakeProcessorClient) CreatePaymentIntent(ctx context.Context, params IntentParams) (*ProcessorIntent, error) {
	f.createdIntents = append(f.createdIntents, params)
	intent := &ProcessorIntent{
		ID:           f.id("pi"),
		Status:       "requires_payment_method",
		ClientSecret: f.id("secret"),
		Amount:       params.Amount,
		Currency:     params.Currency,
	}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *fakeProcessorClient) GetPaymentIntent(ctx context.Context, id string) (*ProcessorIntent, error) {
	intent, ok := f.intents[id]
	if !ok {
		return nil, nil
	}
	return intent, nil
}

func (f *fakeProcessorClient) CreateInvoice(ctx context.Context, params InvoiceParams) (*ProcessorInvoice, error) {
	invoice := &ProcessorInvoice{ID: f.id("in"), Status: "draft"}
	f.invoices[invoice.ID] = invoice
	return invoice, nil
}

func (f *fakeProcessorClient) AddInvoiceItem(ctx context.Context, customerID, invoiceID string, amount decimal.Decimal, currency, description string) error {
	if _, ok := f.invoices[invoiceID]; !ok {
		return fmt.Errorf("invoice %s not found", invoiceID)
	}
	return nil
}

func (f *fakeProcessorClient) FinalizeInvoice(ctx context.Context, id string) (*ProcessorInvoice, error) {
	invoice, ok := f.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s not found", id)
	}
	invoice.Status = "open"
	if invoice.PaymentIntentID == "" {
		intent := &ProcessorIntent{ID: f.id("pi"), Status: "requires_payment_method"}
		f.intents[intent.ID] = intent
		invoice.PaymentIntentID = intent.ID
	}
	return invoice, nil
}

func (f *fakeProcessorClient) PayInvoice(ctx context.Context, id, paymentMethodID string) (*ProcessorInvoice, error) {
	if f.payInvoiceErr != nil {
		return nil, f.payInvoiceErr
	}
	invoice, ok := f.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s not found", id)
	}
	invoice.Status = "paid"
	f.paidInvoices = append(f.paidInvoices, id)
	return invoice, nil
}

func (f *fakeProcessorClient) GetInvoice(ctx context.Context, id string) (*ProcessorInvoice, error) {
	invoice, ok := f.invoices[id]
	if !ok {
		return nil, nil
	}
	return invoice, nil
}

func (f *fakeProcessorClient) CreateRefund(ctx context.Context, intentID string, amount decimal.Decimal, currency, reason string, metadata map[string]string) (*ProcessorRefund, error) {
	if f.createRefundErr != nil {
		return nil, f.createRefundErr
	}
	f.refunds = append(f.refunds, amount)
	return &ProcessorRefund{ID: f.id("re"), Amount: amount, Currency: currency, Status: "succeeded"}, nil
}

// fakeProvider hands every tenant the same client.
type fakeProvider struct {
	client *fakeProcessorClient
	cred   *models.PaymentCredential
	err    error
}

func (f *fakeProvider) ClientFor(ctx context.Context, tenantID string) (ProcessorClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func (f *fakeProvider) CredentialFor(ctx context.Context, tenantID string) (*models.PaymentCredential, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.cred == nil {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, ErrCredentialNotConfigured)
	}
	return f.cred, nil
}

// fakeNotifier records pushes instead of talking to FCM.
type fakeNotifier struct {
	paymentFailed   []string
	suspendedUsers  []string
	suspendedTitles []string
	err             error
}

func (f *fakeNotifier) SendPaymentFailed(ctx context.Context, userID, amount, currency string) error {
	f.paymentFailed = append(f.paymentFailed, userID)
	return f.err
}

func (f *fakeNotifier) SendAccessSuspended(ctx context.Context, userID, courseTitle string) error {
	f.suspendedUsers = append(f.suspendedUsers, userID)
	f.suspendedTitles = append(f.suspendedTitles, courseTitle)
	return f.err
}

func testLogger() *zap.Logger { return zap.NewNop() }
