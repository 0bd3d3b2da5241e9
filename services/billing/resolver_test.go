package billing

import (
	"context"
	"testing"

	"coursebill/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(enrollments *fakeEnrollmentRepo, users *fakeUserRepo) *CustomerResolver {
	return &CustomerResolver{Enrollments: enrollments, Users: users, Logger: testLogger()}
}

func TestResolvePrefersEnrollmentReference(t *testing.T) {
	enrollment := testEnrollment()
	enrollment.StripeCustomerID = "cus_enr"
	enrollments := newFakeEnrollmentRepo(enrollment)
	users := newFakeUserRepo(models.User{ID: "user-1", Email: "learner@example.com", StripeCustomerID: "cus_user"})

	pc := newFakeProcessorClient()
	pc.customers["cus_enr"] = &ProcessorCustomer{ID: "cus_enr"}
	pc.customers["cus_user"] = &ProcessorCustomer{ID: "cus_user"}

	r := newTestResolver(enrollments, users)

	cust, err := r.Resolve(context.Background(), pc, &enrollment)
	require.NoError(t, err)
	require.NotNil(t, cust)
	assert.Equal(t, "cus_enr", cust.ID, "the enrollment reference carries the attached payment method and must win")
	assert.Zero(t, pc.createdCustomers)
}

func TestResolveClearsStaleEnrollmentReference(t *testing.T) {
	enrollment := testEnrollment()
	enrollment.StripeCustomerID = "cus_deleted"
	enrollments := newFakeEnrollmentRepo(enrollment)
	users := newFakeUserRepo(models.User{ID: "user-1", Email: "learner@example.com", StripeCustomerID: "cus_user"})

	pc := newFakeProcessorClient()
	pc.customers["cus_user"] = &ProcessorCustomer{ID: "cus_user"}

	r := newTestResolver(enrollments, users)

	cust, err := r.Resolve(context.Background(), pc, &enrollment)
	require.NoError(t, err)
	require.NotNil(t, cust)
	assert.Equal(t, "cus_user", cust.ID)

	// The dangling reference was cleared and the live one back-filled.
	stored, _ := enrollments.GetByID(enrollment.ID)
	assert.Equal(t, "cus_user", stored.StripeCustomerID)
}

func TestResolveBackfillsUserReferenceOntoEnrollment(t *testing.T) {
	enrollment := testEnrollment()
	enrollments := newFakeEnrollmentRepo(enrollment)
	users := newFakeUserRepo(models.User{ID: "user-1", Email: "learner@example.com", StripeCustomerID: "cus_user"})

	pc := newFakeProcessorClient()
	pc.customers["cus_user"] = &ProcessorCustomer{ID: "cus_user"}

	r := newTestResolver(enrollments, users)

	cust, err := r.Resolve(context.Background(), pc, &enrollment)
	require.NoError(t, err)
	require.NotNil(t, cust)

	stored, _ := enrollments.GetByID(enrollment.ID)
	assert.Equal(t, "cus_user", stored.StripeCustomerID)
}

func TestResolveCreatesCustomerFromEmail(t *testing.T) {
	enrollment := testEnrollment()
	enrollments := newFakeEnrollmentRepo(enrollment)
	users := newFakeUserRepo(models.User{ID: "user-1", Email: "learner@example.com", Name: "Learner"})

	pc := newFakeProcessorClient()
	r := newTestResolver(enrollments, users)

	cust, err := r.Resolve(context.Background(), pc, &enrollment)
	require.NoError(t, err)
	require.NotNil(t, cust)
	assert.Equal(t, 1, pc.createdCustomers)

	// The new customer is stored on both the enrollment and the user.
	storedEnrollment, _ := enrollments.GetByID(enrollment.ID)
	assert.Equal(t, cust.ID, storedEnrollment.StripeCustomerID)
	storedUser, _ := users.GetByID("user-1")
	assert.Equal(t, cust.ID, storedUser.StripeCustomerID)
}

func TestResolveWithoutEmailIsCustomerLess(t *testing.T) {
	enrollment := testEnrollment()
	enrollments := newFakeEnrollmentRepo(enrollment)
	users := newFakeUserRepo(models.User{ID: "user-1"})

	pc := newFakeProcessorClient()
	r := newTestResolver(enrollments, users)

	cust, err := r.Resolve(context.Background(), pc, &enrollment)
	require.NoError(t, err)
	assert.Nil(t, cust)
	assert.Zero(t, pc.createdCustomers)
}

func TestResolvePaymentMethodPrecedence(t *testing.T) {
	pc := newFakeProcessorClient()
	pc.methods["cus_1"] = []string{"pm_first", "pm_second"}

	// Explicit wins over everything.
	pm, err := ResolvePaymentMethod(context.Background(), pc, &ProcessorCustomer{ID: "cus_1", DefaultPaymentMethodID: "pm_default"}, "pm_explicit")
	require.NoError(t, err)
	assert.Equal(t, "pm_explicit", pm)

	// Then the customer's default.
	pm, err = ResolvePaymentMethod(context.Background(), pc, &ProcessorCustomer{ID: "cus_1", DefaultPaymentMethodID: "pm_default"}, "")
	require.NoError(t, err)
	assert.Equal(t, "pm_default", pm)

	// Then the first on file.
	pm, err = ResolvePaymentMethod(context.Background(), pc, &ProcessorCustomer{ID: "cus_1"}, "")
	require.NoError(t, err)
	assert.Equal(t, "pm_first", pm)

	// Nothing on file is not an error.
	pm, err = ResolvePaymentMethod(context.Background(), pc, &ProcessorCustomer{ID: "cus_empty"}, "")
	require.NoError(t, err)
	assert.Empty(t, pm)
}
