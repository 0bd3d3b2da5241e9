package enrollmentRepo

import (
	"coursebill/models"

	"github.com/shopspring/decimal"
)

// EnrollmentRepository is the persistence boundary for enrollments. The
// billing engine only writes the payment aggregate fields and the processor
// customer reference; everything else is owned by the enrollment workflow.
type EnrollmentRepository interface {
	Insert(enrollment models.Enrollment) error
	GetByID(id string) (*models.Enrollment, error)
	// ListByUserAndProducts returns the user's enrollments in any of the
	// given products, used to find what grants a course.
	ListByUserAndProducts(tenantID, userID string, productIDs []string) ([]models.Enrollment, error)

	SetStripeCustomerID(id, customerID string) error
	ClearStripeCustomerID(id string) error
	SetPaidAmount(id string, paidAmount decimal.Decimal, paymentStatus models.PaymentStatus) error
}
