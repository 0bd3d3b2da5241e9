package billing

import (
	"context"
	"fmt"

	enrollmentRepo "coursebill/database/repository/enrollment"
	userRepo "coursebill/database/repository/user"
	"coursebill/models"

	"go.uber.org/zap"
)

// CustomerResolver finds or creates the processor customer to charge for an
// enrollment. The precedence is a fixed, ordered strategy list: the
// enrollment's cached reference wins (it carries the attached payment
// method), then the user's cached reference (back-filled onto the enrollment
// on success), then a freshly created customer. Each strategy returns
// (nil, nil) to pass to the next one.
type CustomerResolver struct {
	Enrollments enrollmentRepo.EnrollmentRepository
	Users       userRepo.UserRepository
	Logger      *zap.Logger
}

type customerStrategy struct {
	name    string
	resolve func(ctx context.Context) (*ProcessorCustomer, error)
}

// Resolve runs the strategy chain. A nil result with nil error means the
// charge will proceed customer-less; that is loudly logged because it cannot
// reuse a saved payment method.
func (r *CustomerResolver) Resolve(ctx context.Context, pc ProcessorClient, enrollment *models.Enrollment) (*ProcessorCustomer, error) {
	user, err := r.Users.GetByID(enrollment.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", enrollment.UserID, err)
	}

	strategies := []customerStrategy{
		{name: "enrollment_reference", resolve: func(ctx context.Context) (*ProcessorCustomer, error) {
			return r.fromEnrollment(ctx, pc, enrollment)
		}},
		{name: "user_reference", resolve: func(ctx context.Context) (*ProcessorCustomer, error) {
			return r.fromUser(ctx, pc, enrollment, user)
		}},
		{name: "create_new", resolve: func(ctx context.Context) (*ProcessorCustomer, error) {
			return r.createNew(ctx, pc, enrollment, user)
		}},
	}

	for _, strategy := range strategies {
		cust, err := strategy.resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("customer resolution (%s) failed: %w", strategy.name, err)
		}
		if cust != nil {
			return cust, nil
		}
	}

	r.Logger.Warn("no processor customer resolvable, charge will be customer-less and cannot reuse a saved payment method",
		zap.String("enrollmentID", enrollment.ID),
		zap.String("userID", enrollment.UserID),
	)
	return nil, nil
}

// fromEnrollment verifies the enrollment's cached customer still exists
// upstream. A vanished customer is cleared so later lookups skip it.
func (r *CustomerResolver) fromEnrollment(ctx context.Context, pc ProcessorClient, enrollment *models.Enrollment) (*ProcessorCustomer, error) {
	if enrollment.StripeCustomerID == "" {
		return nil, nil
	}
	cust, err := pc.GetCustomer(ctx, enrollment.StripeCustomerID)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		r.Logger.Warn("enrollment references a deleted processor customer, clearing",
			zap.String("enrollmentID", enrollment.ID),
			zap.String("customerID", enrollment.StripeCustomerID),
		)
		if err := r.Enrollments.ClearStripeCustomerID(enrollment.ID); err != nil {
			r.Logger.Error("failed to clear stale customer reference", zap.String("enrollmentID", enrollment.ID), zap.Error(err))
		}
		enrollment.StripeCustomerID = ""
		return nil, nil
	}
	return cust, nil
}

// fromUser verifies the user's cached customer and back-fills it onto the
// enrollment so future lookups resolve in one step.
func (r *CustomerResolver) fromUser(ctx context.Context, pc ProcessorClient, enrollment *models.Enrollment, user *models.User) (*ProcessorCustomer, error) {
	if user == nil || user.StripeCustomerID == "" {
		return nil, nil
	}
	cust, err := pc.GetCustomer(ctx, user.StripeCustomerID)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		return nil, nil
	}

	if err := r.Enrollments.SetStripeCustomerID(enrollment.ID, cust.ID); err != nil {
		r.Logger.Error("failed to back-fill customer reference onto enrollment", zap.String("enrollmentID", enrollment.ID), zap.Error(err))
	} else {
		enrollment.StripeCustomerID = cust.ID
	}
	return cust, nil
}

// createNew creates a processor customer for the user. Without a resolvable
// email it passes, leaving the charge customer-less.
func (r *CustomerResolver) createNew(ctx context.Context, pc ProcessorClient, enrollment *models.Enrollment, user *models.User) (*ProcessorCustomer, error) {
	if user == nil || user.Email == "" {
		return nil, nil
	}

	cust, err := pc.CreateCustomer(ctx, user.Email, user.Name, map[string]string{
		"tenant_id":     enrollment.TenantID,
		"user_id":       user.ID,
		"enrollment_id": enrollment.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := r.Enrollments.SetStripeCustomerID(enrollment.ID, cust.ID); err != nil {
		r.Logger.Error("failed to store customer reference on enrollment", zap.String("enrollmentID", enrollment.ID), zap.Error(err))
	} else {
		enrollment.StripeCustomerID = cust.ID
	}
	if err := r.Users.SetStripeCustomerID(user.ID, cust.ID); err != nil {
		r.Logger.Error("failed to store customer reference on user", zap.String("userID", user.ID), zap.Error(err))
	}
	return cust, nil
}

// ResolvePaymentMethod picks the payment method for a charge: an explicitly
// supplied one wins, then the customer's default, then the first on file.
// An empty result is an expected, reported condition: the invoice is still
// created but will not auto-settle.
func ResolvePaymentMethod(ctx context.Context, pc ProcessorClient, cust *ProcessorCustomer, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if cust == nil {
		return "", nil
	}
	if cust.DefaultPaymentMethodID != "" {
		return cust.DefaultPaymentMethodID, nil
	}

	methods, err := pc.ListPaymentMethods(ctx, cust.ID)
	if err != nil {
		return "", err
	}
	if len(methods) > 0 {
		return methods[0], nil
	}
	return "", nil
}
