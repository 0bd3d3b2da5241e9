package userRepo

import "coursebill/models"

// UserRepository is the slice of user persistence the billing engine needs.
type UserRepository interface {
	GetByID(id string) (*models.User, error)
	SetStripeCustomerID(id, customerID string) error
}
