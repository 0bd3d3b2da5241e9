package notification

import (
	"context"
	"fmt"

	userRepo "coursebill/database/repository/user"
	"coursebill/utils"

	"firebase.google.com/go/v4/messaging"
)

// NotificationService defines methods for sending FCM pushes about payment
// health.
type NotificationService interface {
	SendPaymentFailed(ctx context.Context, userID, amount, currency string) error
	SendAccessSuspended(ctx context.Context, userID, courseTitle string) error
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	Users userRepo.UserRepository
}

func NewDefaultNotificationService(users userRepo.UserRepository) (*DefaultNotificationService, error) {
	if users == nil {
		return nil, fmt.Errorf("notification service initialization error: user repository is nil")
	}
	return &DefaultNotificationService{Users: users}, nil
}

// SendPaymentFailed looks up the user's FCM token and pushes a charge-failed
// notice.
func (s *DefaultNotificationService) SendPaymentFailed(ctx context.Context, userID, amount, currency string) error {
	title := "Payment failed"
	body := fmt.Sprintf("Your payment of %s %s could not be collected. Please update your payment method.", amount, currency)
	return s.push(ctx, userID, title, body, map[string]string{"type": "payment_failed"})
}

// SendAccessSuspended notifies the user that course access is paused until
// the overdue payment clears.
func (s *DefaultNotificationService) SendAccessSuspended(ctx context.Context, userID, courseTitle string) error {
	title := "Course access paused"
	body := fmt.Sprintf("Access to %s is paused until your overdue payment is settled.", courseTitle)
	return s.push(ctx, userID, title, body, map[string]string{"type": "access_suspended"})
}

func (s *DefaultNotificationService) push(ctx context.Context, userID, title, body string, data map[string]string) error {
	user, err := s.Users.GetByID(userID)
	if err != nil {
		return fmt.Errorf("push: could not find user %s: %w", userID, err)
	}
	if user == nil || user.FCMToken == "" {
		return fmt.Errorf("push: user %s has no FCM token", userID)
	}

	msg := &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if utils.FCMClient == nil {
		return fmt.Errorf("push: FCM client not initialized")
	}
	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("push: failed to send notification to user %s: %w", userID, err)
	}
	return nil
}
