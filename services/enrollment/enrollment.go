package enrollment

import (
	"fmt"
	"time"

	enrollmentRepo "coursebill/database/repository/enrollment"
	scheduleRepo "coursebill/database/repository/schedule"
	"coursebill/models"
	"coursebill/services/billing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateEnrollmentRequest carries everything needed to enroll a user and lay
// down their payment schedule.
type CreateEnrollmentRequest struct {
	TenantID    string             `json:"tenantId"`
	UserID      string             `json:"userId"`
	ProductID   string             `json:"productId"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Currency    string             `json:"currency"`
	Plan        models.PaymentPlan `json:"plan"`
	StartDate   *time.Time         `json:"startDate,omitempty"`
}

// EnrollmentService creates enrollments and their payment schedules.
type EnrollmentService interface {
	CreateEnrollment(req CreateEnrollmentRequest) (*models.Enrollment, []models.PaymentSchedule, error)
	GetSchedule(enrollmentID string) ([]models.PaymentSchedule, error)
}

// DefaultEnrollmentService is the production implementation.
type DefaultEnrollmentService struct {
	Enrollments enrollmentRepo.EnrollmentRepository
	Schedules   scheduleRepo.ScheduleRepository
	Logger      *zap.Logger
}

// CreateEnrollment builds the payment schedule for the product's plan and
// persists the enrollment together with its rows. The schedule is laid down
// before any invoicing happens; the orchestrator picks the rows up later.
func (s *DefaultEnrollmentService) CreateEnrollment(req CreateEnrollmentRequest) (*models.Enrollment, []models.PaymentSchedule, error) {
	if req.TenantID == "" || req.UserID == "" || req.ProductID == "" {
		return nil, nil, fmt.Errorf("tenant, user and product are required")
	}

	start := time.Now()
	if req.StartDate != nil {
		start = *req.StartDate
	}

	items, err := billing.BuildSchedule(req.TotalAmount, req.Currency, req.Plan, start)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build payment schedule: %w", err)
	}

	enrollment := models.Enrollment{
		ID:            uuid.New().String(),
		TenantID:      req.TenantID,
		UserID:        req.UserID,
		ProductID:     req.ProductID,
		Status:        models.EnrollmentPending,
		TotalAmount:   req.TotalAmount,
		PaidAmount:    decimal.Zero,
		Currency:      req.Currency,
		PaymentStatus: models.PaymentStatusPending,
		EnrolledAt:    start,
	}

	rows := make([]models.PaymentSchedule, 0, len(items))
	now := time.Now()
	for _, item := range items {
		rows = append(rows, models.PaymentSchedule{
			ID:             uuid.New().String(),
			TenantID:       req.TenantID,
			EnrollmentID:   enrollment.ID,
			PaymentNumber:  item.PaymentNumber,
			PaymentType:    item.PaymentType,
			Amount:         item.Amount,
			Currency:       req.Currency,
			ScheduledDate:  item.DueDate,
			Status:         models.SchedulePending,
			RefundedAmount: decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	if err := s.Enrollments.Insert(enrollment); err != nil {
		return nil, nil, err
	}
	if err := s.Schedules.InsertMany(rows); err != nil {
		// The enrollment exists without its schedule; surface loudly so an
		// operator can repair it.
		s.Logger.Error("enrollment created but schedule insert failed",
			zap.String("enrollmentID", enrollment.ID),
			zap.Error(err),
		)
		return nil, nil, fmt.Errorf("enrollment %s created but schedule insert failed: %w", enrollment.ID, err)
	}

	s.Logger.Info("enrollment created",
		zap.String("enrollmentID", enrollment.ID),
		zap.String("productID", req.ProductID),
		zap.Int("scheduleRows", len(rows)),
	)
	return &enrollment, rows, nil
}

// GetSchedule returns an enrollment's schedule rows in payment order.
func (s *DefaultEnrollmentService) GetSchedule(enrollmentID string) ([]models.PaymentSchedule, error) {
	enrollment, err := s.Enrollments.GetByID(enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, fmt.Errorf("enrollment %s not found", enrollmentID)
	}
	return s.Schedules.ListByEnrollment(enrollmentID)
}
