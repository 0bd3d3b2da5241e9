package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coursebill/config"
	courseRepo "coursebill/database/repository/course"
	enrollmentRepo "coursebill/database/repository/enrollment"
	scheduleRepo "coursebill/database/repository/schedule"
	"coursebill/models"
	"coursebill/services/notification"
	"coursebill/utils"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultAccessGate is the production AccessGate. It is read-only: being
// enrolled and being current on payments are deliberately separate questions,
// so an active enrollment with an overdue row is still denied.
type DefaultAccessGate struct {
	Courses     courseRepo.CourseRepository
	Enrollments enrollmentRepo.EnrollmentRepository
	Schedules   scheduleRepo.ScheduleRepository
	Provider    ProcessorProvider
	Cache       *redis.Client
	Notifier    notification.NotificationService
	Logger      *zap.Logger

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (g *DefaultAccessGate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// CheckAccess computes whether payment health permits serving course content
// to the user. Decisions are briefly cached; the TTL bounds how long a
// just-settled payment can still read as delinquent.
func (g *DefaultAccessGate) CheckAccess(ctx context.Context, userID, courseID, tenantID string) (*models.AccessDecision, error) {
	cacheKey := fmt.Sprintf("%s%s:%s:%s", utils.AccessCachePrefix, tenantID, userID, courseID)
	if g.Cache != nil {
		if raw, err := g.Cache.Get(ctx, cacheKey).Result(); err == nil {
			var cached models.AccessDecision
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	decision, err := g.evaluate(ctx, userID, courseID, tenantID)
	if err != nil {
		return nil, err
	}

	if g.Cache != nil {
		if raw, err := json.Marshal(decision); err == nil {
			if err := g.Cache.Set(ctx, cacheKey, raw, utils.AccessCacheTTL).Err(); err != nil {
				g.Logger.Warn("failed to cache access decision", zap.String("key", cacheKey), zap.Error(err))
			}
		}
	}
	return decision, nil
}

func (g *DefaultAccessGate) evaluate(ctx context.Context, userID, courseID, tenantID string) (*models.AccessDecision, error) {
	course, err := g.Courses.GetByID(courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("course %s not found", courseID)
	}

	enrollments, err := g.Enrollments.ListByUserAndProducts(tenantID, userID, course.GrantingProducts())
	if err != nil {
		return nil, err
	}
	if len(enrollments) == 0 {
		return &models.AccessDecision{HasAccess: false, Reason: "no enrollment grants this course"}, nil
	}

	enrollmentIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		enrollmentIDs = append(enrollmentIDs, e.ID)
	}

	rows, err := g.Schedules.ListUncollected(enrollmentIDs)
	if err != nil {
		return nil, err
	}

	grace := g.graceDays(ctx, tenantID)
	now := g.now()

	overdueAmount := decimal.Zero
	overdueDays := 0
	for i := range rows {
		row := &rows[i]
		if !row.IsOverdue(now, grace) {
			continue
		}
		overdueAmount = overdueAmount.Add(row.Amount)
		if d := row.OverdueDays(now); d > overdueDays {
			overdueDays = d
		}
	}

	if overdueAmount.GreaterThan(decimal.Zero) {
		// evaluate only runs on cache misses, so the push fires once per
		// fresh denial rather than on every content request.
		if g.Notifier != nil {
			if err := g.Notifier.SendAccessSuspended(ctx, userID, course.Title); err != nil {
				g.Logger.Warn("failed to send access suspension notice",
					zap.String("userID", userID), zap.Error(err))
			}
		}
		return &models.AccessDecision{
			HasAccess:     false,
			Reason:        "payment overdue",
			OverdueAmount: overdueAmount,
			OverdueDays:   overdueDays,
		}, nil
	}
	return &models.AccessDecision{HasAccess: true}, nil
}

// graceDays resolves the tenant's overdue tolerance, falling back to the
// platform default when the tenant has no credential record or no override.
func (g *DefaultAccessGate) graceDays(ctx context.Context, tenantID string) int {
	grace := config.AppConfig.DefaultGraceDays

	cred, err := g.Provider.CredentialFor(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, ErrCredentialNotConfigured) {
			g.Logger.Warn("failed to resolve tenant grace days", zap.String("tenantID", tenantID), zap.Error(err))
		}
		return grace
	}
	if cred.GraceDays > 0 {
		grace = cred.GraceDays
	}
	return grace
}
