package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"coursebill/config"
	"coursebill/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(courses *fakeCourseRepo, enrollments *fakeEnrollmentRepo, schedules *fakeScheduleRepo, cred *models.PaymentCredential) *DefaultAccessGate {
	return &DefaultAccessGate{
		Courses:     courses,
		Enrollments: enrollments,
		Schedules:   schedules,
		Provider:    &fakeProvider{client: newFakeProcessorClient(), cred: cred},
		Logger:      testLogger(),
		Now:         func() time.Time { return testNow },
	}
}

func testCourse() models.Course {
	return models.Course{ID: "course-1", TenantID: "tenant-1", ProductID: "prod-1", Title: "Intro"}
}

func TestCheckAccessAllowedWhenCurrent(t *testing.T) {
	config.AppConfig.DefaultGraceDays = 3

	paid := testRow("sch-1", models.SchedulePaid, testNow.AddDate(0, 0, -30))
	upcoming := testRow("sch-2", models.SchedulePending, testNow.AddDate(0, 0, 10))

	gate := newTestGate(
		newFakeCourseRepo(testCourse()),
		newFakeEnrollmentRepo(testEnrollment()),
		newFakeScheduleRepo(paid, upcoming),
		nil,
	)

	decision, err := gate.CheckAccess(context.Background(), "user-1", "course-1", "tenant-1")
	require.NoError(t, err)
	assert.True(t, decision.HasAccess)
	assert.Empty(t, decision.Reason)
}

func TestCheckAccessDeniedWhenOverdue(t *testing.T) {
	config.AppConfig.DefaultGraceDays = 3

	overdue := testRow("sch-1", models.SchedulePending, testNow.AddDate(0, 0, -10))
	alsoOverdue := testRow("sch-2", models.ScheduleFailed, testNow.AddDate(0, 0, -5))

	gate := newTestGate(
		newFakeCourseRepo(testCourse()),
		newFakeEnrollmentRepo(testEnrollment()),
		newFakeScheduleRepo(overdue, alsoOverdue),
		nil,
	)

	decision, err := gate.CheckAccess(context.Background(), "user-1", "course-1", "tenant-1")
	require.NoError(t, err)
	assert.False(t, decision.HasAccess)
	assert.Equal(t, "payment overdue", decision.Reason)
	assert.True(t, decision.OverdueAmount.Equal(decimal.NewFromInt(500)), "both overdue rows aggregate, got %s", decision.OverdueAmount)
	assert.Equal(t, 10, decision.OverdueDays, "the oldest overdue row sets the day count")
}

func TestCheckAccessWithinGraceWindow(t *testing.T) {
	config.AppConfig.DefaultGraceDays = 3

	// Two days past due is inside the three-day grace window.
	recent := testRow("sch-1", models.SchedulePending, testNow.AddDate(0, 0, -2))

	gate := newTestGate(
		newFakeCourseRepo(testCourse()),
		newFakeEnrollmentRepo(testEnrollment()),
		newFakeScheduleRepo(recent),
		nil,
	)

	decision, err := gate.CheckAccess(context.Background(), "user-1", "course-1", "tenant-1")
	require.NoError(t, err)
	assert.True(t, decision.HasAccess)
}

func TestCheckAccessTenantGraceOverride(t *testing.T) {
	config.AppConfig.DefaultGraceDays = 3

	// Five days past due: outside the default window but inside the tenant's.
	row := testRow("sch-1", models.SchedulePending, testNow.AddDate(0, 0, -5))

	gate := newTestGate(
		newFakeCourseRepo(testCourse()),
		newFakeEnrollmentRepo(testEnrollment()),
		newFakeScheduleRepo(row),
		&models.PaymentCredential{TenantID: "tenant-1", Enabled: true, GraceDays: 7},
	)

	decision, err := gate.CheckAccess(context.Background(), "user-1", "course-1", "tenant-1")
	require.NoError(t, err)
	assert.True(t, decision.HasAccess, "the tenant's grace override must apply")
}

func TestCheckAccessDenialSendsSuspensionNotice(t *testing.T) {
	config.AppConfig.DefaultGraceDays = 3

	overdue := testRow("sch-1", models.SchedulePending, testNow.AddDate(0, 0, -10))

	notifier := &fakeNotifier{}
	gate := newTestGate(
		newFakeCourseRepo(testCourse()),
		newFakeEnrollmentRepo(testEnrollment()),
		newFakeScheduleRepo(overdue),
		nil,
	)
	gate.Notifier = notifier

	decision, err := gate.CheckAccess(context.Background(), "user-1", "course-1", "tenant-1")
	require.NoError(t, err)
	assert.False(t, decision.HasAccess)
	require.Len(t, notifier.suspendedUsers, 1)
	assert.Equal(t, "user-1", notifier.suspendedUsers[0])
	assert.Equal(t, "Intro", notifier.suspendedTitles[0])
}

func TestCheckAccessAllowedSendsNoNotice(t *testing.T) {
	config.AppConfig.DefaultGraceDays = 3

	notifier := &fakeNotifier{}
	gate := newTestGate(
		newFakeCourseRepo(testCourse()),
		newFakeEnrollmentRepo(testEnrollment()),
		newFakeScheduleRepo(testRow("sch-1", models.SchedulePaid, testNow.AddDate(0, 0, -30))),
		nil,
	)
	gate.Notifier = notifier

	decision, err := gate.CheckAccess(context.Background(), "user-1", "course-1", "tenant-1")
	require.NoError(t, err)
	assert.True(t, decision.HasAccess)
	assert.Empty(t, notifier.suspendedUsers)
}

func TestCheckAccessNotifierFailureDoesNotBlockDecision(t *testing.T) {
	config.AppConfig.DefaultGraceDays = 3

	notifier := &fakeNotifier{err: fmt.Errorf("fcm unavailable")}
	gate := newTestGate(
		newFakeCourseRepo(testCourse()),
		newFakeEnrollmentRepo(testEnrollment()),
		newFakeScheduleRepo(testRow("sch-1", models.ScheduleFailed, testNow.AddDate(0, 0, -10))),
		nil,
	)
	gate.Notifier = notifier

	decision, err := gate.CheckAccess(context.Background(), "user-1", "course-1", "tenant-1")
	require.NoError(t, err)
	assert.False(t, decision.HasAccess)
}

func TestCheckAccessNoEnrollment(t *testing.T) {
	gate := newTestGate(
		newFakeCourseRepo(testCourse()),
		newFakeEnrollmentRepo(),
		newFakeScheduleRepo(),
		nil,
	)

	decision, err := gate.CheckAccess(context.Background(), "user-1", "course-1", "tenant-1")
	require.NoError(t, err)
	assert.False(t, decision.HasAccess)
	assert.Equal(t, "no enrollment grants this course", decision.Reason)
}

func TestCheckAccessViaProgramProduct(t *testing.T) {
	config.AppConfig.DefaultGraceDays = 3

	course := testCourse()
	course.ProductID = "prod-standalone"
	course.ProgramIDs = []string{"prod-1"}

	gate := newTestGate(
		newFakeCourseRepo(course),
		newFakeEnrollmentRepo(testEnrollment()),
		newFakeScheduleRepo(),
		nil,
	)

	decision, err := gate.CheckAccess(context.Background(), "user-1", "course-1", "tenant-1")
	require.NoError(t, err)
	assert.True(t, decision.HasAccess, "enrollment in a bundling program grants the course")
}

func TestCheckAccessUnknownCourse(t *testing.T) {
	gate := newTestGate(newFakeCourseRepo(), newFakeEnrollmentRepo(), newFakeScheduleRepo(), nil)

	_, err := gate.CheckAccess(context.Background(), "user-1", "course-missing", "tenant-1")
	assert.Error(t, err)
}
