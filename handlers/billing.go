package handlers

import (
	"errors"
	"net/http"
	"time"

	"coursebill/config"
	"coursebill/services/billing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingHandler exposes the billing engine over HTTP.
type BillingHandler struct {
	Orchestrator billing.InvoiceOrchestrator
	Reconciler   billing.SettlementReconciler
	Gate         billing.AccessGate
}

func NewBillingHandler(orchestrator billing.InvoiceOrchestrator, reconciler billing.SettlementReconciler, gate billing.AccessGate) *BillingHandler {
	return &BillingHandler{Orchestrator: orchestrator, Reconciler: reconciler, Gate: gate}
}

// respondBillingError maps engine errors onto HTTP statuses with actionable
// messages.
func respondBillingError(c *gin.Context, err error) {
	switch {
	case billing.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, billing.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, billing.ErrCredentialNotConfigured):
		c.JSON(http.StatusConflict, gin.H{"error": "payment processing is not configured for this tenant"})
	case errors.Is(err, billing.ErrReferenceNotFound):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case billing.IsDeclined(err):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment method declined", "details": err.Error()})
	default:
		getLogger(c).Error("billing request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing request failed", "details": err.Error()})
	}
}

// CreateCheckoutIntentHandler returns a (possibly reused) charge intent for a
// schedule row, ready for the checkout UI to confirm.
func (h *BillingHandler) CreateCheckoutIntentHandler(c *gin.Context) {
	scheduleID := c.Param("scheduleID")

	intent, err := h.Orchestrator.CreateOrReuseIntent(c.Request.Context(), scheduleID)
	if err != nil {
		respondBillingError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

// RefundHandler issues an admin-initiated refund. Omitting amount refunds the
// row's full face amount.
func (h *BillingHandler) RefundHandler(c *gin.Context) {
	scheduleID := c.Param("scheduleID")

	var input struct {
		Amount *decimal.Decimal `json:"amount"`
		Reason string           `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	result, err := h.Reconciler.Refund(c.Request.Context(), scheduleID, input.Amount, input.Reason)
	if err != nil {
		respondBillingError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AdjustScheduleHandler lets an admin override a failed row's amount and due
// date, putting it back in line for the next sweep.
func (h *BillingHandler) AdjustScheduleHandler(c *gin.Context) {
	scheduleID := c.Param("scheduleID")

	var input struct {
		Amount        decimal.Decimal `json:"amount"`
		ScheduledDate time.Time       `json:"scheduledDate"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := h.Orchestrator.AdjustSchedule(c.Request.Context(), scheduleID, input.Amount, input.ScheduledDate); err != nil {
		respondBillingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "adjusted"})
}

// SweepHandler triggers the batch sweep on demand; the daily cron calls the
// same operation.
func (h *BillingHandler) SweepHandler(c *gin.Context) {
	var input struct {
		DaysAhead int `json:"daysAhead"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.DaysAhead <= 0 {
		input.DaysAhead = config.AppConfig.SweepDaysAhead
	}

	result, err := h.Orchestrator.SweepUpcoming(c.Request.Context(), input.DaysAhead)
	if err != nil {
		respondBillingError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckAccessHandler reports whether the caller's payment health permits
// serving the course.
func (h *BillingHandler) CheckAccessHandler(c *gin.Context) {
	courseID := c.Param("courseID")
	userID := c.GetString("userID")
	tenantID := c.GetString("tenantID")

	decision, err := h.Gate.CheckAccess(c.Request.Context(), userID, courseID, tenantID)
	if err != nil {
		respondBillingError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}
