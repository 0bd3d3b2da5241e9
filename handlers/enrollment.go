package handlers

import (
	"net/http"
	"strings"

	"coursebill/services/billing"
	"coursebill/services/enrollment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EnrollmentHandler exposes enrollment creation and schedule lookup.
type EnrollmentHandler struct {
	Service enrollment.EnrollmentService
}

func NewEnrollmentHandler(service enrollment.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{Service: service}
}

// CreateEnrollmentHandler enrolls the authenticated user into a product and
// lays down the payment schedule for the chosen plan.
func (h *EnrollmentHandler) CreateEnrollmentHandler(c *gin.Context) {
	var req enrollment.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	// Identity comes from the token, never the body.
	req.UserID = c.GetString("userID")
	req.TenantID = c.GetString("tenantID")

	created, rows, err := h.Service.CreateEnrollment(req)
	if err != nil {
		if billing.IsValidation(err) || strings.Contains(err.Error(), "required") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		getLogger(c).Error("enrollment creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create enrollment", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"enrollment": created,
		"schedule":   rows,
	})
}

// GetScheduleHandler returns an enrollment's payment schedule rows.
func (h *EnrollmentHandler) GetScheduleHandler(c *gin.Context) {
	enrollmentID := c.Param("id")

	rows, err := h.Service.GetSchedule(enrollmentID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		getLogger(c).Error("schedule lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch schedule", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": rows})
}
