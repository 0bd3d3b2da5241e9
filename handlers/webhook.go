package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"coursebill/services/billing"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// WebhookHandler receives processor events and feeds settlement outcomes into
// the reconciler.
type WebhookHandler struct {
	Provider   billing.ProcessorProvider
	Reconciler billing.SettlementReconciler
}

func NewWebhookHandler(provider billing.ProcessorProvider, reconciler billing.SettlementReconciler) *WebhookHandler {
	return &WebhookHandler{Provider: provider, Reconciler: reconciler}
}

// StripeWebhookHandler verifies the event signature against the tenant's
// webhook secret and dispatches settlement updates. Unhandled event types are
// acknowledged so Stripe stops retrying them.
func (h *WebhookHandler) StripeWebhookHandler(c *gin.Context) {
	tenantID := c.Param("tenantID")
	logger := getLogger(c).With(zap.String("tenantID", tenantID))

	cred, err := h.Provider.CredentialFor(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, billing.ErrCredentialNotConfigured) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant"})
			return
		}
		logger.Error("credential lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credential lookup failed"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), cred.WebhookSecret)
	if err != nil {
		logger.Warn("webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	logger = logger.With(zap.String("eventType", string(event.Type)), zap.String("eventID", event.ID))

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			logger.Error("failed to parse payment intent event", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}
		err = h.Reconciler.ApplyIntentSucceeded(c.Request.Context(), tenantID, intent.ID, eventTime(event))

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			logger.Error("failed to parse payment intent event", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}
		err = h.Reconciler.ApplyChargeFailed(c.Request.Context(), tenantID, "", intent.ID)

	case "invoice.paid", "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			logger.Error("failed to parse invoice event", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}
		err = h.Reconciler.ApplyInvoicePaid(c.Request.Context(), tenantID, invoice.ID, eventTime(event))

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			logger.Error("failed to parse invoice event", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}
		err = h.Reconciler.ApplyChargeFailed(c.Request.Context(), tenantID, invoice.ID, "")

	default:
		logger.Debug("ignoring unhandled event type")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err != nil {
		// A 5xx makes Stripe retry, which is what we want for transient
		// settlement failures.
		logger.Error("failed to apply settlement event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func eventTime(event stripe.Event) time.Time {
	if event.Created > 0 {
		return time.Unix(event.Created, 0).UTC()
	}
	return time.Now().UTC()
}
