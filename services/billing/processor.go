package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	credentialRepo "coursebill/database/repository/credential"
	"coursebill/models"
	"coursebill/utils"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessorCustomer is the engine's view of a processor-side customer.
type ProcessorCustomer struct {
	ID                     string
	Email                  string
	DefaultPaymentMethodID string
}

// ProcessorIntent is the engine's view of a charge intent.
type ProcessorIntent struct {
	ID           string
	Status       string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
}

// ProcessorInvoice is the engine's view of a processor invoice.
type ProcessorInvoice struct {
	ID              string
	Status          string
	PaymentIntentID string
}

// ProcessorRefund is the engine's view of an issued refund.
type ProcessorRefund struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
	Status   string
}

// IntentParams are the inputs for creating a charge intent. Amount is in
// decimal currency units; the adapter converts to minor units internally.
type IntentParams struct {
	Amount          decimal.Decimal
	Currency        string
	CustomerID      string
	PaymentMethodID string
	Metadata        map[string]string
}

// InvoiceParams are the inputs for creating a processor invoice.
type InvoiceParams struct {
	CustomerID string
	// ChargeAutomatically selects immediate collection against the saved
	// payment method; otherwise the invoice is emailed with DueDate.
	ChargeAutomatically bool
	DueDate             *time.Time
	Metadata            map[string]string
}

// ProcessorClient is the typed surface of one tenant's payment processor
// binding. All amounts cross this boundary as decimals; conversion to the
// processor's integer minor units happens inside the implementation, nowhere
// else.
type ProcessorClient interface {
	PublishableKey() string

	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*ProcessorCustomer, error)
	// GetCustomer returns (nil, nil) when the customer no longer exists
	// upstream, so callers can fall through to recreation.
	GetCustomer(ctx context.Context, id string) (*ProcessorCustomer, error)
	// ListPaymentMethods returns the customer's payment methods on file.
	ListPaymentMethods(ctx context.Context, customerID string) ([]string, error)

	CreatePaymentIntent(ctx context.Context, params IntentParams) (*ProcessorIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*ProcessorIntent, error)

	CreateInvoice(ctx context.Context, params InvoiceParams) (*ProcessorInvoice, error)
	AddInvoiceItem(ctx context.Context, customerID, invoiceID string, amount decimal.Decimal, currency, description string) error
	FinalizeInvoice(ctx context.Context, id string) (*ProcessorInvoice, error)
	PayInvoice(ctx context.Context, id, paymentMethodID string) (*ProcessorInvoice, error)
	GetInvoice(ctx context.Context, id string) (*ProcessorInvoice, error)

	CreateRefund(ctx context.Context, intentID string, amount decimal.Decimal, currency, reason string, metadata map[string]string) (*ProcessorRefund, error)
}

// ProcessorProvider resolves a tenant to its bound processor client.
type ProcessorProvider interface {
	ClientFor(ctx context.Context, tenantID string) (ProcessorClient, error)
	CredentialFor(ctx context.Context, tenantID string) (*models.PaymentCredential, error)
}

// StripeProvider implements ProcessorProvider on top of the credential store,
// with a short-lived Redis cache in front of it.
type StripeProvider struct {
	Creds  credentialRepo.CredentialRepository
	Cache  *redis.Client
	Logger *zap.Logger
}

func NewStripeProvider(creds credentialRepo.CredentialRepository, cache *redis.Client, logger *zap.Logger) *StripeProvider {
	return &StripeProvider{Creds: creds, Cache: cache, Logger: logger}
}

// CredentialFor resolves the tenant's enabled credential set, consulting the
// cache first. A missing or disabled credential is ErrCredentialNotConfigured.
func (p *StripeProvider) CredentialFor(ctx context.Context, tenantID string) (*models.PaymentCredential, error) {
	cacheKey := utils.CredentialCachePrefix + tenantID

	if p.Cache != nil {
		if raw, err := p.Cache.Get(ctx, cacheKey).Result(); err == nil {
			var cred models.PaymentCredential
			if err := json.Unmarshal([]byte(raw), &cred); err == nil {
				return &cred, nil
			}
		}
	}

	cred, err := p.Creds.GetEnabledByTenant(tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve processor credentials: %w", err)
	}
	if cred == nil {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, ErrCredentialNotConfigured)
	}

	if p.Cache != nil {
		if raw, err := json.Marshal(cred); err == nil {
			if err := p.Cache.Set(ctx, cacheKey, raw, utils.CredentialCacheTTL).Err(); err != nil {
				p.Logger.Warn("failed to cache processor credentials", zap.String("tenantID", tenantID), zap.Error(err))
			}
		}
	}
	return cred, nil
}

// ClientFor returns a stripe client bound to the tenant's secret key.
func (p *StripeProvider) ClientFor(ctx context.Context, tenantID string) (ProcessorClient, error) {
	cred, err := p.CredentialFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return newStripeClient(cred), nil
}
