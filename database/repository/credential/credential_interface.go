package credentialRepo

import "coursebill/models"

// CredentialRepository resolves per-tenant processor credentials. Read-only
// from the billing engine's point of view.
type CredentialRepository interface {
	// GetEnabledByTenant returns the tenant's enabled credential set, or
	// (nil, nil) when none is configured or the configured one is disabled.
	GetEnabledByTenant(tenantID string) (*models.PaymentCredential, error)
}
