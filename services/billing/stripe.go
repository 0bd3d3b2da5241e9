package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"coursebill/models"
	"coursebill/utils"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// stripeClient binds one tenant's secret key to a stripe API client. It is
// the only place amounts are converted to minor units and the only place raw
// stripe errors are seen.
type stripeClient struct {
	api            *client.API
	publishableKey string
}

func newStripeClient(cred *models.PaymentCredential) *stripeClient {
	api := &client.API{}
	api.Init(cred.SecretKey, nil)
	return &stripeClient{api: api, publishableKey: cred.PublishableKey}
}

func (c *stripeClient) PublishableKey() string {
	return c.publishableKey
}

// classifyStripeErr reclassifies a stripe error into the engine's taxonomy,
// preserving the human-readable message.
func classifyStripeErr(err error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if msg == "" {
			msg = err.Error()
		}
		switch se.Type {
		case stripe.ErrorTypeCard:
			return &ProcessorError{Kind: ProcessorDeclined, Msg: msg, Err: err}
		case stripe.ErrorTypeInvalidRequest:
			if se.HTTPStatusCode == http.StatusTooManyRequests {
				return &ProcessorError{Kind: ProcessorTransient, Msg: msg, Err: err}
			}
			return &ProcessorError{Kind: ProcessorInvalid, Msg: msg, Err: err}
		default:
			return &ProcessorError{Kind: ProcessorTransient, Msg: msg, Err: err}
		}
	}
	return &ProcessorError{Kind: ProcessorTransient, Msg: err.Error(), Err: err}
}

func isStripeMissing(err error) bool {
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}

func (c *stripeClient) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*ProcessorCustomer, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	cust, err := c.api.Customers.New(params)
	if err != nil {
		return nil, classifyStripeErr(err)
	}
	return mapCustomer(cust), nil
}

func (c *stripeClient) GetCustomer(ctx context.Context, id string) (*ProcessorCustomer, error) {
	params := &stripe.CustomerParams{Params: stripe.Params{Context: ctx}}
	params.AddExpand("invoice_settings.default_payment_method")

	cust, err := c.api.Customers.Get(id, params)
	if err != nil {
		if isStripeMissing(err) {
			return nil, nil
		}
		return nil, classifyStripeErr(err)
	}
	if cust.Deleted {
		return nil, nil
	}
	return mapCustomer(cust), nil
}

func mapCustomer(cust *stripe.Customer) *ProcessorCustomer {
	pc := &ProcessorCustomer{ID: cust.ID, Email: cust.Email}
	if cust.InvoiceSettings != nil && cust.InvoiceSettings.DefaultPaymentMethod != nil {
		pc.DefaultPaymentMethodID = cust.InvoiceSettings.DefaultPaymentMethod.ID
	}
	return pc
}

func (c *stripeClient) ListPaymentMethods(ctx context.Context, customerID string) ([]string, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	var ids []string
	iter := c.api.PaymentMethods.List(params)
	for iter.Next() {
		ids = append(ids, iter.PaymentMethod().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, classifyStripeErr(err)
	}
	return ids, nil
}

func (c *stripeClient) CreatePaymentIntent(ctx context.Context, p IntentParams) (*ProcessorIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(utils.ToMinorUnits(p.Amount, p.Currency)),
		Currency: stripe.String(strings.ToLower(p.Currency)),
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyStripeErr(err)
	}
	return mapIntent(intent), nil
}

func (c *stripeClient) GetPaymentIntent(ctx context.Context, id string) (*ProcessorIntent, error) {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	intent, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		if isStripeMissing(err) {
			return nil, nil
		}
		return nil, classifyStripeErr(err)
	}
	return mapIntent(intent), nil
}

func mapIntent(intent *stripe.PaymentIntent) *ProcessorIntent {
	currency := strings.ToUpper(string(intent.Currency))
	return &ProcessorIntent{
		ID:           intent.ID,
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
		Amount:       utils.FromMinorUnits(intent.Amount, currency),
		Currency:     currency,
	}
}

func (c *stripeClient) CreateInvoice(ctx context.Context, p InvoiceParams) (*ProcessorInvoice, error) {
	params := &stripe.InvoiceParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(p.CustomerID),
	}
	if p.ChargeAutomatically {
		params.CollectionMethod = stripe.String(string(stripe.InvoiceCollectionMethodChargeAutomatically))
	} else {
		params.CollectionMethod = stripe.String(string(stripe.InvoiceCollectionMethodSendInvoice))
		if p.DueDate != nil {
			params.DueDate = stripe.Int64(p.DueDate.Unix())
		}
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	inv, err := c.api.Invoices.New(params)
	if err != nil {
		return nil, classifyStripeErr(err)
	}
	return mapInvoice(inv), nil
}

func (c *stripeClient) AddInvoiceItem(ctx context.Context, customerID, invoiceID string, amount decimal.Decimal, currency, description string) error {
	params := &stripe.InvoiceItemParams{
		Params:      stripe.Params{Context: ctx},
		Customer:    stripe.String(customerID),
		Invoice:     stripe.String(invoiceID),
		Amount:      stripe.Int64(utils.ToMinorUnits(amount, currency)),
		Currency:    stripe.String(strings.ToLower(currency)),
		Description: stripe.String(description),
	}

	if _, err := c.api.InvoiceItems.New(params); err != nil {
		return classifyStripeErr(err)
	}
	return nil
}

func (c *stripeClient) FinalizeInvoice(ctx context.Context, id string) (*ProcessorInvoice, error) {
	params := &stripe.InvoiceFinalizeInvoiceParams{Params: stripe.Params{Context: ctx}}
	inv, err := c.api.Invoices.FinalizeInvoice(id, params)
	if err != nil {
		return nil, classifyStripeErr(err)
	}
	return mapInvoice(inv), nil
}

func (c *stripeClient) PayInvoice(ctx context.Context, id, paymentMethodID string) (*ProcessorInvoice, error) {
	params := &stripe.InvoicePayParams{Params: stripe.Params{Context: ctx}}
	if paymentMethodID != "" {
		params.PaymentMethod = stripe.String(paymentMethodID)
	}

	inv, err := c.api.Invoices.Pay(id, params)
	if err != nil {
		return nil, classifyStripeErr(err)
	}
	return mapInvoice(inv), nil
}

func (c *stripeClient) GetInvoice(ctx context.Context, id string) (*ProcessorInvoice, error) {
	params := &stripe.InvoiceParams{Params: stripe.Params{Context: ctx}}
	inv, err := c.api.Invoices.Get(id, params)
	if err != nil {
		if isStripeMissing(err) {
			return nil, nil
		}
		return nil, classifyStripeErr(err)
	}
	return mapInvoice(inv), nil
}

func mapInvoice(inv *stripe.Invoice) *ProcessorInvoice {
	out := &ProcessorInvoice{ID: inv.ID, Status: string(inv.Status)}
	if inv.PaymentIntent != nil {
		out.PaymentIntentID = inv.PaymentIntent.ID
	}
	return out
}

func (c *stripeClient) CreateRefund(ctx context.Context, intentID string, amount decimal.Decimal, currency, reason string, metadata map[string]string) (*ProcessorRefund, error) {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(utils.ToMinorUnits(amount, currency)),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	// Stripe only accepts its own reason enum; the operator's free-form
	// reason travels in metadata.
	params.AddMetadata("reason", reason)
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	refund, err := c.api.Refunds.New(params)
	if err != nil {
		return nil, classifyStripeErr(err)
	}
	cur := strings.ToUpper(string(refund.Currency))
	return &ProcessorRefund{
		ID:       refund.ID,
		Amount:   utils.FromMinorUnits(refund.Amount, cur),
		Currency: cur,
		Status:   string(refund.Status),
	}, nil
}
