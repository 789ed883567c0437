// Package payment wraps the external payment processor behind a small
// interface so services (and tests) never touch the Stripe client directly.
package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// IntentCreator creates a payment intent for the given amount in minor
// currency units and returns the client-side confirmation secret. No local
// state changes happen here — the ledger is written separately once the
// client confirms.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountMinor int64) (clientSecret string, err error)
}

// StripeGateway implements IntentCreator against the Stripe API.
type StripeGateway struct {
	client *client.API
}

// NewStripeGateway creates a gateway with the given secret key.
func NewStripeGateway(apiKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)

	return &StripeGateway{client: sc}
}

var _ IntentCreator = (*StripeGateway)(nil)

// CreateIntent creates a card payment intent in USD. amountMinor is in
// cents; callers convert from the base amount before calling.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64) (string, error) {
	if amountMinor <= 0 {
		return "", fmt.Errorf("payment: amount must be positive, got %d", amountMinor)
	}

	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		PaymentMethodTypes: []*string{
			stripe.String("card"),
		},
	}

	intent, err := g.client.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("payment: creating payment intent: %w", err)
	}

	return intent.ClientSecret, nil
}
