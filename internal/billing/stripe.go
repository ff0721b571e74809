package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"ms-concerts/internal/logger"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// StripeGateway charges tokens through the Stripe PaymentIntents API.
type StripeGateway struct {
	client   *client.API
	currency string
	log      *logger.Logger
}

func NewStripeGateway(secretKey, currency string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(secretKey, nil)
	log.Info("STRIPE", "Stripe client initialized successfully")

	return &StripeGateway{
		client:   sc,
		currency: currency,
		log:      log,
	}, nil
}

func (g *StripeGateway) Charge(ctx context.Context, amount int64, token string) error {
	if amount <= 0 {
		return fmt.Errorf("invalid charge amount: %d", amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(g.currency),
		PaymentMethod: stripe.String(token),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx

	intent, err := g.client.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			g.log.Warn("STRIPE", fmt.Sprintf("Charge declined (%s): %v", stripeErr.Code, err))
		} else {
			g.log.Error("STRIPE", fmt.Sprintf("Charge request failed: %v", err))
		}
		// Gateway errors and timeouts count as failed payments.
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		g.log.Warn("STRIPE", fmt.Sprintf("Payment intent %s finished with status %s", intent.ID, intent.Status))
		return fmt.Errorf("%w: payment intent status %s", ErrPaymentFailed, intent.Status)
	}

	g.log.Info("STRIPE", fmt.Sprintf("Charged %d %s (payment intent %s)", amount, g.currency, intent.ID))
	return nil
}
