package billing

import (
	"context"
	"errors"
)

// ErrPaymentFailed covers declined and invalid tokens as well as gateway
// transport errors and timeouts. The order flow treats all of them the same:
// release the reserved tickets and report the failure.
var ErrPaymentFailed = errors.New("payment failed")

// PaymentGateway charges a payment token for an amount in minor currency
// units. Implementations must return an error wrapping ErrPaymentFailed for
// any charge that did not succeed.
type PaymentGateway interface {
	Charge(ctx context.Context, amount int64, token string) error
}
