package billing

import (
	"context"
	"fmt"
	"sync"
)

const fakeValidToken = "valid-token"

// FakePaymentGateway accepts a single well-known token and records the total
// amount charged. Used by the test suite and by PAYMENT_MOCK_MODE.
type FakePaymentGateway struct {
	mu      sync.Mutex
	charges []int64
}

func NewFakePaymentGateway() *FakePaymentGateway {
	return &FakePaymentGateway{}
}

// ValidTestToken returns the only token the fake gateway will charge.
func (g *FakePaymentGateway) ValidTestToken() string {
	return fakeValidToken
}

func (g *FakePaymentGateway) Charge(ctx context.Context, amount int64, token string) error {
	if token != fakeValidToken {
		return fmt.Errorf("%w: invalid token %q", ErrPaymentFailed, token)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges = append(g.charges, amount)
	return nil
}

// TotalCharges returns the sum of all successful charges.
func (g *FakePaymentGateway) TotalCharges() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	var total int64
	for _, amount := range g.charges {
		total += amount
	}
	return total
}
