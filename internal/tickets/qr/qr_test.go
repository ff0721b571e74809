package qr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-concerts/internal/models"
	"ms-concerts/internal/tickets/qr"
)

func soldTicket() models.Ticket {
	return models.Ticket{
		TicketID:  "ticket123",
		ConcertID: "concert456",
		Status:    models.TicketSold,
		OrderID:   "order789",
		CreatedAt: time.Now(),
	}
}

func TestRenderProducesPNG(t *testing.T) {
	generator := qr.NewGenerator("test-secret")

	png, err := generator.Render(soldTicket())
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestRenderPayloadIsEncrypted(t *testing.T) {
	// The random IV makes every rendering unique even for the same ticket,
	// so a captured code cannot be correlated or forged without the secret.
	generator := qr.NewGenerator("test-secret")
	ticket := soldTicket()

	first, err := generator.Render(ticket)
	require.NoError(t, err)
	second, err := generator.Render(ticket)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestGeneratorAcceptsAnySecretLength(t *testing.T) {
	// Secrets are hashed to a fixed key size
	for _, secret := range []string{"", "x", "a-much-longer-secret-than-thirty-two-bytes-would-allow"} {
		generator := qr.NewGenerator(secret)
		png, err := generator.Render(soldTicket())
		require.NoError(t, err)
		assert.NotEmpty(t, png)
	}
}
