package models

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderRequest is the purchase payload received on the HTTP boundary.
type OrderRequest struct {
	ConcertID      string `json:"concert_id"`
	Email          string `json:"email"`
	TicketQuantity int    `json:"ticket_quantity"`
	PaymentToken   string `json:"payment_token"`
}

// Order is persisted only after its payment succeeded. The tickets it owns
// carry the sold state; the order row itself is a denormalized view.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID   string    `bun:"order_id,pk" json:"order_id"`
	ConcertID string    `bun:"concert_id,notnull" json:"concert_id"`
	Email     string    `bun:"email,notnull" json:"email"`
	Amount    int64     `bun:"amount,notnull" json:"amount"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

type OrderWithTickets struct {
	Order
	Tickets []Ticket `json:"tickets"`
}
