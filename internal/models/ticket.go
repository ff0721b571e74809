package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketAvailable TicketStatus = "available"
	TicketReserved  TicketStatus = "reserved"
	TicketSold      TicketStatus = "sold"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID  string       `bun:"ticket_id,pk" json:"ticket_id"`
	ConcertID string       `bun:"concert_id,notnull" json:"concert_id"`
	Status    TicketStatus `bun:"status,notnull" json:"status"`
	OrderID   string       `bun:"order_id,nullzero" json:"order_id,omitempty"`
	CreatedAt time.Time    `bun:"created_at,notnull" json:"created_at"`
}
