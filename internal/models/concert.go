package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Concert struct {
	bun.BaseModel `bun:"table:concerts"`

	ConcertID   string     `bun:"concert_id,pk" json:"concert_id"`
	Title       string     `bun:"title,notnull" json:"title"`
	Venue       string     `bun:"venue" json:"venue"`
	Date        time.Time  `bun:"date,notnull" json:"date"`
	TicketPrice int64      `bun:"ticket_price,notnull" json:"ticket_price"`
	PublishedAt *time.Time `bun:"published_at,nullzero" json:"published_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"created_at"`
}

// IsPublished reports whether the concert is visible to the purchase flow.
func (c *Concert) IsPublished() bool {
	return c.PublishedAt != nil
}

type ConcertWithRemaining struct {
	Concert
	TicketsRemaining int `json:"tickets_remaining"`
}
