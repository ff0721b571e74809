package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-concerts/internal/models"
)

// ErrNotEnoughTickets means the requested quantity exceeds the concert's
// available tickets. The reservation aborts atomically, so no partial state
// is ever left behind.
var ErrNotEnoughTickets = errors.New("not enough tickets")

// DB owns the pool of sellable tickets. All mutations go through conditional
// updates that re-check the ticket status, so two transactions can never both
// move the same ticket out of the available state.
type DB struct {
	Bun *bun.DB
}

// TicketsRemaining returns the count of available tickets for a concert.
func (d *DB) TicketsRemaining(ctx context.Context, concertID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("concert_id = ?", concertID).
		Where("status = ?", models.TicketAvailable).
		Count(ctx)
}

// ReserveTickets moves exactly quantity tickets from available to reserved
// and returns their ids, or fails with ErrNotEnoughTickets without touching
// anything. The select and the conditional update run in one transaction; if
// a concurrent reservation grabbed any of the selected rows first, the update
// affects fewer rows than requested and the whole attempt rolls back.
func (d *DB) ReserveTickets(ctx context.Context, concertID string, quantity int) ([]string, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	var reserved []string
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var ids []string
		err := tx.NewSelect().
			Model((*models.Ticket)(nil)).
			Column("ticket_id").
			Where("concert_id = ?", concertID).
			Where("status = ?", models.TicketAvailable).
			Order("ticket_id").
			Limit(quantity).
			Scan(ctx, &ids)
		if err != nil {
			return err
		}
		if len(ids) < quantity {
			return ErrNotEnoughTickets
		}

		res, err := tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("status = ?", models.TicketReserved).
			Where("ticket_id IN (?)", bun.In(ids)).
			Where("status = ?", models.TicketAvailable).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(affected) != quantity {
			// Lost a race to a concurrent reservation.
			return ErrNotEnoughTickets
		}

		reserved = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// ReleaseTickets moves reserved tickets back to available and clears any
// order binding. Only rows currently reserved are touched, so a repeated
// release is a no-op.
func (d *DB) ReleaseTickets(ctx context.Context, ticketIDs []string) error {
	if len(ticketIDs) == 0 {
		return nil
	}

	_, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketAvailable).
		Set("order_id = NULL").
		Where("ticket_id IN (?)", bun.In(ticketIDs)).
		Where("status = ?", models.TicketReserved).
		Exec(ctx)
	return err
}

// ConfirmTickets moves reserved tickets to sold and binds them to the order.
// Every ticket must currently be reserved; otherwise nothing is confirmed.
func (d *DB) ConfirmTickets(ctx context.Context, ticketIDs []string, orderID string) error {
	if len(ticketIDs) == 0 {
		return nil
	}

	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("status = ?", models.TicketSold).
			Set("order_id = ?", orderID).
			Where("ticket_id IN (?)", bun.In(ticketIDs)).
			Where("status = ?", models.TicketReserved).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(affected) != len(ticketIDs) {
			return fmt.Errorf("confirm touched %d of %d tickets for order %s", affected, len(ticketIDs), orderID)
		}
		return nil
	})
}

// AddTickets creates quantity new available tickets for a concert. Called by
// catalog management, never by the purchase flow.
func (d *DB) AddTickets(ctx context.Context, concertID string, quantity int) ([]string, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("add quantity must be positive, got %d", quantity)
	}

	tickets := make([]models.Ticket, quantity)
	ids := make([]string, quantity)
	now := time.Now()
	for i := range tickets {
		id := uuid.NewString()
		tickets[i] = models.Ticket{
			TicketID:  id,
			ConcertID: concertID,
			Status:    models.TicketAvailable,
			CreatedAt: now,
		}
		ids[i] = id
	}

	if _, err := d.Bun.NewInsert().Model(&tickets).Exec(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetTicketByID fetches a single ticket.
func (d *DB) GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetTicketsByOrder fetches all tickets sold to an order.
func (d *DB) GetTicketsByOrder(ctx context.Context, orderID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("order_id = ?", orderID).
		Order("ticket_id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
