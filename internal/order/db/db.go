package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-concerts/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateOrder inserts a fulfilled order. Only called after payment succeeded.
func (d *DB) CreateOrder(ctx context.Context, order models.Order) error {
	_, err := d.Bun.NewInsert().Model(&order).Exec(ctx)
	return err
}

// GetOrderByID fetches one order by its ID.
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByEmail finds a customer's order for a concert.
func (d *DB) GetOrderByEmail(ctx context.Context, concertID, email string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("concert_id = ?", concertID).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// DeleteOrder removes an order row. Used only by post-payment compensation.
func (d *DB) DeleteOrder(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Order)(nil)).
		Where("order_id = ?", id).
		Exec(ctx)
	return err
}
