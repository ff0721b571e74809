package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-concerts/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetConcertByID fetches one concert regardless of publish state.
func (d *DB) GetConcertByID(ctx context.Context, id string) (*models.Concert, error) {
	var concert models.Concert
	err := d.Bun.NewSelect().
		Model(&concert).
		Where("concert_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &concert, nil
}

// GetPublishedConcert fetches one concert visible to the purchase flow.
// Unpublished concerts are indistinguishable from missing ones.
func (d *DB) GetPublishedConcert(ctx context.Context, id string) (*models.Concert, error) {
	var concert models.Concert
	err := d.Bun.NewSelect().
		Model(&concert).
		Where("concert_id = ?", id).
		Where("published_at IS NOT NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &concert, nil
}

// ListPublished returns all published concerts, soonest first.
func (d *DB) ListPublished(ctx context.Context) ([]models.Concert, error) {
	var concerts []models.Concert
	err := d.Bun.NewSelect().
		Model(&concerts).
		Where("published_at IS NOT NULL").
		Order("date").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return concerts, nil
}

// CreateConcert inserts a new concert.
func (d *DB) CreateConcert(ctx context.Context, concert models.Concert) error {
	_, err := d.Bun.NewInsert().Model(&concert).Exec(ctx)
	return err
}

// PublishConcert sets the publish timestamp. Rows already published keep
// their original timestamp.
func (d *DB) PublishConcert(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Concert)(nil)).
		Set("published_at = ?", at).
		Where("concert_id = ?", id).
		Where("published_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
