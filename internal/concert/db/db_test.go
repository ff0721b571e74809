package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-concerts/internal/concert/db"
	"ms-concerts/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Concert)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create concert table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func newConcert(published bool, date time.Time) models.Concert {
	c := models.Concert{
		ConcertID:   uuid.New().String(),
		Title:       "The Red Chord",
		Venue:       "The Mosh Pit",
		Date:        date,
		TicketPrice: 3250,
		CreatedAt:   time.Now(),
	}
	if published {
		now := time.Now()
		c.PublishedAt = &now
	}
	return c
}

func TestGetPublishedConcert(t *testing.T) {
	concertDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	published := newConcert(true, time.Now().AddDate(0, 1, 0))
	unpublished := newConcert(false, time.Now().AddDate(0, 1, 0))

	assert.NoError(t, concertDB.CreateConcert(ctx, published))
	assert.NoError(t, concertDB.CreateConcert(ctx, unpublished))

	// Published concert is visible
	result, err := concertDB.GetPublishedConcert(ctx, published.ConcertID)
	assert.NoError(t, err)
	assert.Equal(t, published.ConcertID, result.ConcertID)
	assert.True(t, result.IsPublished())

	// Unpublished concert looks exactly like a missing one
	result, err = concertDB.GetPublishedConcert(ctx, unpublished.ConcertID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, result)

	result, err = concertDB.GetPublishedConcert(ctx, "non-existent")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, result)

	// But GetConcertByID still finds it for management use
	result, err = concertDB.GetConcertByID(ctx, unpublished.ConcertID)
	assert.NoError(t, err)
	assert.False(t, result.IsPublished())
}

func TestListPublished(t *testing.T) {
	concertDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	later := newConcert(true, time.Now().AddDate(0, 2, 0))
	sooner := newConcert(true, time.Now().AddDate(0, 1, 0))
	hidden := newConcert(false, time.Now().AddDate(0, 0, 7))

	assert.NoError(t, concertDB.CreateConcert(ctx, later))
	assert.NoError(t, concertDB.CreateConcert(ctx, sooner))
	assert.NoError(t, concertDB.CreateConcert(ctx, hidden))

	concerts, err := concertDB.ListPublished(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(concerts))
	// Soonest first
	assert.Equal(t, sooner.ConcertID, concerts[0].ConcertID)
	assert.Equal(t, later.ConcertID, concerts[1].ConcertID)
}

func TestPublishConcert(t *testing.T) {
	concertDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	c := newConcert(false, time.Now().AddDate(0, 1, 0))
	assert.NoError(t, concertDB.CreateConcert(ctx, c))

	publishedAt := time.Now()
	ok, err := concertDB.PublishConcert(ctx, c.ConcertID, publishedAt)
	assert.NoError(t, err)
	assert.True(t, ok)

	result, err := concertDB.GetConcertByID(ctx, c.ConcertID)
	assert.NoError(t, err)
	assert.True(t, result.IsPublished())
	firstPublishedAt := *result.PublishedAt

	// Publishing again does not move the timestamp
	ok, err = concertDB.PublishConcert(ctx, c.ConcertID, time.Now().Add(time.Hour))
	assert.NoError(t, err)
	assert.False(t, ok)

	result, err = concertDB.GetConcertByID(ctx, c.ConcertID)
	assert.NoError(t, err)
	assert.Equal(t, firstPublishedAt.Unix(), result.PublishedAt.Unix())

	// Publishing a missing concert affects nothing
	ok, err = concertDB.PublishConcert(ctx, "non-existent", time.Now())
	assert.NoError(t, err)
	assert.False(t, ok)
}
