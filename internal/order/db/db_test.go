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

	"ms-concerts/internal/models"
	"ms-concerts/internal/order/db"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Order)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create order table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func TestCreateAndGetOrder(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	orderID := uuid.New().String()
	newOrder := models.Order{
		OrderID:   orderID,
		ConcertID: "concert1",
		Email:     "john@example.com",
		Amount:    9750,
		CreatedAt: time.Now(),
	}

	err := orderDB.CreateOrder(ctx, newOrder)
	assert.NoError(t, err)

	order, err := orderDB.GetOrderByID(ctx, orderID)
	assert.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, orderID, order.OrderID)
	assert.Equal(t, "john@example.com", order.Email)
	assert.Equal(t, int64(9750), order.Amount)

	// Non-existent order
	order, err = orderDB.GetOrderByID(ctx, "non-existent")
	assert.Error(t, err)
	assert.Nil(t, order)
}

func TestGetOrderByEmail(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	testOrders := []models.Order{
		{
			OrderID:   uuid.New().String(),
			ConcertID: "concert1",
			Email:     "jane@example.com",
			Amount:    3250,
			CreatedAt: time.Now(),
		},
		{
			OrderID:   uuid.New().String(),
			ConcertID: "concert2",
			Email:     "jane@example.com",
			Amount:    6500,
			CreatedAt: time.Now(),
		},
	}
	_, err := bunDB.NewInsert().Model(&testOrders).Exec(ctx)
	assert.NoError(t, err)

	order, err := orderDB.GetOrderByEmail(ctx, "concert2", "jane@example.com")
	assert.NoError(t, err)
	assert.Equal(t, testOrders[1].OrderID, order.OrderID)

	order, err = orderDB.GetOrderByEmail(ctx, "concert1", "nobody@example.com")
	assert.Error(t, err)
	assert.Nil(t, order)
}

func TestDeleteOrder(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	orderID := uuid.New().String()
	testOrder := models.Order{
		OrderID:   orderID,
		ConcertID: "concert1",
		Email:     "john@example.com",
		Amount:    3250,
		CreatedAt: time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&testOrder).Exec(ctx)
	assert.NoError(t, err)

	err = orderDB.DeleteOrder(ctx, orderID)
	assert.NoError(t, err)

	count, err := bunDB.NewSelect().
		Model((*models.Order)(nil)).
		Where("order_id = ?", orderID).
		Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}
