package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-concerts/internal/concert"
	"ms-concerts/internal/concert/api"
	concert_db "ms-concerts/internal/concert/db"
	"ms-concerts/internal/inventory"
	"ms-concerts/internal/logger"
	"ms-concerts/internal/models"
)

type catalogApp struct {
	router  chi.Router
	bunDB   *bun.DB
	catalog *concert_db.DB
	inv     *inventory.DB
}

func setupCatalog(t *testing.T) *catalogApp {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range []interface{}{(*models.Concert)(nil), (*models.Ticket)(nil)} {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	log := logger.NewLogger()
	inv := &inventory.DB{Bun: bunDB}
	catalog := &concert_db.DB{Bun: bunDB}
	svc := concert.NewConcertService(catalog, inv, nil, nil, log)

	r := chi.NewRouter()
	api.NewHandler(svc, log).RegisterRoutes(r)

	return &catalogApp{router: r, bunDB: bunDB, catalog: catalog, inv: inv}
}

func (a *catalogApp) seedConcert(t *testing.T, published bool, ticketCount int) models.Concert {
	t.Helper()
	ctx := context.Background()

	c := models.Concert{
		ConcertID:   uuid.New().String(),
		Title:       "The Red Chord",
		Venue:       "The Mosh Pit",
		Date:        time.Now().AddDate(0, 1, 0),
		TicketPrice: 3250,
		CreatedAt:   time.Now(),
	}
	if published {
		now := time.Now()
		c.PublishedAt = &now
	}
	require.NoError(t, a.catalog.CreateConcert(ctx, c))

	if ticketCount > 0 {
		_, err := a.inv.AddTickets(ctx, c.ConcertID, ticketCount)
		require.NoError(t, err)
	}
	return c
}

func (a *catalogApp) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestListConcerts(t *testing.T) {
	app := setupCatalog(t)
	defer app.bunDB.Close()

	published := app.seedConcert(t, true, 5)
	app.seedConcert(t, false, 3)

	w := app.do(http.MethodGet, "/api/concerts", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var concerts []models.ConcertWithRemaining
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &concerts))
	require.Equal(t, 1, len(concerts))
	assert.Equal(t, published.ConcertID, concerts[0].ConcertID)
	assert.Equal(t, 5, concerts[0].TicketsRemaining)
}

func TestGetConcert(t *testing.T) {
	app := setupCatalog(t)
	defer app.bunDB.Close()

	published := app.seedConcert(t, true, 0)
	unpublished := app.seedConcert(t, false, 0)

	w := app.do(http.MethodGet, "/api/concerts/"+published.ConcertID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var c models.Concert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, published.ConcertID, c.ConcertID)
	assert.Equal(t, int64(3250), c.TicketPrice)

	// Unpublished and missing concerts are indistinguishable
	w = app.do(http.MethodGet, "/api/concerts/"+unpublished.ConcertID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodGet, "/api/concerts/non-existent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTicketsRemaining(t *testing.T) {
	app := setupCatalog(t)
	defer app.bunDB.Close()

	c := app.seedConcert(t, true, 7)

	w := app.do(http.MethodGet, "/api/concerts/"+c.ConcertID+"/tickets/remaining", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 7, body["remaining"])

	// The count is not exposed for unpublished concerts
	hidden := app.seedConcert(t, false, 3)
	w = app.do(http.MethodGet, "/api/concerts/"+hidden.ConcertID+"/tickets/remaining", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddTickets(t *testing.T) {
	app := setupCatalog(t)
	defer app.bunDB.Close()

	// Tickets can be added before publishing
	c := app.seedConcert(t, false, 0)

	w := app.do(http.MethodPost, "/api/concerts/"+c.ConcertID+"/tickets", []byte(`{"quantity": 10}`))
	assert.Equal(t, http.StatusCreated, w.Code)

	remaining, err := app.inv.TicketsRemaining(context.Background(), c.ConcertID)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	// Unknown concert
	w = app.do(http.MethodPost, "/api/concerts/non-existent/tickets", []byte(`{"quantity": 10}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Quantity must be positive
	w = app.do(http.MethodPost, "/api/concerts/"+c.ConcertID+"/tickets", []byte(`{"quantity": 0}`))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var verrs struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verrs))
	assert.NotEmpty(t, verrs.Errors["quantity"])
}

func TestPublishConcert(t *testing.T) {
	app := setupCatalog(t)
	defer app.bunDB.Close()

	c := app.seedConcert(t, false, 2)

	// Invisible before publishing
	w := app.do(http.MethodGet, "/api/concerts/"+c.ConcertID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPost, "/api/concerts/"+c.ConcertID+"/publish", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(http.MethodGet, "/api/concerts/"+c.ConcertID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Publishing twice is harmless
	w = app.do(http.MethodPost, "/api/concerts/"+c.ConcertID+"/publish", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(http.MethodPost, "/api/concerts/non-existent/publish", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
