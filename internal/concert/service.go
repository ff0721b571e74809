package concert

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-concerts/internal/logger"
	"ms-concerts/internal/models"
)

// ErrNotFound means no published concert matches. The HTTP boundary maps it
// to a 404, distinct from a ticket shortage.
var ErrNotFound = errors.New("concert not found")

type CatalogDB interface {
	GetConcertByID(ctx context.Context, id string) (*models.Concert, error)
	GetPublishedConcert(ctx context.Context, id string) (*models.Concert, error)
	ListPublished(ctx context.Context) ([]models.Concert, error)
	PublishConcert(ctx context.Context, id string, at time.Time) (bool, error)
}

type Inventory interface {
	TicketsRemaining(ctx context.Context, concertID string) (int, error)
	AddTickets(ctx context.Context, concertID string, quantity int) ([]string, error)
}

// RemainingCache serves eventually consistent remaining counts for the read
// path. It is never consulted by the reservation check itself.
type RemainingCache interface {
	GetRemaining(ctx context.Context, concertID string) (int, bool, error)
	SetRemaining(ctx context.Context, concertID string, remaining int) error
	InvalidateRemaining(ctx context.Context, concertID string) error
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// ConcertService is the catalog: published-concert lookup and listing, plus
// the storage-level management operations the system needs to run (adding
// inventory, publishing).
type ConcertService struct {
	DB        CatalogDB
	Inventory Inventory
	Cache     RemainingCache
	Kafka     KafkaPublisher
	Logger    *logger.Logger

	TicketsAddedTopic string
}

func NewConcertService(db CatalogDB, inv Inventory, cache RemainingCache, kafka KafkaPublisher, log *logger.Logger) *ConcertService {
	return &ConcertService{
		DB:                db,
		Inventory:         inv,
		Cache:             cache,
		Kafka:             kafka,
		Logger:            log,
		TicketsAddedTopic: "concertly.tickets.added",
	}
}

// GetPublishedConcert resolves a concert visible to customers.
func (s *ConcertService) GetPublishedConcert(ctx context.Context, id string) (*models.Concert, error) {
	concert, err := s.DB.GetPublishedConcert(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load concert %s: %w", id, err)
	}
	return concert, nil
}

// ListPublished returns published concerts with their remaining counts.
func (s *ConcertService) ListPublished(ctx context.Context) ([]models.ConcertWithRemaining, error) {
	concerts, err := s.DB.ListPublished(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.ConcertWithRemaining, len(concerts))
	for i, c := range concerts {
		remaining, err := s.TicketsRemaining(ctx, c.ConcertID)
		if err != nil {
			return nil, err
		}
		result[i] = models.ConcertWithRemaining{Concert: c, TicketsRemaining: remaining}
	}
	return result, nil
}

// TicketsRemaining serves the remaining count, preferring the cache. A stale
// count here is fine; the reservation itself re-checks inside its own
// transaction.
func (s *ConcertService) TicketsRemaining(ctx context.Context, concertID string) (int, error) {
	if s.Cache != nil {
		remaining, ok, err := s.Cache.GetRemaining(ctx, concertID)
		if err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Remaining-count cache read failed for %s: %v", concertID, err))
		} else if ok {
			return remaining, nil
		}
	}

	remaining, err := s.Inventory.TicketsRemaining(ctx, concertID)
	if err != nil {
		return 0, err
	}

	if s.Cache != nil {
		if err := s.Cache.SetRemaining(ctx, concertID, remaining); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Remaining-count cache write failed for %s: %v", concertID, err))
		}
	}
	return remaining, nil
}

// AddTickets creates new available inventory for a concert. The concert does
// not need to be published yet.
func (s *ConcertService) AddTickets(ctx context.Context, concertID string, quantity int) ([]string, error) {
	_, err := s.DB.GetConcertByID(ctx, concertID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load concert %s: %w", concertID, err)
	}

	ids, err := s.Inventory.AddTickets(ctx, concertID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add tickets for concert %s: %w", concertID, err)
	}
	s.Logger.LogReservation(concertID, quantity, "tickets added to inventory")

	if s.Cache != nil {
		if err := s.Cache.InvalidateRemaining(ctx, concertID); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Failed to invalidate remaining count for %s: %v", concertID, err))
		}
	}

	if s.Kafka != nil {
		event := struct {
			ConcertID string `json:"concert_id"`
			Quantity  int    `json:"quantity"`
			AddedAt   string `json:"added_at"`
		}{concertID, quantity, time.Now().UTC().Format(time.RFC3339)}

		value, _ := json.Marshal(event)
		if err := s.Kafka.Publish(s.TicketsAddedTopic, concertID, value); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish tickets added event: %v", err))
		}
	}

	return ids, nil
}

// Publish makes a concert visible to the purchase flow.
func (s *ConcertService) Publish(ctx context.Context, concertID string) error {
	published, err := s.DB.PublishConcert(ctx, concertID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to publish concert %s: %w", concertID, err)
	}
	if !published {
		// Either missing or already published; only the former is an error.
		if _, err := s.DB.GetConcertByID(ctx, concertID); errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}
