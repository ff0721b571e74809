package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-concerts/internal/logger"
	"ms-concerts/internal/models"
)

type DBLayer interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

type Catalog interface {
	GetPublishedConcert(ctx context.Context, id string) (*models.Concert, error)
}

type Inventory interface {
	ReserveTickets(ctx context.Context, concertID string, quantity int) ([]string, error)
	ReleaseTickets(ctx context.Context, ticketIDs []string) error
	ConfirmTickets(ctx context.Context, ticketIDs []string, orderID string) error
	GetTicketsByOrder(ctx context.Context, orderID string) ([]models.Ticket, error)
}

type PaymentGateway interface {
	Charge(ctx context.Context, amount int64, token string) error
}

// ReservationLock serializes purchase attempts per concert so concurrent
// requests queue instead of racing each other into the reservation check.
type ReservationLock interface {
	Acquire(ctx context.Context, concertID, holderID string) error
	Release(ctx context.Context, concertID, holderID string) error
}

type RemainingCache interface {
	InvalidateRemaining(ctx context.Context, concertID string) error
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// OrderService coordinates reservation, payment and order persistence as one
// logical unit of work with compensating rollback.
type OrderService struct {
	DB        DBLayer
	Catalog   Catalog
	Inventory Inventory
	Gateway   PaymentGateway
	Lock      ReservationLock
	Cache     RemainingCache
	Kafka     KafkaPublisher
	Logger    *logger.Logger

	OrderCreatedTopic string
}

func NewOrderService(db DBLayer, catalog Catalog, inv Inventory, gateway PaymentGateway, lock ReservationLock, cache RemainingCache, kafka KafkaPublisher, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:                db,
		Catalog:           catalog,
		Inventory:         inv,
		Gateway:           gateway,
		Lock:              lock,
		Cache:             cache,
		Kafka:             kafka,
		Logger:            log,
		OrderCreatedTopic: "concertly.orders.created",
	}
}

// PlaceOrder reserves tickets, charges the payment token and persists the
// order. Each attempt moves Initiated -> Reserved -> {Charged -> Fulfilled |
// ChargeFailed -> Released}; no path leaves tickets stranded in reserved.
//
// Side effects are strictly ordered: the reservation happens before the
// charge (nobody is charged without inventory held for them), and the
// release on a failed charge happens before the failure reaches the caller.
func (s *OrderService) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	// Step 1: only published concerts are purchasable. A miss propagates
	// concert.ErrNotFound, distinct from a ticket shortage.
	concert, err := s.Catalog.GetPublishedConcert(ctx, req.ConcertID)
	if err != nil {
		return nil, err
	}

	// Step 2: integer arithmetic in minor currency units, no rounding.
	amount := int64(req.TicketQuantity) * concert.TicketPrice
	orderID := uuid.NewString()

	s.Logger.LogOrder("PLACE", orderID, fmt.Sprintf("concert=%s qty=%d amount=%d", concert.ConcertID, req.TicketQuantity, amount))

	// Step 3: serialize attempts per concert.
	if s.Lock != nil {
		if err := s.Lock.Acquire(ctx, concert.ConcertID, orderID); err != nil {
			return nil, fmt.Errorf("failed to acquire reservation lock for concert %s: %w", concert.ConcertID, err)
		}
		defer func() {
			if err := s.Lock.Release(context.Background(), concert.ConcertID, orderID); err != nil {
				s.Logger.Warn("ORDER", fmt.Sprintf("Failed to release reservation lock for concert %s: %v", concert.ConcertID, err))
			}
		}()
	}

	// Step 4: reserve or fail fast. ErrNotEnoughTickets propagates with no
	// charge attempted and no state to clean up.
	ticketIDs, err := s.Inventory.ReserveTickets(ctx, concert.ConcertID, req.TicketQuantity)
	if err != nil {
		return nil, err
	}

	// Step 5: charge. On failure the reserved tickets go back to the pool
	// before the caller hears about it.
	if err := s.Gateway.Charge(ctx, amount, req.PaymentToken); err != nil {
		s.Logger.LogPayment("FAILED", orderID, fmt.Sprintf("releasing %d reserved tickets: %v", len(ticketIDs), err))
		if relErr := s.Inventory.ReleaseTickets(ctx, ticketIDs); relErr != nil {
			s.Logger.Error("ORDER", fmt.Sprintf("Failed to release tickets for order %s after payment failure: %v", orderID, relErr))
		}
		s.invalidateRemaining(ctx, concert.ConcertID)
		return nil, err
	}

	// Step 6: finalize. The order row exists only because the charge went
	// through.
	order := models.Order{
		OrderID:   orderID,
		ConcertID: concert.ConcertID,
		Email:     req.Email,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	if err := s.DB.CreateOrder(ctx, order); err != nil {
		s.compensateAfterCharge(ctx, orderID, concert.ConcertID, ticketIDs, false)
		return nil, fmt.Errorf("failed to persist order %s: %w", orderID, err)
	}
	if err := s.Inventory.ConfirmTickets(ctx, ticketIDs, orderID); err != nil {
		s.compensateAfterCharge(ctx, orderID, concert.ConcertID, ticketIDs, true)
		return nil, fmt.Errorf("failed to confirm tickets for order %s: %w", orderID, err)
	}

	s.invalidateRemaining(ctx, concert.ConcertID)
	s.publishOrderCreated(order, len(ticketIDs))
	s.Logger.LogOrder("FULFILLED", orderID, fmt.Sprintf("%d tickets sold for concert %s", len(ticketIDs), concert.ConcertID))

	return &order, nil
}

// GetOrderWithTickets returns a fulfilled order together with its tickets.
func (s *OrderService) GetOrderWithTickets(ctx context.Context, orderID string) (*models.OrderWithTickets, error) {
	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s not found: %w", orderID, err)
	}

	tickets, err := s.Inventory.GetTicketsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets for order %s: %w", orderID, err)
	}

	return &models.OrderWithTickets{Order: *order, Tickets: tickets}, nil
}

// compensateAfterCharge unwinds storage state when persistence fails after a
// successful charge. The charge itself cannot be unwound here; it needs a
// manual refund and is logged accordingly.
func (s *OrderService) compensateAfterCharge(ctx context.Context, orderID, concertID string, ticketIDs []string, orderPersisted bool) {
	s.Logger.Error("ORDER", fmt.Sprintf("Order %s failed after successful charge; charge requires manual refund", orderID))

	if orderPersisted {
		if err := s.DB.DeleteOrder(ctx, orderID); err != nil {
			s.Logger.Error("ORDER", fmt.Sprintf("Failed to delete order %s during compensation: %v", orderID, err))
		}
	}
	if err := s.Inventory.ReleaseTickets(ctx, ticketIDs); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to release tickets for order %s during compensation: %v", orderID, err))
	}
	s.invalidateRemaining(ctx, concertID)
}

func (s *OrderService) invalidateRemaining(ctx context.Context, concertID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateRemaining(ctx, concertID); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("Failed to invalidate remaining count for %s: %v", concertID, err))
	}
}

func (s *OrderService) publishOrderCreated(order models.Order, quantity int) {
	if s.Kafka == nil {
		return
	}

	event := struct {
		models.Order
		TicketQuantity int `json:"ticket_quantity"`
	}{order, quantity}

	value, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to marshal order created event: %v", err))
		return
	}
	if err := s.Kafka.Publish(s.OrderCreatedTopic, order.OrderID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish order created event: %v", err))
	}
}
