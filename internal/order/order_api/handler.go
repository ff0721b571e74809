package order_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-concerts/internal/billing"
	"ms-concerts/internal/concert"
	"ms-concerts/internal/inventory"
	"ms-concerts/internal/logger"
	"ms-concerts/internal/models"
	"ms-concerts/internal/order"
	"ms-concerts/internal/tickets/qr"
	"ms-concerts/internal/utils"
)

type TicketReader interface {
	GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error)
}

type Handler struct {
	OrderService *order.OrderService
	Tickets      TicketReader
	QR           *qr.Generator
	Logger       *logger.Logger
}

type purchaseRequest struct {
	Email          string `json:"email"`
	TicketQuantity int    `json:"ticket_quantity"`
	PaymentToken   string `json:"payment_token"`
}

// PlaceOrder handles POST /api/concerts/{concertId}/orders. Outcomes map to
// 201 (fulfilled), 404 (no published concert), 422 (shortage, declined
// payment, or validation failure).
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	concertID := chi.URLParam(r, "concertId")

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if verrs := validatePurchase(req); verrs.HasErrors() {
		h.Logger.Warn("API", fmt.Sprintf("PlaceOrder: validation failed for concert %s", concertID))
		utils.WriteJSON(w, http.StatusUnprocessableEntity, verrs)
		return
	}

	_, err := h.OrderService.PlaceOrder(r.Context(), models.OrderRequest{
		ConcertID:      concertID,
		Email:          req.Email,
		TicketQuantity: req.TicketQuantity,
		PaymentToken:   req.PaymentToken,
	})

	switch {
	case err == nil:
		w.WriteHeader(http.StatusCreated)
	case errors.Is(err, concert.ErrNotFound):
		h.Logger.Warn("API", fmt.Sprintf("PlaceOrder: no published concert %s", concertID))
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, inventory.ErrNotEnoughTickets):
		h.Logger.Warn("API", fmt.Sprintf("PlaceOrder: not enough tickets for concert %s", concertID))
		w.WriteHeader(http.StatusUnprocessableEntity)
	case errors.Is(err, billing.ErrPaymentFailed):
		h.Logger.Warn("API", fmt.Sprintf("PlaceOrder: payment failed for concert %s", concertID))
		w.WriteHeader(http.StatusUnprocessableEntity)
	default:
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: %v", err))
		http.Error(w, "Failed to place order", http.StatusInternalServerError)
	}
}

func validatePurchase(req purchaseRequest) *utils.ValidationErrors {
	verrs := utils.NewValidationErrors()
	if req.Email == "" {
		verrs.Add("email", "The email field is required.")
	}
	if req.TicketQuantity < 1 {
		verrs.Add("ticket_quantity", "The ticket quantity must be at least 1.")
	}
	if req.PaymentToken == "" {
		verrs.Add("payment_token", "The payment token field is required.")
	}
	return verrs
}

// GetOrder handles GET /api/orders/{orderId}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	orderData, err := h.OrderService.GetOrderWithTickets(r.Context(), orderID)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("GetOrder: order not found: %v", err))
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, http.StatusOK, orderData)
}

// GetTicketQR handles GET /api/tickets/{ticketId}/qr. Only sold tickets have
// a scannable code.
func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	ticket, err := h.Tickets.GetTicketByID(r.Context(), ticketID)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("GetTicketQR: ticket not found: %v", err))
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	}
	if ticket.Status != models.TicketSold {
		http.Error(w, "Ticket has not been sold", http.StatusNotFound)
		return
	}

	png, err := h.QR.Render(*ticket)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketQR: failed to render QR: %v", err))
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
