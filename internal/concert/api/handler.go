package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-concerts/internal/concert"
	"ms-concerts/internal/logger"
	"ms-concerts/internal/utils"
)

type Handler struct {
	ConcertService *concert.ConcertService
	Logger         *logger.Logger
}

func NewHandler(svc *concert.ConcertService, log *logger.Logger) *Handler {
	return &Handler{ConcertService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/concerts", func(r chi.Router) {
		r.Get("/", h.ListConcerts)
		r.Get("/{concertId}", h.GetConcert)
		r.Get("/{concertId}/tickets/remaining", h.GetTicketsRemaining)
		r.Post("/{concertId}/tickets", h.AddTickets)
		r.Post("/{concertId}/publish", h.PublishConcert)
	})
}

// ListConcerts handles GET /api/concerts.
func (h *Handler) ListConcerts(w http.ResponseWriter, r *http.Request) {
	concerts, err := h.ConcertService.ListPublished(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListConcerts: %v", err))
		http.Error(w, "Failed to list concerts", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, concerts)
}

// GetConcert handles GET /api/concerts/{concertId}. Unpublished concerts are
// invisible.
func (h *Handler) GetConcert(w http.ResponseWriter, r *http.Request) {
	concertID := chi.URLParam(r, "concertId")

	c, err := h.ConcertService.GetPublishedConcert(r.Context(), concertID)
	if errors.Is(err, concert.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetConcert: %v", err))
		http.Error(w, "Failed to load concert", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, c)
}

// GetTicketsRemaining handles GET /api/concerts/{concertId}/tickets/remaining.
// The count is eventually consistent and informational only; the purchase
// flow re-checks inside its own transaction.
func (h *Handler) GetTicketsRemaining(w http.ResponseWriter, r *http.Request) {
	concertID := chi.URLParam(r, "concertId")

	if _, err := h.ConcertService.GetPublishedConcert(r.Context(), concertID); err != nil {
		if errors.Is(err, concert.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetTicketsRemaining: %v", err))
		http.Error(w, "Failed to load concert", http.StatusInternalServerError)
		return
	}

	remaining, err := h.ConcertService.TicketsRemaining(r.Context(), concertID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketsRemaining: %v", err))
		http.Error(w, "Failed to count tickets", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]int{"remaining": remaining})
}

// AddTickets handles POST /api/concerts/{concertId}/tickets.
func (h *Handler) AddTickets(w http.ResponseWriter, r *http.Request) {
	concertID := chi.URLParam(r, "concertId")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		verrs := utils.NewValidationErrors()
		verrs.Add("quantity", "The quantity must be at least 1.")
		utils.WriteJSON(w, http.StatusUnprocessableEntity, verrs)
		return
	}

	ids, err := h.ConcertService.AddTickets(r.Context(), concertID, req.Quantity)
	if errors.Is(err, concert.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddTickets: %v", err))
		http.Error(w, "Failed to add tickets", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"concert_id": concertID,
		"added":      len(ids),
	})
}

// PublishConcert handles POST /api/concerts/{concertId}/publish.
func (h *Handler) PublishConcert(w http.ResponseWriter, r *http.Request) {
	concertID := chi.URLParam(r, "concertId")

	err := h.ConcertService.Publish(r.Context(), concertID)
	if errors.Is(err, concert.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PublishConcert: %v", err))
		http.Error(w, "Failed to publish concert", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
