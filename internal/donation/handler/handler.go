package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"foodbridge/internal/donation/service"
	"foodbridge/internal/platform/middleware"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/httputil"
)

// Handler exposes the donation routes.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func NewHandler(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the donation routes. Reads are open to any authenticated
// actor; create, cancel, and the owner listing carry the donor role gate.
func (h *Handler) Register(r chi.Router, donorOnly func(http.Handler) http.Handler) {
	r.Get("/donations", h.handleListOpen)
	r.Get("/donations/{id}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(donorOnly)
		r.Post("/donations", h.handleCreate)
		r.Delete("/donations/{id}", h.handleCancel)
		r.Get("/donations/mine", h.handleListMine)
	})
}

type createDonationRequest struct {
	FoodType      string    `json:"food_type"`
	Quantity      string    `json:"quantity"`
	LocationID    string    `json:"location_id"`
	AvailableFrom time.Time `json:"available_from"`
	AvailableTo   time.Time `json:"available_to"`
	ExpiryDate    time.Time `json:"expiry_date"`
	Notes         string    `json:"notes"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	locationID, err := id.ParseLocationID(req.LocationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid location_id"))
		return
	}

	donation, err := h.service.Create(r.Context(), middleware.GetActorID(r.Context()), service.CreateParams{
		FoodType:      req.FoodType,
		Quantity:      req.Quantity,
		LocationID:    locationID,
		AvailableFrom: req.AvailableFrom,
		AvailableTo:   req.AvailableTo,
		ExpiryDate:    req.ExpiryDate,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err, "failed to create donation")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, donation)
}

func (h *Handler) handleListOpen(w http.ResponseWriter, r *http.Request) {
	page := id.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	donations, err := h.service.ListOpen(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err, "failed to list donations")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donations)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	donationID, err := id.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	donation, err := h.service.Get(r.Context(), donationID)
	if err != nil {
		h.writeError(w, r, err, "failed to load donation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donation)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	donationID, err := id.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Cancel(r.Context(), middleware.GetActorID(r.Context()), donationID); err != nil {
		h.writeError(w, r, err, "failed to cancel donation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	page := id.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	donations, err := h.service.ListByDonor(r.Context(), middleware.GetActorID(r.Context()), page)
	if err != nil {
		h.writeError(w, r, err, "failed to list donations")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donations)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(r.Context(), msg,
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
	httputil.WriteError(w, err)
}
