package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"foodbridge/internal/delivery/models"
	"foodbridge/internal/delivery/service"
	"foodbridge/internal/platform/middleware"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/httputil"
)

// Handler exposes the logistics-facing delivery routes.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func NewHandler(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the delivery routes. Callers wrap the router with
// RequireAuth; list and transition routes additionally carry the logistics
// role gate, while reads are open to any authenticated actor.
func (h *Handler) Register(r chi.Router, logisticsOnly func(http.Handler) http.Handler) {
	r.Get("/deliveries/{id}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(logisticsOnly)
		r.Get("/deliveries", h.handleList)
		r.Get("/deliveries/history", h.handleHistory)
		r.Post("/deliveries/{id}/assign", h.handleAssign)
		r.Post("/deliveries/{id}/schedule-pickup", h.handleSchedulePickup)
		r.Post("/deliveries/{id}/complete-pickup", h.handleCompletePickup)
		r.Post("/deliveries/{id}/schedule-dropoff", h.handleScheduleDropoff)
		r.Post("/deliveries/{id}/complete-dropoff", h.handleCompleteDropoff)
		r.Post("/deliveries/{id}/complete", h.handleComplete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := id.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))

	if r.URL.Query().Get("unassigned") == "true" {
		deliveries, err := h.service.ListUnassigned(r.Context(), page)
		if err != nil {
			h.writeError(w, r, err, "failed to list unassigned deliveries")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, deliveries)
		return
	}

	rawStatus := r.URL.Query().Get("status")
	if rawStatus != "" {
		status, err := models.ParseStatus(rawStatus)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown delivery status"))
			return
		}
		deliveries, err := h.service.ListByStatus(r.Context(), status, page)
		if err != nil {
			h.writeError(w, r, err, "failed to list deliveries")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, deliveries)
		return
	}

	// No filter: the caller's own active assignments.
	deliveries, err := h.service.ListByStaff(r.Context(), middleware.GetActorID(r.Context()), false, page)
	if err != nil {
		h.writeError(w, r, err, "failed to list deliveries")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deliveries)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	page := id.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	deliveries, err := h.service.ListByStaff(r.Context(), middleware.GetActorID(r.Context()), true, page)
	if err != nil {
		h.writeError(w, r, err, "failed to list delivery history")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deliveries)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	deliveryID, err := id.ParseDeliveryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.Get(r.Context(), deliveryID)
	if err != nil {
		h.writeError(w, r, err, "failed to load delivery")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(deliveryID id.DeliveryID, staffID id.UserID) (*models.Delivery, error) {
		return h.service.AssignStaff(r.Context(), staffID, deliveryID)
	})
}

type scheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (h *Handler) handleSchedulePickup(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	h.runTransition(w, r, func(deliveryID id.DeliveryID, staffID id.UserID) (*models.Delivery, error) {
		return h.service.SchedulePickup(r.Context(), staffID, deliveryID, req.ScheduledAt)
	})
}

func (h *Handler) handleCompletePickup(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(deliveryID id.DeliveryID, staffID id.UserID) (*models.Delivery, error) {
		return h.service.CompletePickup(r.Context(), staffID, deliveryID)
	})
}

func (h *Handler) handleScheduleDropoff(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	h.runTransition(w, r, func(deliveryID id.DeliveryID, staffID id.UserID) (*models.Delivery, error) {
		return h.service.ScheduleDropoff(r.Context(), staffID, deliveryID, req.ScheduledAt)
	})
}

func (h *Handler) handleCompleteDropoff(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(deliveryID id.DeliveryID, staffID id.UserID) (*models.Delivery, error) {
		return h.service.CompleteDropoff(r.Context(), staffID, deliveryID)
	})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(deliveryID id.DeliveryID, staffID id.UserID) (*models.Delivery, error) {
		return h.service.CompleteDelivery(r.Context(), staffID, deliveryID)
	})
}

func (h *Handler) runTransition(w http.ResponseWriter, r *http.Request, run func(id.DeliveryID, id.UserID) (*models.Delivery, error)) {
	deliveryID, err := id.ParseDeliveryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	delivery, err := run(deliveryID, middleware.GetActorID(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "failed to transition delivery")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, delivery)
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
