package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodbridge/internal/need/service"
	"foodbridge/internal/platform/middleware"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/httputil"
)

// Handler exposes the recipient-facing need routes.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func NewHandler(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the need routes. Callers wrap the router with RequireAuth
// and the recipient role gate.
func (h *Handler) Register(r chi.Router) {
	r.Post("/needs", h.handleCreate)
	r.Get("/needs", h.handleListMine)
	r.Put("/needs/{id}", h.handleUpdate)
	r.Delete("/needs/{id}", h.handleDelete)
}

type needRequest struct {
	FoodType          string `json:"food_type"`
	Quantity          string `json:"quantity"`
	DropoffLocationID string `json:"dropoff_location_id"`
	ContactPhone      string `json:"contact_phone"`
	Notes             string `json:"notes"`
}

func (r needRequest) toParams() (service.CreateParams, error) {
	locationID, err := id.ParseLocationID(r.DropoffLocationID)
	if err != nil {
		return service.CreateParams{}, dErrors.New(dErrors.CodeValidation, "invalid dropoff_location_id")
	}
	return service.CreateParams{
		FoodType:          r.FoodType,
		Quantity:          r.Quantity,
		DropoffLocationID: locationID,
		ContactPhone:      r.ContactPhone,
		Notes:             r.Notes,
	}, nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req needRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	params, err := req.toParams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	need, err := h.service.Create(r.Context(), middleware.GetActorID(r.Context()), params)
	if err != nil {
		h.writeError(w, r, err, "failed to create need")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, need)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	page := id.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	needs, err := h.service.ListMine(r.Context(), middleware.GetActorID(r.Context()), page)
	if err != nil {
		h.writeError(w, r, err, "failed to list needs")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, needs)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	needID, err := id.ParseNeedID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req needRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	params, err := req.toParams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	need, err := h.service.Update(r.Context(), middleware.GetActorID(r.Context()), needID, params)
	if err != nil {
		h.writeError(w, r, err, "failed to update need")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, need)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	needID, err := id.ParseNeedID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), middleware.GetActorID(r.Context()), needID); err != nil {
		h.writeError(w, r, err, "failed to delete need")
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
