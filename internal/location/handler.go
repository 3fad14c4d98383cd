package location

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/httputil"
	"foodbridge/pkg/platform/sentinel"
)

// Handler exposes the registry's narrow HTTP surface: admin seeding plus
// lookup by id.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterAdmin mounts the admin-guarded creation route.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/locations", h.handleCreate)
}

// Register mounts the public lookup route.
func (h *Handler) Register(r chi.Router) {
	r.Get("/locations/{id}", h.handleGet)
}

type createLocationRequest struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	loc, err := New(id.NewLocationID(), req.Label, req.Latitude, req.Longitude, time.Now())
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err)))
		return
	}

	if err := h.store.Save(r.Context(), loc); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to save location", "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to save location"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, loc)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	locationID, err := id.ParseLocationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	loc, err := h.store.FindByID(r.Context(), locationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "location not found"))
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to load location", "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load location"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loc)
}
