package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodbridge/internal/matching/service"
	"foodbridge/internal/platform/middleware"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/httputil"
)

// Handler exposes the recipient-facing matching routes.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func NewHandler(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the matching routes. Callers wrap the router with
// RequireAuth and the recipient role gate.
func (h *Handler) Register(r chi.Router) {
	r.Post("/matching/claim", h.handleClaim)
	r.Post("/matching/accept", h.handleAccept)
	r.Post("/matching/change", h.handleChange)
	r.Post("/matching/reject", h.handleReject)
	r.Get("/matching/mine", h.handleMine)
}

type claimRequest struct {
	DonationID        string `json:"donation_id"`
	DropoffLocationID string `json:"dropoff_location_id"`
	Phone             string `json:"phone"`
	Notes             string `json:"notes"`
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	donationID, err := id.ParseDonationID(req.DonationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid donation_id"))
		return
	}
	dropoffID, err := id.ParseLocationID(req.DropoffLocationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid dropoff_location_id"))
		return
	}

	result, err := h.service.ClaimDonation(r.Context(), middleware.GetActorID(r.Context()), donationID, dropoffID, req.Phone, req.Notes)
	if err != nil {
		h.writeError(w, r, err, "failed to claim donation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type acceptRequest struct {
	NeedID     string `json:"need_id"`
	DonationID string `json:"donation_id"`
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	needID, err := id.ParseNeedID(req.NeedID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid need_id"))
		return
	}
	donationID, err := id.ParseDonationID(req.DonationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid donation_id"))
		return
	}

	result, err := h.service.AcceptProposal(r.Context(), middleware.GetActorID(r.Context()), needID, donationID)
	if err != nil {
		h.writeError(w, r, err, "failed to accept proposal")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type changeRequest struct {
	NeedID            string `json:"need_id"`
	DonationID        string `json:"donation_id"`
	DropoffLocationID string `json:"dropoff_location_id"`
	Phone             string `json:"phone"`
	Notes             string `json:"notes"`
}

func (h *Handler) handleChange(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	needID, err := id.ParseNeedID(req.NeedID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid need_id"))
		return
	}
	donationID, err := id.ParseDonationID(req.DonationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid donation_id"))
		return
	}
	dropoffID, err := id.ParseLocationID(req.DropoffLocationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid dropoff_location_id"))
		return
	}

	result, err := h.service.ChangeProposal(r.Context(), middleware.GetActorID(r.Context()), needID, donationID, dropoffID, req.Phone, req.Notes)
	if err != nil {
		h.writeError(w, r, err, "failed to change proposal")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type rejectRequest struct {
	NotificationID string `json:"notification_id"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	notificationID, err := id.ParseNotificationID(req.NotificationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid notification_id"))
		return
	}

	if err := h.service.RejectProposal(r.Context(), middleware.GetActorID(r.Context()), notificationID); err != nil {
		h.writeError(w, r, err, "failed to reject proposal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	page := id.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	donations, err := h.service.Mine(r.Context(), middleware.GetActorID(r.Context()), page)
	if err != nil {
		h.writeError(w, r, err, "failed to list matched donations")
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
