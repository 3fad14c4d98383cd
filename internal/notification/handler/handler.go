package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodbridge/internal/notification/service"
	"foodbridge/internal/platform/middleware"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/httputil"
)

// Handler exposes the polling surface: list, unread count, mark read.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func NewHandler(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Get("/notifications/unread-count", h.handleUnreadCount)
	r.Post("/notifications/{id}/read", h.handleMarkRead)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := id.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	notifications, err := h.service.List(r.Context(), middleware.GetActorID(r.Context()), page)
	if err != nil {
		h.writeError(w, r, err, "failed to list notifications")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notifications)
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnreadCount(r.Context(), middleware.GetActorID(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "failed to count unread notifications")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, unreadCountResponse{Count: count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.MarkRead(r.Context(), middleware.GetActorID(r.Context()), notificationID); err != nil {
		h.writeError(w, r, err, "failed to mark notification read")
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
