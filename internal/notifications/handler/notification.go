package handler

import (
	"net/http"
	"reservo/internal/notifications/service"
	httputil "reservo/pkg/http"
	"reservo/pkg/logger"
	"reservo/pkg/middleware"
	"reservo/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type NotificationHandler struct {
	service service.NotificationService
	log     *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log,
	}
}

func (h *NotificationHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	filter := model.NotificationFilter{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Limit:      limit,
		Offset:     offset,
	}
	notifications, total, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, notifications, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	if err := h.service.MarkRead(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "MarkAllRead", err)
		return
	}

	n, err := h.service.MarkAllRead(r.Context(), actor)
	if err != nil {
		h.writeError(w, "MarkAllRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int64{"updated": n}); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkAllRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "GetPreferences", err)
		return
	}

	prefs, err := h.service.GetPreferences(r.Context(), actor)
	if err != nil {
		h.writeError(w, "GetPreferences", err)
		return
	}

	if err := httputil.WriteSuccess(w, prefs); err != nil {
		h.log.Error("failed to write success response", "handler", "GetPreferences", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "UpdatePreferences", err)
		return
	}

	var update model.PreferencesUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "UpdatePreferences", err)
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), actor, &update)
	if err != nil {
		h.writeError(w, "UpdatePreferences", err)
		return
	}

	if err := httputil.WriteSuccess(w, prefs); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdatePreferences", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/notifications", h.GetAll)
	router.POST("/api/v1/notifications/read", h.MarkAllRead)
	router.POST("/api/v1/notifications/id/:id/read", h.MarkRead)
	router.GET("/api/v1/user/notification-preferences", h.GetPreferences)
	router.PUT("/api/v1/user/notification-preferences", h.UpdatePreferences)
}
