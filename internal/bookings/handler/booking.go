package handler

import (
	"context"
	"net/http"
	"reservo/internal/bookings/service"
	apperrors "reservo/pkg/errors"
	httputil "reservo/pkg/http"
	"reservo/pkg/logger"
	"reservo/pkg/middleware"
	"reservo/pkg/model"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
	now     func() time.Time
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
		now:     time.Now,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	booking, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// GetAll lists the caller's bookings. Administrators see every booking and
// may narrow the listing with user_id.
func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

	query := r.URL.Query()
	filter := model.BookingFilter{
		UserID:     query.Get("user_id"),
		ResourceID: query.Get("resource_id"),
		Status:     model.BookingStatus(query.Get("status")),
		Limit:      limit,
		Offset:     offset,
	}
	if upcoming := query.Get("upcoming"); upcoming != "" {
		ok, err := strconv.ParseBool(upcoming)
		if err != nil {
			h.writeError(w, "GetAll", apperrors.InvalidInput("invalid upcoming parameter: "+upcoming))
			return
		}
		if ok {
			filter.StartsAfter = h.now().UTC()
		}
	}

	bookings, total, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var updates model.BookingUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	booking, err := h.service.Update(r.Context(), actor, ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

// Cancel accepts an optional {"reason": "..."} body.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	var req model.CancelRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(w, "Cancel", err)
			return
		}
	}

	booking, err := h.service.Cancel(r.Context(), actor, ps.ByName("id"), req.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, ps, "Approve", h.service.Approve)
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, ps, "Reject", h.service.Reject)
}

func (h *BookingHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	ps httprouter.Params,
	name string,
	op func(ctx context.Context, actor model.Actor, id string) (*model.Booking, error),
) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	booking, err := op(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := middleware.RequireActor(r); err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	query := r.URL.Query()
	resourceID := query.Get("resource_id")
	if resourceID == "" {
		h.writeError(w, "CheckAvailability", apperrors.ValidationField("resource_id", "resource_id is required"))
		return
	}

	start, err := httputil.ParseTime("start_time", query.Get("start_time"))
	if err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}
	end, err := httputil.ParseTime("end_time", query.Get("end_time"))
	if err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	check, err := h.service.CheckAvailability(r.Context(), resourceID, start, end)
	if err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, check); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckAvailability", "operation", "WriteSuccess", "error", err)
	}
}

// ResourceAvailability defaults to today when start_date is omitted and to
// start_date when end_date is omitted.
func (h *BookingHandler) ResourceAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := middleware.RequireActor(r); err != nil {
		h.writeError(w, "ResourceAvailability", err)
		return
	}

	query := r.URL.Query()
	startDate := h.now().UTC()
	if v := query.Get("start_date"); v != "" {
		d, err := httputil.ParseDate("start_date", v)
		if err != nil {
			h.writeError(w, "ResourceAvailability", err)
			return
		}
		startDate = d
	}
	endDate := startDate
	if v := query.Get("end_date"); v != "" {
		d, err := httputil.ParseDate("end_date", v)
		if err != nil {
			h.writeError(w, "ResourceAvailability", err)
			return
		}
		endDate = d
	}

	availability, err := h.service.ResourceAvailability(r.Context(), ps.ByName("id"), startDate, endDate)
	if err != nil {
		h.writeError(w, "ResourceAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "ResourceAvailability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/availability", h.CheckAvailability)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PATCH("/api/v1/bookings/id/:id", h.Update)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/approve", h.Approve)
	router.POST("/api/v1/bookings/id/:id/reject", h.Reject)
	router.GET("/api/v1/resources/id/:id/availability", h.ResourceAvailability)
}
