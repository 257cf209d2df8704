package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/render"
	"github.com/Freeeeeet/slot_booking/internal/responder"
	"github.com/Freeeeeet/slot_booking/internal/service"
	"github.com/Freeeeeet/slot_booking/internal/timefmt"
)

// Handler serves the JSON API on top of the services.
type Handler struct {
	providers    *service.ProviderService
	slots        *service.SlotService
	availability *service.AvailabilityService
	bookings     *service.BookingService
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

type registerProviderRequest struct {
	ServiceType string `json:"service_type" binding:"required,max=64"`
	Bio         string `json:"bio" binding:"max=1000"`
}

type publishSlotRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

type bookRequest struct {
	SlotID  int64  `json:"slot_id" binding:"required,gt=0"`
	Urgency string `json:"urgency" binding:"omitempty,urgency"`
}

type availabilityQuery struct {
	ProviderID  int64  `form:"provider_id" binding:"omitempty,gt=0"`
	ServiceType string `form:"service_type"`
	StartDate   string `form:"start_date" binding:"required"`
	EndDate     string `form:"end_date"`
	Preference  string `form:"preferred_time_of_day" binding:"omitempty,preference"`
}

type responderRequest struct {
	Text        string `json:"text" binding:"required,max=500"`
	ServiceType string `json:"service_type"`
}

type responderResponse struct {
	Intent responder.Intent      `json:"intent"`
	Text   string                `json:"text"`
	Query  *responderQueryEcho   `json:"query,omitempty"`
	Slots  []model.AnnotatedSlot `json:"slots,omitempty"`
}

type responderQueryEcho struct {
	ServiceType string           `json:"service_type,omitempty"`
	From        time.Time        `json:"from"`
	To          time.Time        `json:"to"`
	Preference  model.Preference `json:"preferred_time_of_day,omitempty"`
}

// RegisterProvider регистрирует вызывающего как провайдера
func (h *Handler) RegisterProvider(c *gin.Context) {
	var req registerProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}

	provider, err := h.providers.Register(c.Request.Context(), partyID(c), req.ServiceType, req.Bio)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, provider)
}

// PublishSlot publishes a slot for the caller's provider record.
func (h *Handler) PublishSlot(c *gin.Context) {
	var req publishSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}

	provider, ok := h.callerProvider(c)
	if !ok {
		return
	}

	slot, err := h.slots.PublishSlot(c.Request.Context(), provider.ID, req.StartTime, req.EndTime)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// ListMySlots lists the caller's slots, optionally within start_date..end_date.
func (h *Handler) ListMySlots(c *gin.Context) {
	provider, ok := h.callerProvider(c)
	if !ok {
		return
	}

	// обе границы необязательны
	var from, to time.Time
	if raw := c.Query("start_date"); raw != "" {
		var err error
		if from, _, err = timefmt.ParseInstant(raw, h.loc); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		end, dateOnly, err := timefmt.ParseInstant(raw, h.loc)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		if dateOnly {
			end = timefmt.EndOfDay(end)
		}
		to = end
	}

	slots, err := h.slots.ListProviderSlots(c.Request.Context(), &provider.ID, from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": nonNil(slots)})
}

// WeekImage renders the provider's week containing ?date= (default today).
func (h *Handler) WeekImage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid provider id")
		return
	}

	now := h.now().In(h.loc)
	day := now
	if raw := c.Query("date"); raw != "" {
		if day, _, err = timefmt.ParseInstant(raw, h.loc); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	if _, err := h.providers.GetByID(ctx, id); err != nil {
		h.writeError(c, err)
		return
	}

	weekStart := render.WeekStart(day.In(h.loc))
	slots, err := h.slots.ListProviderSlots(ctx, &id, weekStart, weekStart.AddDate(0, 0, 7).Add(-time.Nanosecond))
	if err != nil {
		h.writeError(c, err)
		return
	}

	png, err := render.Week(weekStart, slots, now, h.loc)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Availability answers a free-slot query.
func (h *Handler) Availability(c *gin.Context) {
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}

	from, to, err := timefmt.ParseRange(q.StartDate, q.EndDate, h.loc)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	filter := model.SlotFilter{ServiceType: q.ServiceType, From: from, To: to}
	if q.ProviderID > 0 {
		filter.ProviderID = &q.ProviderID
	}
	pref, _ := model.ParsePreference(q.Preference)

	slots, err := h.availability.QuerySlots(c.Request.Context(), filter, pref)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": nonNil(slots)})
}

// BookSlot books a slot for the caller.
func (h *Handler) BookSlot(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}
	urgency, _ := model.ParseUrgency(req.Urgency)

	appointment, err := h.bookings.BookSlot(c.Request.Context(), partyID(c), req.SlotID, urgency)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appointment)
}

// ListAppointments lists the caller's appointments; ?role=provider lists
// the ones booked with the caller's provider record instead.
func (h *Handler) ListAppointments(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		appointments []*model.Appointment
		err          error
	)
	switch c.DefaultQuery("role", "requester") {
	case "requester":
		appointments, err = h.bookings.ListForRequester(ctx, partyID(c))
	case "provider":
		provider, ok := h.callerProvider(c)
		if !ok {
			return
		}
		appointments, err = h.bookings.ListForProvider(ctx, provider.ID)
	default:
		badRequest(c, "role must be requester or provider")
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": nonNil(appointments)})
}

// GetAppointment returns one appointment visible to the caller.
func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid appointment id")
		return
	}

	ctx := c.Request.Context()
	appointment, err := h.bookings.GetAppointment(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if appointment.RequesterID != partyID(c) {
		provider, err := h.providers.GetByPartyID(ctx, partyID(c))
		if err != nil || provider.ID != appointment.ProviderID {
			// чужие записи выглядят как несуществующие
			h.writeError(c, service.ErrNotFound)
			return
		}
	}
	c.JSON(http.StatusOK, appointment)
}

// Respond runs the keyword responder. Availability questions are answered
// from live data; the responder never books.
func (h *Handler) Respond(c *gin.Context) {
	var req responderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}

	rc := responder.Context{Now: h.now(), Location: h.loc, ServiceType: req.ServiceType}
	reply := responder.Respond(req.Text, rc)

	resp := responderResponse{Intent: reply.Intent, Text: reply.Text}
	if reply.Query != nil {
		slots, err := h.availability.QuerySlots(c.Request.Context(), reply.Query.Filter, reply.Query.Preference)
		if err != nil {
			h.writeError(c, err)
			return
		}
		resp.Text = responder.RenderAvailability(*reply.Query, slots, h.loc)
		resp.Slots = slots
		resp.Query = &responderQueryEcho{
			ServiceType: reply.Query.Filter.ServiceType,
			From:        reply.Query.Filter.From,
			To:          reply.Query.Filter.To,
			Preference:  reply.Query.Preference,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// callerProvider loads the caller's provider record or writes 403.
func (h *Handler) callerProvider(c *gin.Context) (*model.Provider, bool) {
	provider, err := h.providers.GetByPartyID(c.Request.Context(), partyID(c))
	if err != nil {
		if errors.Is(err, service.ErrProviderNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "caller is not registered as a provider"})
			return nil, false
		}
		h.writeError(c, err)
		return nil, false
	}
	return provider, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
