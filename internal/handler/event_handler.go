package handler

import (
	"net/http"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/dto"
	"github.com/Riddimental/Backend-Noctra/internal/service"
	"github.com/Riddimental/Backend-Noctra/pkg/middleware"
	"github.com/Riddimental/Backend-Noctra/pkg/response"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey may carry the purchase idempotency key instead of the body
const HeaderIdempotencyKey = "Idempotency-Key"

// EventHandler handles events, ticket sales and reservation requests
type EventHandler struct {
	tickets      service.TicketService
	reservations service.ReservationService
	graph        service.GraphService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(tickets service.TicketService, reservations service.ReservationService, graph service.GraphService) *EventHandler {
	return &EventHandler{tickets: tickets, reservations: reservations, graph: graph}
}

// Create handles POST /clubs/:id/events - club admins only
func (h *EventHandler) Create(c *gin.Context) {
	ctx, span := startSpan(c, "handler.event.create")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	ev, err := h.tickets.CreateEvent(ctx, userID, c.Param("id"), domain.NewEventInput{
		Name:         req.Name,
		StartsAt:     req.StartsAt,
		Price:        req.Price,
		TotalTickets: req.TotalTickets,
	})
	if err != nil {
		fail(c, span, err)
		return
	}
	middleware.SetAuditResourceID(c, ev.ID)
	c.JSON(http.StatusCreated, response.Success(ev))
}

// Get handles GET /events/:id
func (h *EventHandler) Get(c *gin.Context) {
	ctx, span := startSpan(c, "handler.event.get")
	defer span.End()

	ev, err := h.tickets.GetEvent(ctx, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(ev))
}

// Purchase handles POST /events/:id/tickets
func (h *EventHandler) Purchase(c *gin.Context) {
	ctx, span := startSpan(c, "handler.ticket.purchase")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	var req dto.PurchaseTicketRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(HeaderIdempotencyKey)
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}

	eventID := c.Param("id")
	span.SetAttributes(telemetry.EventIDAttr(eventID), telemetry.ProfileIDAttr(p.ID))
	ticket, err := h.tickets.PurchaseTicket(ctx, domain.PurchaseRequest{
		EventID:        eventID,
		ProfileID:      p.ID,
		Price:          req.Price,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		fail(c, span, err)
		return
	}
	middleware.SetAuditResourceID(c, ticket.ID)
	c.JSON(http.StatusCreated, response.Success(ticket))
}

// Redeem handles POST /tickets/redeem - club admins check a code at the door
func (h *EventHandler) Redeem(c *gin.Context) {
	ctx, span := startSpan(c, "handler.ticket.redeem")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.RedeemTicketRequest
	if !bindJSON(c, &req) {
		return
	}

	ticket, err := h.tickets.RedeemTicket(ctx, userID, req.Code)
	if err != nil {
		fail(c, span, err)
		return
	}
	middleware.SetAuditResourceID(c, ticket.ID)
	c.JSON(http.StatusOK, response.Success(ticket))
}

// Reserve handles POST /events/:id/reservations
func (h *EventHandler) Reserve(c *gin.Context) {
	ctx, span := startSpan(c, "handler.reservation.create")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	var req dto.ReservationRequest
	if !bindJSON(c, &req) {
		return
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}

	res, err := h.reservations.CreateReservation(ctx, p.ID, c.Param("id"), domain.ReservationRequest{
		TableNumber:     req.TableNumber,
		GroupSize:       req.GroupSize,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		fail(c, span, err)
		return
	}
	middleware.SetAuditResourceID(c, res.ID)
	c.JSON(http.StatusCreated, response.Success(res))
}

// List handles GET /clubs/:id/events?cursor=&limit=
func (h *EventHandler) List(c *gin.Context) {
	ctx, span := startSpan(c, "handler.event.list")
	defer span.End()

	page, limit := pageRequest(c)
	events, err := h.tickets.ListEvents(ctx, c.Param("id"), page)
	if err != nil {
		fail(c, span, err)
		return
	}
	writePage(c, events, limit, func(e *domain.Event) string { return e.ID })
}

// MyTickets handles GET /profiles/me/tickets?cursor=&limit=
func (h *EventHandler) MyTickets(c *gin.Context) {
	ctx, span := startSpan(c, "handler.ticket.list")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}

	page, limit := pageRequest(c)
	tickets, err := h.tickets.ListTickets(ctx, p.ID, page)
	if err != nil {
		fail(c, span, err)
		return
	}
	writePage(c, tickets, limit, func(t *domain.Ticket) string { return t.ID })
}
