package handler

import (
	"context"
	"net/http"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/dto"
	"github.com/Riddimental/Backend-Noctra/internal/service"
	"github.com/Riddimental/Backend-Noctra/pkg/response"
	"github.com/gin-gonic/gin"
)

// ReservationHandler handles reservation lookups and admin decisions
type ReservationHandler struct {
	reservations service.ReservationService
	graph        service.GraphService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservations service.ReservationService, graph service.GraphService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, graph: graph}
}

// Get handles GET /reservations/:id. The guest and the club's admins may read it.
func (h *ReservationHandler) Get(c *gin.Context) {
	ctx, span := startSpan(c, "handler.reservation.get")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.reservations.GetReservation(ctx, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}
	guest, err := h.graph.GetProfile(ctx, res.ProfileID)
	if err != nil {
		fail(c, span, err)
		return
	}
	if guest.UserID != userID {
		// only admins can list the admin set
		if _, err := h.graph.ListClubAdmins(ctx, userID, res.ClubID); err != nil {
			fail(c, span, err)
			return
		}
	}

	history, err := h.reservations.History(ctx, res.ID)
	if err != nil {
		fail(c, span, err)
		return
	}
	if history == nil {
		history = []*domain.StatusTransition{}
	}
	c.JSON(http.StatusOK, response.Success(dto.ReservationResponse{Reservation: res, History: history}))
}

// Approve handles POST /reservations/:id/approve
func (h *ReservationHandler) Approve(c *gin.Context) {
	h.decide(c, "handler.reservation.approve", h.reservations.ApproveReservation)
}

// Reject handles POST /reservations/:id/reject
func (h *ReservationHandler) Reject(c *gin.Context) {
	h.decide(c, "handler.reservation.reject", h.reservations.RejectReservation)
}

type decision func(ctx context.Context, actorID, reservationID, reason string) (*domain.Reservation, error)

func (h *ReservationHandler) decide(c *gin.Context, spanName string, fn decision) {
	ctx, span := startSpan(c, spanName)
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	res, err := fn(ctx, userID, c.Param("id"), req.Reason)
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(res))
}

// List handles GET /clubs/:id/reservations?status=&cursor=&limit= for club admins
func (h *ReservationHandler) List(c *gin.Context) {
	ctx, span := startSpan(c, "handler.reservation.list")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page, limit := pageRequest(c)
	status := domain.ReservationStatus(c.Query("status"))
	list, err := h.reservations.ListReservations(ctx, userID, c.Param("id"), status, page)
	if err != nil {
		fail(c, span, err)
		return
	}
	writePage(c, list, limit, func(r *domain.Reservation) string { return r.ID })
}
