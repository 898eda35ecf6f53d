package handler

import (
	"net/http"

	"github.com/Riddimental/Backend-Noctra/internal/dto"
	"github.com/Riddimental/Backend-Noctra/internal/service"
	"github.com/Riddimental/Backend-Noctra/pkg/middleware"
	"github.com/Riddimental/Backend-Noctra/pkg/response"
	"github.com/gin-gonic/gin"
)

// ClubHandler handles club and admin set requests
type ClubHandler struct {
	graph service.GraphService
}

// NewClubHandler creates a new ClubHandler
func NewClubHandler(graph service.GraphService) *ClubHandler {
	return &ClubHandler{graph: graph}
}

// Create handles POST /clubs - the caller becomes the creator and first admin
func (h *ClubHandler) Create(c *gin.Context) {
	ctx, span := startSpan(c, "handler.club.create")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateClubRequest
	if !bindJSON(c, &req) {
		return
	}

	club, err := h.graph.CreateClub(ctx, userID, service.CreateClubInput{
		Name:          req.Name,
		MainLocation:  req.MainLocation,
		ContactNumber: req.ContactNumber,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		Address:       req.Address,
	})
	if err != nil {
		fail(c, span, err)
		return
	}
	middleware.SetAuditResourceID(c, club.ID)
	c.JSON(http.StatusCreated, response.Success(club))
}

// Get handles GET /clubs/:id
func (h *ClubHandler) Get(c *gin.Context) {
	ctx, span := startSpan(c, "handler.club.get")
	defer span.End()

	club, err := h.graph.GetClub(ctx, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(club))
}

// AddAdmin handles POST /clubs/:id/admins
func (h *ClubHandler) AddAdmin(c *gin.Context) {
	ctx, span := startSpan(c, "handler.club.add_admin")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.ClubAdminRequest
	if !bindJSON(c, &req) {
		return
	}

	admin, err := h.graph.AddClubAdmin(ctx, userID, c.Param("id"), req.UserID)
	if err != nil {
		fail(c, span, err)
		return
	}
	middleware.SetAuditMetadata(c, map[string]any{"admin_user_id": req.UserID})
	c.JSON(http.StatusCreated, response.Success(admin))
}

// RemoveAdmin handles DELETE /clubs/:id/admins/:user_id
func (h *ClubHandler) RemoveAdmin(c *gin.Context) {
	ctx, span := startSpan(c, "handler.club.remove_admin")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	target := c.Param("user_id")
	if err := h.graph.RemoveClubAdmin(ctx, userID, c.Param("id"), target); err != nil {
		fail(c, span, err)
		return
	}
	middleware.SetAuditMetadata(c, map[string]any{"admin_user_id": target})
	c.Status(http.StatusNoContent)
}

// ListAdmins handles GET /clubs/:id/admins - visible to admins only
func (h *ClubHandler) ListAdmins(c *gin.Context) {
	ctx, span := startSpan(c, "handler.club.list_admins")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	admins, err := h.graph.ListClubAdmins(ctx, userID, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(admins))
}
