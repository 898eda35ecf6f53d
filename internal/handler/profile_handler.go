package handler

import (
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/dto"
	"github.com/Riddimental/Backend-Noctra/internal/service"
	"github.com/Riddimental/Backend-Noctra/pkg/middleware"
	"github.com/Riddimental/Backend-Noctra/pkg/response"
	"github.com/gin-gonic/gin"
)

// ProfileHandler handles profile and follow requests
type ProfileHandler struct {
	graph service.GraphService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(graph service.GraphService) *ProfileHandler {
	return &ProfileHandler{graph: graph}
}

// Create handles POST /profiles - creates the caller's profile
func (h *ProfileHandler) Create(c *gin.Context) {
	ctx, span := startSpan(c, "handler.profile.create")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	dob, err := dto.ParseDate("date_of_birth", req.DateOfBirth)
	if err != nil {
		fail(c, span, err)
		return
	}

	p, err := h.graph.CreateProfile(ctx, service.CreateProfileInput{
		UserID:      userID,
		Username:    req.Username,
		Role:        domain.Role(req.Role),
		Bio:         req.Bio,
		DateOfBirth: dob,
	})
	if err != nil {
		fail(c, span, err)
		return
	}
	middleware.SetAuditResourceID(c, p.ID)
	c.JSON(http.StatusCreated, response.Success(dto.NewProfileResponse(p, time.Now())))
}

// Me handles GET /profiles/me
func (h *ProfileHandler) Me(c *gin.Context) {
	ctx, span := startSpan(c, "handler.profile.me")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewProfileResponse(p, time.Now())))
}

// Get handles GET /profiles/:id
func (h *ProfileHandler) Get(c *gin.Context) {
	ctx, span := startSpan(c, "handler.profile.get")
	defer span.End()

	p, err := h.graph.GetProfile(ctx, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewProfileResponse(p, time.Now())))
}

// UpdateMe handles PATCH /profiles/me
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	ctx, span := startSpan(c, "handler.profile.update")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	in := service.UpdateProfileInput{
		Username:      req.Username,
		Bio:           req.Bio,
		ProfilePicURL: req.ProfilePicURL,
		CoverPicURL:   req.CoverPicURL,
	}
	if req.DateOfBirth != nil {
		dob, err := dto.ParseDate("date_of_birth", *req.DateOfBirth)
		if err != nil {
			fail(c, span, err)
			return
		}
		in.DateOfBirth = dob
	}

	p, err := h.graph.UpdateProfile(ctx, userID, in)
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewProfileResponse(p, time.Now())))
}

// SubscribeVIP handles POST /profiles/me/vip
func (h *ProfileHandler) SubscribeVIP(c *gin.Context) {
	ctx, span := startSpan(c, "handler.profile.subscribe_vip")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.SubscribeVIPRequest
	if !bindJSON(c, &req) {
		return
	}
	until, err := dto.ParseDate("until", req.Until)
	if err != nil {
		fail(c, span, err)
		return
	}

	sub, err := h.graph.SubscribeVIP(ctx, userID, *until)
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(sub))
}

// Follow handles POST /follows - the caller's profile follows the target
func (h *ProfileHandler) Follow(c *gin.Context) {
	ctx, span := startSpan(c, "handler.follow.create")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	var req dto.FollowRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := req.Target.Owner()
	if err != nil {
		fail(c, span, err)
		return
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}

	edge, err := h.graph.Follow(ctx, p.ID, target)
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(edge))
}

// Unfollow handles DELETE /follows?kind=&id=
func (h *ProfileHandler) Unfollow(c *gin.Context) {
	ctx, span := startSpan(c, "handler.follow.delete")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	var req dto.OwnerRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	target, err := req.Owner()
	if err != nil {
		fail(c, span, err)
		return
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}

	if err := h.graph.Unfollow(ctx, p.ID, target); err != nil {
		fail(c, span, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Followers handles GET /profiles/:id/followers?cursor=&limit=
func (h *ProfileHandler) Followers(c *gin.Context) {
	h.followers(c, domain.UserOwner(c.Param("id")))
}

// ClubFollowers handles GET /clubs/:id/followers?cursor=&limit=
func (h *ProfileHandler) ClubFollowers(c *gin.Context) {
	ctx, span := startSpan(c, "handler.club.followers")
	defer span.End()

	club, err := h.graph.GetClub(ctx, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}
	h.followers(c, domain.ClubOwner(club.ProfileID))
}

func (h *ProfileHandler) followers(c *gin.Context, target domain.Owner) {
	ctx, span := startSpan(c, "handler.follow.followers")
	defer span.End()

	limit := listLimit(c)
	ids, more, err := collectPage(h.graph.ListFollowers(ctx, target, c.Query("cursor")), limit)
	if err != nil {
		fail(c, span, err)
		return
	}
	next := ""
	if more {
		next = ids[len(ids)-1]
	}
	c.JSON(http.StatusOK, response.CursorPage(ids, len(ids), next))
}

// Following handles GET /profiles/:id/following?cursor=&limit=. The cursor is
// the last owner of the previous page in kind:id form.
func (h *ProfileHandler) Following(c *gin.Context) {
	ctx, span := startSpan(c, "handler.follow.following")
	defer span.End()

	var after domain.Owner
	if cursor := c.Query("cursor"); cursor != "" {
		kind, id, found := strings.Cut(cursor, ":")
		parsed, err := domain.ParseOwnerKind(kind)
		if !found || err != nil || id == "" {
			fail(c, span, domain.Validation("cursor", "malformed cursor"))
			return
		}
		after = domain.Owner{Kind: parsed, ID: id}
	}

	limit := listLimit(c)
	owners, more, err := collectPage(h.graph.ListFollowing(ctx, c.Param("id"), after), limit)
	if err != nil {
		fail(c, span, err)
		return
	}
	next := ""
	if more {
		next = owners[len(owners)-1].String()
	}
	c.JSON(http.StatusOK, response.CursorPage(owners, len(owners), next))
}

// collectPage takes up to limit items and reports whether more remain
func collectPage[T any](seq iter.Seq2[T, error], limit int) ([]T, bool, error) {
	items := make([]T, 0, limit)
	for v, err := range seq {
		if err != nil {
			return nil, false, err
		}
		if len(items) == limit {
			return items, true, nil
		}
		items = append(items, v)
	}
	return items, false, nil
}
