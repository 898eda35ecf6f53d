package handler

import (
	"github.com/Riddimental/Backend-Noctra/pkg/middleware"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler of the API
type Handlers struct {
	Profile     *ProfileHandler
	Club        *ClubHandler
	Post        *PostHandler
	Feed        *FeedHandler
	Event       *EventHandler
	Reservation *ReservationHandler
	Health      *HealthHandler
}

// RouterConfig carries the cross-cutting pieces of the router
type RouterConfig struct {
	JWT     *middleware.JWTConfig
	Audit   *middleware.AuditLogger // nil disables auditing
	Metrics *telemetry.Metrics
	// PurchaseLimit guards ticket purchases when set
	PurchaseLimit gin.HandlerFunc
	// CORSOrigins enables CORS when non-empty
	CORSOrigins []string
	// MediaRoot is served under MediaURL when both are set
	MediaRoot string
	MediaURL  string
}

// NewRouter builds the gin engine with middleware and /api/v1 routes
func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), telemetry.GinMiddleware(), telemetry.InFlight(cfg.Metrics))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	}

	r.GET("/health", h.Health.Health)
	if cfg.MediaRoot != "" && cfg.MediaURL != "" {
		r.Static(cfg.MediaURL, cfg.MediaRoot)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.JWTMiddleware(cfg.JWT))
	if cfg.Audit != nil {
		api.Use(middleware.AuditMiddleware(cfg.Audit))
	}

	profiles := api.Group("/profiles")
	{
		profiles.POST("", h.Profile.Create)
		profiles.GET("/me", h.Profile.Me)
		profiles.PATCH("/me", h.Profile.UpdateMe)
		profiles.POST("/me/vip", h.Profile.SubscribeVIP)
		profiles.GET("/me/tickets", h.Event.MyTickets)
		profiles.GET("/:id", h.Profile.Get)
		profiles.GET("/:id/followers", h.Profile.Followers)
		profiles.GET("/:id/following", h.Profile.Following)
	}

	api.POST("/follows", h.Profile.Follow)
	api.DELETE("/follows", h.Profile.Unfollow)

	clubs := api.Group("/clubs")
	{
		clubs.POST("", h.Club.Create)
		clubs.GET("/:id", h.Club.Get)
		clubs.GET("/:id/admins", h.Club.ListAdmins)
		clubs.POST("/:id/admins", h.Club.AddAdmin)
		clubs.DELETE("/:id/admins/:user_id", h.Club.RemoveAdmin)
		clubs.GET("/:id/followers", h.Profile.ClubFollowers)
		clubs.GET("/:id/events", h.Event.List)
		clubs.POST("/:id/events", h.Event.Create)
		clubs.GET("/:id/reservations", h.Reservation.List)
	}

	posts := api.Group("/posts")
	{
		posts.POST("", h.Post.Create)
		posts.GET("/:id", h.Post.Get)
		posts.PATCH("/:id", h.Post.Edit)
		posts.DELETE("/:id", h.Post.Delete)
		posts.POST("/:id/tags", h.Post.AddTag)
		posts.DELETE("/:id/tags/:tag", h.Post.RemoveTag)
		posts.GET("/:id/likes", h.Post.CountLikes)
		posts.POST("/:id/likes", h.Post.Like)
		posts.DELETE("/:id/likes", h.Post.Unlike)
		posts.GET("/:id/comments", h.Post.ListComments)
		posts.POST("/:id/comments", h.Post.Comment)
		posts.POST("/:id/media", h.Post.AttachMedia)
	}

	api.GET("/feed", h.Feed.Read)

	purchase := []gin.HandlerFunc{h.Event.Purchase}
	if cfg.PurchaseLimit != nil {
		purchase = append([]gin.HandlerFunc{cfg.PurchaseLimit}, purchase...)
	}

	events := api.Group("/events")
	{
		events.GET("/:id", h.Event.Get)
		events.POST("/:id/tickets", purchase...)
		events.POST("/:id/reservations", h.Event.Reserve)
	}
	api.POST("/tickets/redeem", h.Event.Redeem)

	reservations := api.Group("/reservations")
	{
		reservations.GET("/:id", h.Reservation.Get)
		reservations.POST("/:id/approve", h.Reservation.Approve)
		reservations.POST("/:id/reject", h.Reservation.Reject)
	}

	return r
}
