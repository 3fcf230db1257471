package router

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"platerate/internal/config"
	"platerate/internal/handlers"
	"platerate/internal/identity"
	"platerate/internal/middleware"
	"platerate/internal/services"
)

const sessionCookie = "platerate_session"

// Deps is everything the routes need.
type Deps struct {
	Config   *config.Config
	Services *services.Services
	Verifier identity.Verifier
	Limiter  *middleware.RateLimiter
	Logger   *slog.Logger
}

// New builds the engine with middleware and every route registered.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	origins := corsOrigins(d.Config.CORSOrigin)
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: origins[0] != "*",
		MaxAge:           12 * time.Hour,
	}))

	store := cookie.NewStore([]byte(d.Config.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 30 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionCookie, store))

	RegisterRoutes(r, d)
	return r
}

// corsOrigins splits a comma separated list; empty means any origin.
func corsOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	svc := d.Services

	// Handlers
	sessionHandler := handlers.NewSessionHandler(d.Verifier, svc.Users, svc.Notifications, d.Logger)
	carHandler := handlers.NewCarHandler(svc.Watch, svc.Reviews)
	reviewHandler := handlers.NewReviewHandler(svc.Reviews)
	commentHandler := handlers.NewCommentHandler(svc.Comments)
	moderationHandler := handlers.NewModerationHandler(svc.Moderation)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	userHandler := handlers.NewUserHandler(svc.Users, svc.Reviews, svc.Comments)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.LoadUser(d.Verifier, svc.Users, d.Logger))

	// 公共路由 (Public Routes)
	api.POST("/session", sessionHandler.Login)              // 登录
	api.DELETE("/session", sessionHandler.Logout)           // 退出
	api.GET("/cars/:plate", carHandler.Show)                // 车辆详情与点评
	api.GET("/reviews", reviewHandler.List)                 // 点评列表
	api.GET("/reviews/:id", reviewHandler.Show)             // 单条点评
	api.GET("/reviews/:id/comments", commentHandler.Thread) // 评论树
	api.GET("/users/:uid", userHandler.Profile)             // 用户主页

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", sessionHandler.Me)
		authorized.PATCH("/me", sessionHandler.UpdateMe)
		authorized.GET("/me/reviews", reviewHandler.Mine)
		authorized.GET("/me/blocks", moderationHandler.Blocks)
		authorized.POST("/me/opt-out", moderationHandler.OptOut)
		authorized.DELETE("/me/opt-out", moderationHandler.OptIn)

		authorized.GET("/watchlist", carHandler.Watchlist)
		authorized.POST("/watchlist/:plate", carHandler.Watch)
		authorized.DELETE("/watchlist/:plate", carHandler.Unwatch)

		limited := middleware.RateLimit(d.Limiter)
		authorized.POST("/reviews", limited, reviewHandler.Create)
		authorized.POST("/reviews/:id/comments", limited, commentHandler.Create)
		authorized.POST("/comments/:id/vote", limited, commentHandler.Vote)

		authorized.POST("/reviews/:id/flag", moderationHandler.Flag)
		authorized.DELETE("/reviews/:id/flag", moderationHandler.Unflag)
		authorized.POST("/users/:uid/block", moderationHandler.Block)
		authorized.DELETE("/users/:uid/block", moderationHandler.Unblock)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	// 管理路由 (Moderator Routes)
	admin := api.Group("/admin")
	admin.Use(middleware.ModeratorRequired())
	{
		admin.GET("/flagged", moderationHandler.Flagged)
		admin.GET("/reviews/:id/flags", moderationHandler.Flags)
		admin.POST("/reviews/:id/hide", moderationHandler.Hide)
		admin.POST("/reviews/:id/restore", moderationHandler.Restore)
		admin.DELETE("/reviews/:id/flags", moderationHandler.ClearFlags)
	}
}
