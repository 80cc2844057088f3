package http

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sujalbistaa/whisperwall/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, env *Env) {

	// --- Middleware ---

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	// CORS Middleware
	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*" // Default to allow all for local dev
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Token", KeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.mu.Lock()
			for ip, v := range limiter.visitors {
				if v.Allow() {
					// Idle long enough to have refilled; drop it.
					delete(limiter.visitors, ip)
				}
			}
			limiter.mu.Unlock()
		}
	}()

	// --- API Routes ---

	api := router.Group("/api")
	{
		api.POST("/keys", RateLimitMiddleware(limiter), env.MintKey)

		authed := api.Group("", KeyAuthMiddleware(env.Resolver))
		{
			authed.GET("/me", env.Me)
			authed.GET("/match", env.GetMatch)
			authed.GET("/whispers/:id/replies", env.ListReplies)

			// Writes from banned identities get shadowed here.
			mutating := authed.Group("", ShadowBanMiddleware())
			{
				mutating.POST("/whispers", RateLimitMiddleware(limiter), env.CreateWhisper)
				mutating.POST("/whispers/:id/replies", RateLimitMiddleware(limiter), env.CreateReply)
				mutating.POST("/whispers/:id/report", env.ReportWhisper)
				mutating.POST("/replies/:id/report", env.ReportReply)
			}
		}

		admin := api.Group("/admin", AdminAuthMiddleware())
		{
			admin.GET("/whispers", env.AdminListWhispers)
			admin.POST("/identities/:key/ban", env.AdminBanIdentity)
			admin.DELETE("/whispers/:id", env.AdminDeleteWhisper)
		}
	}

	// --- WebSocket Route ---

	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(env.Hub, c.Writer, c.Request)
	})

	// --- Serve Frontend ---
	// This MUST come AFTER the API routes.
	router.StaticFile("/", "./public/index.html")
}
