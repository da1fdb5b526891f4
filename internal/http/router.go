package http

import (
	"github.com/gin-gonic/gin"
	"github.com/passdeck/passdeck/internal/http/handlers"
	"github.com/passdeck/passdeck/internal/passconfig"
	"github.com/passdeck/passdeck/internal/passes"
	"github.com/passdeck/passdeck/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// RouterDeps carries the collaborators route handlers need.
type RouterDeps struct {
	DB        *gorm.DB
	JWTSecret string
	Resolver  *passconfig.Resolver
	Scheduler *scheduler.Scheduler
	Passes    *passes.Service
	Campaign  handlers.CampaignSweeper
}

// RegisterRoutes mounts the full API surface on the engine.
func RegisterRoutes(engine *gin.Engine, deps RouterDeps) {
	healthHandler := handlers.NewHealthHandler(deps.DB)
	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWTSecret)
	passHandler := handlers.NewPassHandler(deps.DB, deps.Resolver, deps.Scheduler, deps.Passes)
	intentHandler := handlers.NewIntentHandler(deps.DB)
	sellerHandler := handlers.NewSellerHandler(deps.DB)
	profileHandler := handlers.NewProfileHandler(deps.DB)
	templateHandler := handlers.NewTemplateHandler(deps.DB)
	opsHandler := handlers.NewOpsHandler(deps.Scheduler, deps.Campaign)

	engine.GET("/healthz", healthHandler.Check)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/v0/auth/login", authHandler.Login)

	v0 := engine.Group("/v0", AdminAuthMiddleware(deps.JWTSecret))
	{
		v0.POST("/passes", passHandler.Create)
		v0.GET("/passes", passHandler.List)
		v0.GET("/passes/:id", passHandler.Get)
		v0.POST("/passes/:id/reactivate", passHandler.Reactivate)

		v0.GET("/intents", intentHandler.List)
		v0.GET("/intents/:id", intentHandler.Get)

		v0.POST("/sellers", sellerHandler.Create)
		v0.GET("/sellers", sellerHandler.List)
		v0.GET("/sellers/:id", sellerHandler.Get)
		v0.PUT("/sellers/:id", sellerHandler.Update)

		v0.POST("/profiles", profileHandler.Create)
		v0.GET("/profiles", profileHandler.List)
		v0.GET("/profiles/:id", profileHandler.Get)
		v0.PUT("/profiles/:id", profileHandler.Update)

		v0.POST("/templates", templateHandler.Create)
		v0.GET("/templates", templateHandler.List)
		v0.PUT("/templates/:id", templateHandler.Update)

		v0.POST("/ops/sweeps/issuance", opsHandler.TriggerIssuanceSweep)
		v0.POST("/ops/sweeps/campaign", opsHandler.TriggerCampaignSweep)
	}
}
