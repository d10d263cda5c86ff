// server/internal/api/routes/routes.go
package routes

import (
	"time"

	"pharma-redistribution-api-server/internal/api/handlers"
	"pharma-redistribution-api-server/internal/api/middleware"
	"pharma-redistribution-api-server/internal/auth"
	"pharma-redistribution-api-server/internal/logger"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies are the components the router wires into handlers.
type Dependencies struct {
	Store          store.Store
	Tokens         *auth.TokenManager
	Redistribution *handlers.RedistributionHandler
	Inventory      *handlers.InventoryHandler
	Admin          *handlers.AdminHandler
	WebSocket      *handlers.WebSocketHandler
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Roles allowed on the facility-scoped business routes.
var facilityRoles = []string{"admin", "pharmacist", "manager", models.RoleSuperAdmin}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", logger.RequestIDHeader},
		ExposeHeaders: []string{logger.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinMiddleware(deps.Logger), logger.Recovery(deps.Logger))
	router.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	facilityHandler := &handlers.FacilityHandler{Store: deps.Store}
	authenticate := middleware.Authenticate(deps.Tokens, deps.Store.Users())

	apiV1 := router.Group("/api/v1")
	{
		// WebSocket authenticates with the token query parameter.
		apiV1.GET("/ws", deps.WebSocket.ServeWs)

		// === Superadmin ===
		admin := apiV1.Group("/admin")
		admin.Use(authenticate, middleware.Authorize(models.RoleSuperAdmin))
		{
			admin.GET("/facilities/:id/redistributions", deps.Redistribution.ListFacilityRedistributions)
			admin.POST("/facilities/:id/redistribution-logs/export", deps.Admin.ExportRedistributionLogs)
		}

		// === Facility-scoped business routes ===
		business := apiV1.Group("/")
		business.Use(authenticate, middleware.Authorize(facilityRoles...))
		{
			facilities := business.Group("/facilities")
			{
				facilities.GET("", facilityHandler.GetAllFacilities)
				facilities.GET("/:id", facilityHandler.GetFacilityByID)
			}

			inventory := business.Group("/inventory")
			{
				inventory.GET("", deps.Inventory.GetMyInventory)
				inventory.POST("/receive", deps.Inventory.ReceiveStock)
				inventory.POST("/:id/dispense", deps.Inventory.DispenseStock)
			}

			redistributions := business.Group("/redistributions")
			{
				redistributions.POST("", deps.Redistribution.CreateRedistribution)
				redistributions.GET("", deps.Redistribution.ListRedistributions)
				redistributions.GET("/logs", deps.Redistribution.ListRedistributionLogs)
				redistributions.POST("/:id/approve", deps.Redistribution.ApproveRedistribution)
				redistributions.POST("/:id/decline", deps.Redistribution.DeclineRedistribution)
			}
		}
	}

	return router
}
