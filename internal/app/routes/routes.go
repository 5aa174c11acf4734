package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/workshophub/internal/app/controllers"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/models/dto"
	"github.com/yigit/workshophub/internal/middleware"
	"github.com/yigit/workshophub/internal/pkg/websocket"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	workshopController *controllers.WorkshopController,
	liveHandler *websocket.Handler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// Health check endpoint (public)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})

	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.RefreshToken)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/auth/logout", authController.Logout)
		authenticated.GET("/auth/me", authController.Me)

		workshops := authenticated.Group("/workshops")
		{
			// Reads are open to every authenticated user
			workshops.GET("", workshopController.ListWorkshops)
			workshops.GET("/:id", workshopController.GetWorkshop)
			workshops.GET("/:id/votes", workshopController.GetVotingStats)
			if liveHandler != nil {
				workshops.GET("/live", liveHandler.FollowAll)
				workshops.GET("/:id/live", liveHandler.FollowWorkshop)
			}

			lecturerOnly := workshops.Group("")
			lecturerOnly.Use(authMiddleware.RoleRequired(models.RoleLecturer))
			{
				lecturerOnly.POST("", workshopController.CreateWorkshop)
				lecturerOnly.PATCH("/:id/status", workshopController.UpdateStatus)
			}

			studentOnly := workshops.Group("")
			studentOnly.Use(authMiddleware.RoleRequired(models.RoleStudent))
			{
				studentOnly.POST("/:id/vote", workshopController.CastVote)
			}
		}
	}
}
