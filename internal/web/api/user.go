package api

import (
	"strconv"

	"homeboard/auth"
	"homeboard/internal/web/middleware"
	"homeboard/internal/web/models"

	"github.com/gin-gonic/gin"
)

func RegisterUserRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, authModule *auth.AuthModule) {
	user := r.Group("/user")
	user.Use(middleware.RequireAuth())
	{
		user.POST("/password", func(c *gin.Context) {
			userID, err := strconv.Atoi(c.GetString("user_id"))
			if err != nil {
				c.JSON(400, gin.H{"error": "Invalid user"})
				return
			}
			var req models.ChangePasswordRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request"})
				return
			}
			if err := authModule.ChangePassword(c, userID, req.OldPassword, req.NewPassword); err != nil {
				c.JSON(400, gin.H{"error": err.Error()})
				return
			}
			c.JSON(200, gin.H{"status": "Password changed"})
		})
	}
}
