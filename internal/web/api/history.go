package api

import (
	"homeboard/internal/session"
	"homeboard/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterHistoryRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, sessions *session.Manager) {
	history := r.Group("/history")
	history.Use(middleware.SessionAuth())
	{
		// Most recent window for one device, ascending by timestamp.
		history.GET("/:deviceID", func(c *gin.Context) {
			s, err := sessions.Get(c.GetString("user_id"))
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to open session"})
				return
			}
			c.JSON(200, s.History.WindowFor(c.Param("deviceID")))
		})
	}
}
