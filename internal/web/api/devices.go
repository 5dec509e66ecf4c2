package api

import (
	"errors"

	"homeboard/internal/dispatch"
	"homeboard/internal/models"
	"homeboard/internal/session"
	"homeboard/internal/web/middleware"
	webModels "homeboard/internal/web/models"

	"github.com/gin-gonic/gin"
)

func RegisterDeviceRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, sessions *session.Manager) {
	devices := r.Group("/devices")
	devices.Use(middleware.SessionAuth())
	{
		devices.GET("/", func(c *gin.Context) {
			s, err := sessions.Get(c.GetString("user_id"))
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to open session"})
				return
			}
			c.JSON(200, s.Devices.List())
		})

		// One toggle or slider edit becomes exactly one feed write.
		devices.POST("/:id/command", func(c *gin.Context) {
			s, err := sessions.Get(c.GetString("user_id"))
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to open session"})
				return
			}

			var req webModels.CommandRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request"})
				return
			}
			cmd, ok := buildCommand(req)
			if !ok {
				c.JSON(400, gin.H{"error": "Unknown or incomplete command"})
				return
			}

			deviceID := c.Param("id")
			err = s.Dispatcher.Apply(c, models.Mutation{DeviceID: deviceID, Command: cmd})
			if err != nil {
				var derr *dispatch.DispatchError
				if errors.As(err, &derr) {
					c.JSON(502, gin.H{"error": "Device update failed"})
					return
				}
				c.JSON(400, gin.H{"error": err.Error()})
				return
			}
			c.JSON(202, gin.H{"status": "accepted"})
		})
	}
}

func buildCommand(req webModels.CommandRequest) (models.Command, bool) {
	switch req.Type {
	case "set_on":
		if req.On == nil {
			return nil, false
		}
		return models.SetOn{On: *req.On}, true
	case "set_target_temp":
		if req.Value == nil {
			return nil, false
		}
		return models.SetTargetTemp{Value: *req.Value}, true
	case "set_brightness":
		if req.Level == nil {
			return nil, false
		}
		return models.SetBrightness{Level: *req.Level}, true
	}
	return nil, false
}
