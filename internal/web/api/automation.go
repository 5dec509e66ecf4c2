package api

import (
	"homeboard/internal/feed"
	"homeboard/internal/session"
	"homeboard/internal/web/middleware"
	webModels "homeboard/internal/web/models"

	"github.com/gin-gonic/gin"
)

func RegisterAutomationRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, sessions *session.Manager) {
	automations := r.Group("/automations")
	automations.Use(middleware.SessionAuth())
	{
		automations.GET("/rules", func(c *gin.Context) {
			s, err := sessions.Get(c.GetString("user_id"))
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to open session"})
				return
			}
			c.JSON(200, s.Rules.List())
		})

		// Rules are create-only: no update or delete routes exist.
		automations.POST("/rules", func(c *gin.Context) {
			s, err := sessions.Get(c.GetString("user_id"))
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to open session"})
				return
			}

			var req webModels.AddRuleRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request"})
				return
			}
			if msg, ok := validateRule(req); !ok {
				// Rejected locally; nothing reaches the feed.
				c.JSON(400, gin.H{"error": msg})
				return
			}

			id, err := s.Feed.Append(c, feed.Rules, map[string]any{
				"name":             req.Name,
				"triggerDevice":    req.TriggerDevice,
				"triggerCondition": req.TriggerCondition,
				"triggerValue":     req.TriggerValue,
				"actionDevice":     req.ActionDevice,
				"actionType":       req.ActionType,
				"actionValue":      req.ActionValue,
			})
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to create rule"})
				return
			}
			c.JSON(201, gin.H{"id": id})
		})
	}
}

// validateRule enforces the creation form's required fields. Rules
// referencing unknown devices are still accepted: dangling references are
// tolerated at evaluation time, not creation time.
func validateRule(req webModels.AddRuleRequest) (string, bool) {
	if req.Name == "" {
		return "Rule name is required", false
	}
	if req.TriggerDevice == "" || req.ActionDevice == "" {
		return "Trigger and action devices are required", false
	}
	switch req.TriggerCondition {
	case ">", "<", "==":
	default:
		return "Trigger condition must be >, < or ==", false
	}
	if req.TriggerValue == "" {
		return "Trigger value is required", false
	}
	switch req.ActionType {
	case "toggle", "set":
	default:
		return "Action type must be toggle or set", false
	}
	if req.ActionValue == "" {
		return "Action value is required", false
	}
	return "", true
}
