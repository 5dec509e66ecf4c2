package api

import (
	"net/http"

	"homeboard/internal/dispatch"
	"homeboard/internal/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterFeedbackRoutes streams dispatcher feedback notifications to the
// browser over a websocket, one JSON message per notification.
func RegisterFeedbackRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, rdb *redis.Client, log *logrus.Logger) {
	ws := r.Group("/ws")
	ws.Use(middleware.SessionAuth())
	{
		ws.GET("", func(c *gin.Context) {
			userID := c.GetString("user_id")
			conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
			if err != nil {
				log.WithError(err).Warn("websocket upgrade failed")
				return
			}
			defer conn.Close()

			pubsub := rdb.Subscribe(c.Request.Context(), dispatch.FeedbackChannel(userID))
			defer pubsub.Close()

			// Drain client frames so close/ping handling works; the stream
			// is one-directional.
			go func() {
				for {
					if _, _, err := conn.ReadMessage(); err != nil {
						pubsub.Close()
						return
					}
				}
			}()

			for msg := range pubsub.Channel() {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					return
				}
			}
		})
	}
}
