package web

import (
	"homeboard/auth"
	"homeboard/internal/session"
	"homeboard/internal/web/api"
	"homeboard/internal/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type WebServer struct {
	router *gin.Engine
}

func NewWebServer(authModule *auth.AuthModule, sessions *session.Manager, rdb *redis.Client, log *logrus.Logger) *WebServer {
	router := gin.Default()

	middlewareManager := middleware.NewMiddlewareManager(authModule)

	api.RegisterAuthRoutes(router, authModule, middlewareManager)
	api.RegisterDeviceRoutes(router, middlewareManager, sessions)
	api.RegisterAutomationRoutes(router, middlewareManager, sessions)
	api.RegisterHistoryRoutes(router, middlewareManager, sessions)
	api.RegisterFeedbackRoutes(router, middlewareManager, rdb, log)
	api.RegisterUserRoutes(router, middlewareManager, authModule)

	return &WebServer{router: router}
}

func (ws *WebServer) Start(addr string) error {
	return ws.router.Run(addr)
}
