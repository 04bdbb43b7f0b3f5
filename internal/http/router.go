package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authkit/internal/server"
	"authkit/internal/token"
)

// NewRouter configura el router de Gin con middlewares, el endpoint de API
// y las rutas aportadas por los plugins.
func NewRouter(logger *zap.Logger, srv *server.Server, tokens *token.Service) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, JSON content-type y claims JWT
	// opcionales para los handlers que los usan.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())
	if tokens != nil {
		r.Use(OptionalJWTMiddleware(tokens))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiH := NewAPIHandler(logger, srv)
	r.GET("/api", apiH.List)
	r.POST("/api/*path", apiH.Call)

	for _, route := range srv.Routes() {
		route(r)
	}
	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
