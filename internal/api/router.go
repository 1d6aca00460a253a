// internal/api/router.go
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tamzrod/reader-provisioner/internal/config"
)

type RouterConfig struct {
	ReaderConfig *ReaderConfigHandler
	Status       *StatusHandler
	CORS         config.CORSConfig
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(cfg.CORS))

	r.GET("/healthz", HealthCheck)

	api := r.Group("/api")
	{
		if h := cfg.ReaderConfig; h != nil {
			api.GET("/reader-config", h.List)
			api.POST("/reader-config", h.Upsert)
			api.GET("/reader-config/:rIndex", h.Get)
			api.PUT("/reader-config/:rIndex", h.Update)
			api.DELETE("/reader-config/:rIndex", h.Delete)
			api.GET("/reader-config/:rIndex/header", h.Header)
		}

		if cfg.Status != nil {
			api.GET("/readers/status", cfg.Status.Readers)
		}
	}

	return r
}

// CORS builds the CORS middleware from security.cors.
// With no configured origins every origin is allowed without credentials.
func CORS(c config.CORSConfig) gin.HandlerFunc {
	methods := c.Methods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}

	cc := cors.Config{
		AllowMethods: methods,
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "X-Admin-Key"},
		MaxAge:       12 * time.Hour,
	}
	if len(c.Origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.Origins
		cc.AllowCredentials = c.Credentials
	}
	return cors.New(cc)
}
