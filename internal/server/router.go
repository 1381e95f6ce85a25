package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/open-resource-api/internal/config"
	"github.com/r9s-ai/open-resource-api/internal/version"
	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

func NewRouter(cfg *config.Config, st *state, reg *registry.Registry, ctl *pipeline.Controller, accessLogger *log.Logger, accessColor bool) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(requestIDMiddleware())
	if cfg.AccessLogEnabled() {
		r.Use(requestLoggerWithColor(accessLogger, accessColor))
	}
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		abortWithExternalError(c, ctl, apierr.E(apierr.KindInternal, "internal server error",
			apierr.WithCause(fmt.Errorf("panic: %v", recovered))))
	}))

	r.NoRoute(func(c *gin.Context) {
		abortWithExternalError(c, ctl, apierr.E(apierr.KindNotFound,
			fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path),
			apierr.WithCode("route_not_found")))
	})
	r.NoMethod(func(c *gin.Context) {
		abortWithExternalError(c, ctl, apierr.New(http.StatusMethodNotAllowed,
			fmt.Sprintf("method %s is not allowed on %s", c.Request.Method, c.Request.URL.Path),
			apierr.WithCode("method_not_allowed")))
	})

	r.GET("/healthz", func(c *gin.Context) {
		last := st.LastReload()
		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"version":    version.Short(),
			"started_at": st.StartedAt().Unix(),
			"types":      reg.ListTypeNames(),
			"last_reload": gin.H{
				"at":      last.At.Unix(),
				"loaded":  last.Loaded,
				"skipped": last.Skipped,
				"error":   last.Err,
			},
		})
	})

	h := makeHandler(cfg, ctl)
	api := r.Group(cfg.Server.BasePath)
	api.GET("/:type", h)
	api.POST("/:type", h)
	api.GET("/:type/:id", h)
	api.PATCH("/:type/:id", h)
	api.PUT("/:type/:id", h)
	api.DELETE("/:type/:id", h)
	api.GET("/:type/:id/relationships/:rel", h)
	api.POST("/:type/:id/relationships/:rel", h)
	api.PATCH("/:type/:id/relationships/:rel", h)
	api.DELETE("/:type/:id/relationships/:rel", h)

	return r
}
