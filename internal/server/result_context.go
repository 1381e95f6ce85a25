package server

import (
	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
)

// Context keys read by the access logger.
const (
	ctxType      = "ora.type"
	ctxLabel     = "ora.label"
	ctxErrors    = "ora.errors"
	ctxErrorCode = "ora.error_code"
)

func setResultContext(c *gin.Context, req *pipeline.Request, res *pipeline.Response) {
	if c == nil {
		return
	}
	if req != nil {
		if req.Type != "" {
			c.Set(ctxType, req.Type)
		}
		if req.AllowLabel {
			c.Set(ctxLabel, true)
		}
	}
	if res == nil || len(res.Errors) == 0 {
		return
	}
	c.Set(ctxErrors, len(res.Errors))
	if code := res.Errors[0].Code; code != "" {
		c.Set(ctxErrorCode, code)
	}
}
