package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/open-resource-api/internal/config"
	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
)

// makeHandler adapts a gin request to the pipeline and writes back its
// response. The gin request and response writer are passed to hooks as the
// framework handles.
func makeHandler(cfg *config.Config, ctl *pipeline.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := buildRequest(c, cfg)
		if err != nil {
			abortWithExternalError(c, ctl, err)
			return
		}
		res := ctl.Handle(c.Request.Context(), req, c.Request, c.Writer)
		setResultContext(c, req, res)
		writeResponse(c, res)
	}
}

func buildRequest(c *gin.Context, cfg *config.Config) (*pipeline.Request, error) {
	req := &pipeline.Request{
		Method:            pipeline.ParseMethod(c.Request.Method),
		Type:              c.Param("type"),
		ID:                pipeline.ParseIDs(c.Param("id")),
		AllowLabel:        cfg.API.AllowLabels || queryBool(c, "label"),
		Relationship:      c.Param("rel"),
		AboutRelationship: c.Param("rel") != "",
		ContentType:       c.GetHeader("Content-Type"),
		Accept:            c.GetHeader("Accept"),
		URI:               c.Request.URL.RequestURI(),
		Query:             c.Request.URL.Query(),
	}
	raw, err := readBody(c, cfg.Server.MaxBodyBytes)
	if err != nil {
		return nil, err
	}
	req.Body = document.NewRequestBody(raw)
	return req, nil
}

func queryBool(c *gin.Context, name string) bool {
	v, ok := c.GetQuery(name)
	if !ok {
		return false
	}
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func readBody(c *gin.Context, limit int64) ([]byte, error) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil, nil
	}
	body := c.Request.Body
	if limit > 0 {
		body = http.MaxBytesReader(c.Writer, body, limit)
	}
	raw, err := io.ReadAll(body)
	if err == nil {
		return raw, nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, apierr.New(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			apierr.WithCode("body_too_large"))
	}
	return nil, apierr.E(apierr.KindMalformed, "failed to read request body",
		apierr.WithCode("unreadable_body"),
		apierr.WithCause(err))
}

func abortWithExternalError(c *gin.Context, ctl *pipeline.Controller, errs any) {
	var res *pipeline.Response
	if ctl != nil {
		res = ctl.ResponseFromExternalError(errs, c.GetHeader("Accept"))
	} else {
		res = pipeline.ResponseFromExternalError(errs, c.GetHeader("Accept"))
	}
	setResultContext(c, nil, res)
	writeResponse(c, res)
	c.Abort()
}

func writeResponse(c *gin.Context, res *pipeline.Response) {
	h := c.Writer.Header()
	for k, vs := range res.Headers {
		h[k] = append([]string(nil), vs...)
	}
	if res.Body == nil {
		c.Status(res.Status)
		return
	}
	b, err := json.Marshal(res.Body)
	if err != nil {
		res = pipeline.ResponseFromExternalError(
			apierr.E(apierr.KindInternal, "failed to render response", apierr.WithCause(err)),
			c.GetHeader("Accept"))
		b, _ = json.Marshal(res.Body)
	}
	c.Data(res.Status, res.ContentType, b)
}
