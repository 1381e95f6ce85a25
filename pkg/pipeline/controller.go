// Package pipeline turns an API request into a response document or an
// aggregated error document.
//
// The pipeline performs no I/O of its own. A Controller runs an ordered list
// of stages (request validation, content negotiation, type check, body
// processing, label resolution, dispatch); every stage either continues,
// short-circuits to response assembly, or fails. All failures, including
// panics in collaborators and user hooks, are normalized into apierr values
// and rendered as one error document whose status is the status of the
// first error.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/negotiate"
)

var (
	ErrNilRegistry  = errors.New("pipeline: registry is required")
	ErrNilValidator = errors.New("pipeline: validator is required")
)

// Config wires a Controller to its collaborators.
type Config struct {
	Registry  Registry
	Validator Validator

	// Negotiator defaults to negotiate.Negotiator.
	Negotiator Negotiator

	// Labels defaults to Registry when it implements LabelResolver. When
	// neither is available label-style ids are used as plain ids.
	Labels LabelResolver

	Dispatchers Dispatchers
	Hooks       Hooks

	// SupportedExtensions lists the media type extensions accepted in
	// request bodies. Empty by default.
	SupportedExtensions []string
}

// Controller runs the request pipeline. It is safe for concurrent use as
// long as its collaborators are.
type Controller struct {
	reg        Registry
	validator  Validator
	negotiator Negotiator
	labels     LabelResolver
	dispatch   Dispatchers
	hooks      Hooks
	extensions []string

	stages []Stage
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Registry == nil {
		return nil, ErrNilRegistry
	}
	if cfg.Validator == nil {
		return nil, ErrNilValidator
	}
	c := &Controller{
		reg:        cfg.Registry,
		validator:  cfg.Validator,
		negotiator: cfg.Negotiator,
		labels:     cfg.Labels,
		dispatch:   cfg.Dispatchers,
		hooks:      cfg.Hooks,
		extensions: append([]string(nil), cfg.SupportedExtensions...),
	}
	if c.negotiator == nil {
		c.negotiator = negotiate.Negotiator{}
	}
	if c.labels == nil {
		if lr, ok := cfg.Registry.(LabelResolver); ok {
			c.labels = lr
		}
	}
	c.stages = c.buildStages()
	return c, nil
}

// SupportedExtensions returns the configured body extensions.
func (c *Controller) SupportedExtensions() []string {
	return append([]string(nil), c.extensions...)
}

// StageNames lists the stages in the order Handle runs them.
func (c *Controller) StageNames() []string {
	out := make([]string, 0, len(c.stages))
	for _, st := range c.stages {
		out = append(out, st.Name)
	}
	return out
}

// Handle runs req through the pipeline. frameworkReq and frameworkRes are
// passed unmodified to label resolution and transform hooks. Handle never
// fails: errors end up in the returned Response.
func (c *Controller) Handle(ctx context.Context, req *Request, frameworkReq, frameworkRes any) *Response {
	res := newResponse()
	if req == nil {
		return c.failResponse(res, []any{apierr.E(apierr.KindInternal, "no request to handle")})
	}
	ex := &Exchange{Request: req, Response: res, FrameworkReq: frameworkReq, FrameworkRes: frameworkRes}

	if _, out := runStages(ctx, c.stages, ex); out.Kind == Failed {
		return c.failResponse(res, out.Errors)
	}
	if err := c.assemble(ctx, ex); err != nil {
		return c.failResponse(res, []any{err})
	}
	return res
}

// failResponse normalizes errs onto res and finalizes it as an error
// response. Error bodies are only produced as JSON or the API media type.
func (c *Controller) failResponse(res *Response, errs []any) *Response {
	if len(errs) == 0 {
		errs = []any{nil}
	}
	for _, e := range errs {
		res.Errors = append(res.Errors, apierr.From(e)...)
	}
	if !isBareJSON(res.ContentType) {
		res.ContentType = MediaType
	}
	res.Status = apierr.FirstStatus(res.Errors)
	res.Body = document.NewErrors(res.Errors)
	return res
}

// assemble runs the before-render hook over primary and included data and
// builds the data document. 204 responses get no body.
func (c *Controller) assemble(ctx context.Context, ex *Exchange) error {
	req, res := ex.Request, ex.Response

	primary, err := c.hooks.applyTransform(ctx, BeforeRender, res.Primary, c.reg, ex.FrameworkReq, ex.FrameworkRes)
	if err != nil {
		return err
	}
	res.Primary = primary

	included, err := c.hooks.applyTransform(ctx, BeforeRender, document.Collection(res.Included...), c.reg, ex.FrameworkReq, ex.FrameworkRes)
	if err != nil {
		return err
	}
	res.Included = included.Resources()

	if res.Meta == nil {
		res.Meta = map[string]any{}
	}
	if res.Status == 0 {
		res.Status = 200
	}
	if res.Status != 204 {
		res.Body = document.New(res.Primary, res.Included, res.Meta, c.reg.URLTemplates(), req.URI)
	}
	return nil
}

// ResponseFromExternalError builds an error response for failures raised
// outside the pipeline, e.g. by the hosting framework. It never fails: when
// no media type is acceptable the API media type is used.
func (c *Controller) ResponseFromExternalError(errs any, accept string) *Response {
	return responseFromExternalError(c.negotiator, errs, accept)
}

// ResponseFromExternalError is the Controller-less variant using the default
// negotiator.
func ResponseFromExternalError(errs any, accept string) *Response {
	return responseFromExternalError(negotiate.Negotiator{}, errs, accept)
}

func responseFromExternalError(neg Negotiator, errs any, accept string) *Response {
	res := newResponse()
	res.Headers.Set("Vary", "Accept")
	res.Errors = apierr.From(errs)
	res.Status = apierr.FirstStatus(res.Errors)
	res.Body = document.NewErrors(res.Errors)

	ct, err := safeNegotiate(neg, accept, []string{MediaType, JSONMediaType})
	if err != nil || ct == "" {
		ct = MediaType
	}
	res.ContentType = ct
	return res
}

func safeNegotiate(neg Negotiator, accept string, supported []string) (ct string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ct, err = "", fmt.Errorf("negotiator panicked: %v", rec)
		}
	}()
	return neg.Negotiate(accept, supported)
}
