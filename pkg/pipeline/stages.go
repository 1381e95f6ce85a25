package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
)

// Stage names, in run order.
const (
	StageCheckMethod  = "check-method"
	StageCheckBody    = "check-body"
	StageNegotiate    = "negotiate"
	StageCheckType    = "check-type"
	StageProcessBody  = "process-body"
	StageResolveLabel = "resolve-label"
	StageInitMeta     = "init-meta"
	StageDispatch     = "dispatch"
)

func (c *Controller) buildStages() []Stage {
	return []Stage{
		{Name: StageCheckMethod, Run: c.checkMethod},
		{Name: StageCheckBody, Run: c.checkBody},
		{Name: StageNegotiate, Run: c.negotiate},
		{Name: StageCheckType, Run: c.checkType},
		{Name: StageProcessBody, Run: c.processBody},
		{Name: StageResolveLabel, Run: c.resolveLabel},
		{Name: StageInitMeta, Run: initMeta},
		{Name: StageDispatch, Run: c.dispatchQuery},
	}
}

func (c *Controller) checkMethod(_ context.Context, ex *Exchange) Outcome {
	return failOn(c.validator.CheckMethod(ex.Request))
}

func (c *Controller) checkBody(_ context.Context, ex *Exchange) Outcome {
	return failOn(c.validator.CheckBodyExistence(ex.Request))
}

// negotiate sets Vary before negotiating: the response depends on Accept
// even when negotiation falls back to a default.
func (c *Controller) negotiate(_ context.Context, ex *Exchange) Outcome {
	ex.Response.Headers.Set("Vary", "Accept")
	ct, err := c.negotiator.Negotiate(ex.Request.Accept, []string{MediaType})
	if err != nil {
		return fail(apierr.E(apierr.KindNegotiation,
			fmt.Sprintf("none of the supported media types (%s) is acceptable", MediaType),
			apierr.WithCode("not_acceptable"),
			apierr.WithHeader("Accept"),
			apierr.WithCause(err),
		))
	}
	ex.Response.ContentType = ct
	return proceed()
}

func (c *Controller) checkType(_ context.Context, ex *Exchange) Outcome {
	if c.reg.HasType(ex.Request.Type) {
		return proceed()
	}
	return fail(apierr.E(apierr.KindNotFound,
		fmt.Sprintf("no resource type %q is registered", ex.Request.Type),
		apierr.WithCode("type_not_found"),
	))
}

func (c *Controller) processBody(ctx context.Context, ex *Exchange) Outcome {
	req := ex.Request
	if req.Body == nil {
		return proceed()
	}
	if err := c.validator.ValidateContentType(req, c.extensions); err != nil {
		return fail(err)
	}
	if err := c.validator.ValidateRequestDocument(req.Body); err != nil {
		return fail(err)
	}
	primary, err := c.validator.ParseRequestPrimary(req.Body.Data(), req.AboutRelationship)
	if err != nil {
		return fail(err)
	}
	if !req.AboutRelationship {
		if err := c.validator.ValidateRequestResources(req.Type, primary, c.reg); err != nil {
			return fail(err)
		}
	}
	primary, err = c.hooks.applyTransform(ctx, BeforeSave, primary, c.reg, ex.FrameworkReq, ex.FrameworkRes)
	if err != nil {
		return fail(err)
	}
	req.Primary = primary
	return proceed()
}

// resolveLabel replaces a label-style id with the ids it stands for. A
// label that resolves to nothing settles the response right away: an empty
// collection for list results, null otherwise.
func (c *Controller) resolveLabel(ctx context.Context, ex *Exchange) Outcome {
	req := ex.Request
	if !req.AllowLabel || req.ID.Kind() != IDsSingle || c.labels == nil {
		return proceed()
	}
	ids, err := c.callLabelResolver(ctx, req, ex.FrameworkReq)
	if err != nil {
		return fail(err)
	}
	req.ID = ids
	if !ids.Empty() {
		return proceed()
	}
	if ids.IsList() {
		ex.Response.Primary = document.Collection()
	} else {
		ex.Response.Primary = document.NullData
	}
	return shortCircuit()
}

func (c *Controller) callLabelResolver(ctx context.Context, req *Request, fReq any) (ids IDs, err error) {
	const name = "labelToIds"
	defer func() {
		if rec := recover(); rec != nil {
			err = hookError(name, fmt.Errorf("panic: %v", rec))
		}
	}()
	ids, err = c.labels.LabelToIDs(ctx, req.Type, strings.TrimSpace(req.ID.Single()), c.reg, fReq)
	if err != nil {
		return IDs{}, hookError(name, err)
	}
	return ids, nil
}

func initMeta(_ context.Context, ex *Exchange) Outcome {
	ex.Response.Meta = map[string]any{}
	return proceed()
}

func (c *Controller) dispatchQuery(ctx context.Context, ex *Exchange) Outcome {
	req, res := ex.Request, ex.Response
	if !res.Primary.IsUndefined() {
		return proceed()
	}
	kind := req.Method.Kind()
	d := c.dispatch.For(kind)
	if d == nil {
		return fail(apierr.E(apierr.KindValidation,
			fmt.Sprintf("method %s is not supported for %q", req.Method, req.Type),
			apierr.WithStatus(http.StatusMethodNotAllowed),
			apierr.WithCode("method_not_allowed"),
		))
	}
	q, err := d.Make(ctx, req, c.reg)
	if err != nil {
		return fail(err)
	}
	return failOn(d.Do(ctx, req, res, c.reg, q))
}
