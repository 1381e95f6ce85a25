// Package validate is the default request validator of the pipeline: method
// and body checks, media type checks, request document shape checks,
// primary data parsing and per-type attribute validation.
package validate

import (
	"fmt"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

// Schemas is implemented by registries that carry attribute schemas.
// ValidateRequestResources skips schema checks for registries without it.
type Schemas interface {
	Schema(name string) (*registry.Type, bool)
}

// Validator implements pipeline.Validator.
type Validator struct {
	fields *validator.Validate
}

func New() *Validator {
	return &Validator{fields: validator.New()}
}

var _ pipeline.Validator = (*Validator)(nil)

func methodNotAllowed(req *pipeline.Request, allowed ...pipeline.Method) error {
	allow := make([]string, 0, len(allowed))
	for _, m := range allowed {
		allow = append(allow, string(m))
	}
	return apierr.E(apierr.KindValidation,
		fmt.Sprintf("method %s is not allowed here", req.Method),
		apierr.WithStatus(http.StatusMethodNotAllowed),
		apierr.WithCode("method_not_allowed"),
		apierr.WithMeta("allow", allow),
	)
}

// CheckMethod checks the method against the shape of the request:
// collections take GET and POST, single resources GET, PATCH, PUT and
// DELETE, relationships GET, POST, PATCH and DELETE.
func (v *Validator) CheckMethod(req *pipeline.Request) error {
	var allowed []pipeline.Method
	switch {
	case req.AboutRelationship:
		allowed = []pipeline.Method{pipeline.MethodGet, pipeline.MethodPost, pipeline.MethodPatch, pipeline.MethodDelete}
		if !req.ID.IsSet() || strings.TrimSpace(req.Relationship) == "" {
			return apierr.E(apierr.KindValidation, "relationship requests need a resource id and a relationship name",
				apierr.WithCode("invalid_relationship_request"))
		}
	case req.ID.IsSet():
		allowed = []pipeline.Method{pipeline.MethodGet, pipeline.MethodPatch, pipeline.MethodPut, pipeline.MethodDelete}
	default:
		allowed = []pipeline.Method{pipeline.MethodGet, pipeline.MethodPost}
	}
	if req.Method.Kind() == pipeline.KindUnknown || !slices.Contains(allowed, req.Method) {
		return methodNotAllowed(req, allowed...)
	}
	return nil
}

// CheckBodyExistence requires a body on writes and forbids one on reads.
// Deletes take a body only when removing relationship members.
func (v *Validator) CheckBodyExistence(req *pipeline.Request) error {
	hasBody := req.Body != nil
	var needsBody bool
	switch req.Method {
	case pipeline.MethodPost, pipeline.MethodPatch, pipeline.MethodPut:
		needsBody = true
	case pipeline.MethodDelete:
		needsBody = req.AboutRelationship
	}
	switch {
	case needsBody && !hasBody:
		return apierr.E(apierr.KindValidation,
			fmt.Sprintf("%s requests must carry a request document", req.Method),
			apierr.WithCode("missing_body"))
	case !needsBody && hasBody:
		return apierr.E(apierr.KindValidation,
			fmt.Sprintf("%s requests must not carry a body", req.Method),
			apierr.WithCode("unexpected_body"))
	}
	return nil
}

// ValidateContentType accepts only the API media type, with an optional
// profile parameter and an ext parameter naming supported extensions.
func (v *Validator) ValidateContentType(req *pipeline.Request, extensions []string) error {
	unsupported := func(detail string) error {
		return apierr.E(apierr.KindUnsupportedMedia, detail,
			apierr.WithCode("unsupported_media_type"),
			apierr.WithHeader("Content-Type"))
	}
	ct := strings.TrimSpace(req.ContentType)
	if ct == "" {
		return unsupported(fmt.Sprintf("request documents must be sent as %s", pipeline.MediaType))
	}
	mt, params, err := mime.ParseMediaType(ct)
	if err != nil || mt != pipeline.MediaType {
		return unsupported(fmt.Sprintf("content type %q is not supported, use %s", ct, pipeline.MediaType))
	}
	for k, val := range params {
		switch k {
		case "profile":
		case "ext":
			for _, ext := range strings.Fields(val) {
				if !slices.Contains(extensions, ext) {
					return unsupported(fmt.Sprintf("extension %q is not supported", ext))
				}
			}
		default:
			return unsupported(fmt.Sprintf("media type parameter %q is not allowed", k))
		}
	}
	return nil
}
