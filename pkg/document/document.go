// Package document holds the resource data model shared by the pipeline and
// its collaborators, and the serializer that turns a finished response into
// its wire document.
//
// A Document is either an error document or a data document, never both.
package document

import (
	"encoding/json"
	"maps"
	"strings"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
)

// Version is the value of the top-level "jsonapi.version" member.
const Version = "1.0"

// Link names understood in URL templates.
const (
	LinkSelf         = "self"
	LinkRelated      = "related"
	LinkRelationship = "relationship"
)

// URLTemplates maps a resource type to its link templates, keyed by link
// name. Templates may contain {type}, {id} and {relationship} placeholders.
type URLTemplates map[string]map[string]string

// Expand fills in the template named link for the given type. ok is false
// when no such template exists.
func (t URLTemplates) Expand(typ, link, id, relationship string) (string, bool) {
	tpl, ok := t[typ][link]
	if !ok || strings.TrimSpace(tpl) == "" {
		return "", false
	}
	return strings.NewReplacer(
		"{type}", typ,
		"{id}", id,
		"{relationship}", relationship,
	).Replace(tpl), true
}

// Document is a finished response document.
type Document struct {
	errors []*apierr.Error

	primary   Data
	included  []Resource
	meta      map[string]any
	templates URLTemplates
	uri       string
}

// NewErrors builds an error document.
func NewErrors(errs []*apierr.Error) *Document {
	out := make([]*apierr.Error, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			out = append(out, e)
		}
	}
	return &Document{errors: out}
}

// New builds a data document. templates may be nil; uri becomes the
// top-level self link when non-empty.
func New(primary Data, included []Resource, meta map[string]any, templates URLTemplates, uri string) *Document {
	return &Document{
		primary:   primary,
		included:  append([]Resource(nil), included...),
		meta:      maps.Clone(meta),
		templates: templates,
		uri:       uri,
	}
}

// IsError reports whether d is an error document.
func (d *Document) IsError() bool { return d != nil && d.errors != nil }

func (d *Document) Errors() []*apierr.Error { return d.errors }

func (d *Document) Primary() Data { return d.primary }

func (d *Document) Included() []Resource { return d.included }

func (d *Document) Meta() map[string]any { return d.meta }

type wireVersion struct {
	Version string `json:"version"`
}

type wireError struct {
	Status string         `json:"status"`
	Code   string         `json:"code,omitempty"`
	Title  string         `json:"title,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Source *apierr.Source `json:"source,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

type wireErrorDocument struct {
	JSONAPI wireVersion `json:"jsonapi"`
	Errors  []wireError `json:"errors"`
}

type wireDataDocument struct {
	JSONAPI  wireVersion       `json:"jsonapi"`
	Links    map[string]string `json:"links,omitempty"`
	Data     *Data             `json:"data,omitempty"`
	Included []Resource        `json:"included,omitempty"`
	Meta     map[string]any    `json:"meta,omitempty"`
}

// MarshalJSON renders the wire document.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d.IsError() {
		out := wireErrorDocument{JSONAPI: wireVersion{Version: Version}, Errors: make([]wireError, 0, len(d.errors))}
		for _, e := range d.errors {
			out.Errors = append(out.Errors, wireError{
				Status: e.StatusText(),
				Code:   e.Code,
				Title:  e.Title,
				Detail: e.Detail,
				Source: e.Source,
				Meta:   e.Meta,
			})
		}
		return json.Marshal(out)
	}

	out := wireDataDocument{JSONAPI: wireVersion{Version: Version}, Meta: d.meta}
	if d.uri != "" {
		out.Links = map[string]string{LinkSelf: d.uri}
	}
	if !d.primary.IsUndefined() {
		p, _ := d.primary.Map(func(_ int, r Resource) (Resource, error) {
			return d.linkResource(r), nil
		})
		out.Data = &p
	}
	for _, r := range d.included {
		out.Included = append(out.Included, d.linkResource(r))
	}
	return json.Marshal(out)
}

// linkResource fills in resource and relationship links from the templates.
// Resources without an id (linkage-only or not yet persisted) get no links.
func (d *Document) linkResource(r Resource) Resource {
	if d.templates == nil || r.ID == "" {
		return r
	}
	r = r.Clone()
	if self, ok := d.templates.Expand(r.Type, LinkSelf, r.ID, ""); ok {
		if r.Links == nil {
			r.Links = map[string]string{}
		}
		r.Links[LinkSelf] = self
	}
	for name, rel := range r.Relationships {
		if u, ok := d.templates.Expand(r.Type, LinkRelationship, r.ID, name); ok {
			if rel.Links == nil {
				rel.Links = map[string]string{}
			}
			rel.Links[LinkSelf] = u
		}
		if u, ok := d.templates.Expand(r.Type, LinkRelated, r.ID, name); ok {
			if rel.Links == nil {
				rel.Links = map[string]string{}
			}
			rel.Links[LinkRelated] = u
		}
		r.Relationships[name] = rel
	}
	return r
}
