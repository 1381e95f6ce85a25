package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
	"github.com/r9s-ai/open-resource-api/pkg/registry"
	"github.com/r9s-ai/open-resource-api/pkg/validate"
)

// Query is what the dispatchers of this package build from a request.
type Query struct {
	Type         string
	IDs          pipeline.IDs
	Relationship string
	Include      []string
	Replace      bool
}

// NewDispatchers returns create, read, update and delete dispatchers
// working on s.
func NewDispatchers(s *Store) pipeline.Dispatchers {
	b := base{store: s}
	return pipeline.Dispatchers{
		Create: creator{b},
		Read:   reader{b},
		Update: updater{b},
		Delete: deleter{b},
	}
}

type base struct {
	store *Store
}

// Make builds the Query shared by all dispatchers. Include paths are only
// parsed for reads.
func (base) Make(_ context.Context, req *pipeline.Request, reg pipeline.Registry) (pipeline.Query, error) {
	q := Query{
		Type:    req.Type,
		IDs:     req.ID,
		Replace: req.Method == pipeline.MethodPut,
	}
	if req.AboutRelationship {
		q.Relationship = req.Relationship
		return q, nil
	}
	if req.Method.Kind() != pipeline.KindRead || req.Query == nil {
		return q, nil
	}
	for _, p := range strings.Split(req.Query.Get("include"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			q.Include = append(q.Include, p)
		}
	}
	if t := schemaOf(reg, req.Type); t != nil {
		for _, p := range q.Include {
			if _, ok := t.Relationship(p); !ok {
				return nil, apierr.E(apierr.KindValidation,
					fmt.Sprintf("%q has no relationship %q to include", req.Type, p),
					apierr.WithCode("invalid_include"),
					apierr.WithParameter("include"))
			}
		}
	}
	return q, nil
}

func asQuery(q pipeline.Query) (Query, error) {
	v, ok := q.(Query)
	if !ok {
		return Query{}, apierr.E(apierr.KindInternal, fmt.Sprintf("unexpected query value %T", q))
	}
	return v, nil
}

func schemaOf(reg pipeline.Registry, typ string) *registry.Type {
	s, ok := reg.(validate.Schemas)
	if !ok {
		return nil
	}
	t, _ := s.Schema(typ)
	return t
}

func notFound(typ, id string) error {
	return apierr.E(apierr.KindNotFound,
		fmt.Sprintf("%s %q not found", typ, id),
		apierr.WithCode("not_found"))
}

func singleResource(d document.Data) (document.Resource, error) {
	r, ok := d.Resource()
	if !ok {
		return document.Resource{}, apierr.E(apierr.KindValidation,
			"primary data must be a single resource object",
			apierr.WithCode("single_resource_required"),
			apierr.WithPointer("/data"))
	}
	return r, nil
}

func errNoID() error {
	return apierr.E(apierr.KindValidation,
		"this operation needs a resource id",
		apierr.WithCode("id_required"))
}

func singleID(ids pipeline.IDs) (string, error) {
	if id := ids.Single(); id != "" {
		return id, nil
	}
	return "", errNoID()
}

type creator struct{ base }

func (c creator) Do(_ context.Context, req *pipeline.Request, res *pipeline.Response, reg pipeline.Registry, pq pipeline.Query) error {
	q, err := asQuery(pq)
	if err != nil {
		return err
	}
	if q.Relationship != "" {
		return c.addMembers(q, req, res, reg)
	}
	r, err := singleResource(req.Primary)
	if err != nil {
		return err
	}
	if t := schemaOf(reg, q.Type); t != nil {
		if errs := validate.MissingRequired(t, r, "/data"); len(errs) > 0 {
			return errors.Join(errs...)
		}
	}
	stored, err := c.store.Insert(r)
	if errors.Is(err, ErrExists) {
		return apierr.E(apierr.KindConflict,
			fmt.Sprintf("%s %q already exists", r.Type, r.ID),
			apierr.WithCode("id_exists"),
			apierr.WithPointer("/data/id"))
	}
	if err != nil {
		return err
	}
	if loc, ok := reg.URLTemplates().Expand(stored.Type, document.LinkSelf, stored.ID, ""); ok {
		res.Headers.Set("Location", loc)
	}
	res.Status = http.StatusCreated
	res.Primary = document.One(stored)
	return nil
}

type reader struct{ base }

func (rd reader) Do(_ context.Context, req *pipeline.Request, res *pipeline.Response, reg pipeline.Registry, pq pipeline.Query) error {
	q, err := asQuery(pq)
	if err != nil {
		return err
	}
	if q.Relationship != "" {
		return rd.readLinkage(q, res, reg)
	}

	var primary []document.Resource
	switch q.IDs.Kind() {
	case pipeline.IDsSingle:
		id := q.IDs.Single()
		r, ok := rd.store.Get(q.Type, id)
		if !ok {
			return notFound(q.Type, id)
		}
		primary = []document.Resource{r}
		res.Primary = document.One(r)
	case pipeline.IDsList:
		for _, id := range q.IDs.List() {
			if r, ok := rd.store.Get(q.Type, id); ok {
				primary = append(primary, r)
			}
		}
		res.Primary = document.Collection(primary...)
	case pipeline.IDsNull:
		res.Primary = document.NullData
	default:
		primary = rd.store.List(q.Type)
		res.Primary = document.Collection(primary...)
		if res.Meta == nil {
			res.Meta = map[string]any{}
		}
		res.Meta["total"] = len(primary)
	}
	res.Included = rd.included(primary, q.Include)
	return nil
}

// included resolves the include paths of the primary resources. Resources
// already in primary data and dangling linkage are left out.
func (rd reader) included(primary []document.Resource, paths []string) []document.Resource {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[document.Identifier]bool, len(primary))
	for _, r := range primary {
		seen[r.Identifier()] = true
	}
	var out []document.Resource
	for _, r := range primary {
		for _, p := range paths {
			for _, id := range r.Relationships[p].Data.IDs {
				if seen[id] {
					continue
				}
				seen[id] = true
				if got, ok := rd.store.Get(id.Type, id.ID); ok {
					out = append(out, got)
				}
			}
		}
	}
	return out
}

type updater struct{ base }

func (u updater) Do(_ context.Context, req *pipeline.Request, res *pipeline.Response, reg pipeline.Registry, pq pipeline.Query) error {
	q, err := asQuery(pq)
	if err != nil {
		return err
	}
	if q.Relationship != "" {
		return u.replaceLinkage(q, req, res, reg)
	}
	id, err := singleID(q.IDs)
	if err != nil {
		return err
	}
	r, err := singleResource(req.Primary)
	if err != nil {
		return err
	}
	if r.ID != "" && r.ID != id {
		return apierr.E(apierr.KindConflict,
			fmt.Sprintf("resource id %q does not match the endpoint id %q", r.ID, id),
			apierr.WithCode("id_mismatch"),
			apierr.WithPointer("/data/id"))
	}
	if t := schemaOf(reg, q.Type); t != nil && q.Replace {
		if errs := validate.MissingRequired(t, r, "/data"); len(errs) > 0 {
			return errors.Join(errs...)
		}
	}
	updated, err := u.store.Update(q.Type, id, r, q.Replace)
	if errors.Is(err, ErrNotFound) {
		return notFound(q.Type, id)
	}
	if err != nil {
		return err
	}
	res.Status = http.StatusOK
	res.Primary = document.One(updated)
	return nil
}

type deleter struct{ base }

func (d deleter) Do(_ context.Context, req *pipeline.Request, res *pipeline.Response, reg pipeline.Registry, pq pipeline.Query) error {
	q, err := asQuery(pq)
	if err != nil {
		return err
	}
	if q.Relationship != "" {
		return d.removeMembers(q, req, res, reg)
	}
	ids := q.IDs.List()
	if len(ids) == 0 {
		return errNoID()
	}
	for _, id := range ids {
		if _, ok := d.store.Get(q.Type, id); !ok {
			return notFound(q.Type, id)
		}
	}
	for _, id := range ids {
		d.store.Delete(q.Type, id)
	}
	res.Status = http.StatusNoContent
	return nil
}
