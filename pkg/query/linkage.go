package query

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

// cardinality of a relationship: known when the registry has a schema for
// the type. target is the type every linked identifier must have.
type cardinality struct {
	known  bool
	toMany bool
	target string
}

func relationshipOf(reg pipeline.Registry, typ, rel string) (cardinality, error) {
	t := schemaOf(reg, typ)
	if t == nil {
		return cardinality{}, nil
	}
	def, ok := t.Relationship(rel)
	if !ok {
		return cardinality{}, relNotFound(t, rel)
	}
	return cardinality{known: true, toMany: def.ToMany, target: def.Type}, nil
}

func relNotFound(t *registry.Type, rel string) error {
	return apierr.E(apierr.KindNotFound,
		fmt.Sprintf("%q has no relationship %q", t.Name, rel),
		apierr.WithCode("relationship_not_found"))
}

func identifiers(d document.Data) []document.Identifier {
	rs := d.Resources()
	out := make([]document.Identifier, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Identifier())
	}
	return out
}

func identifierResources(ids []document.Identifier) []document.Resource {
	out := make([]document.Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, document.Resource{Type: id.Type, ID: id.ID})
	}
	return out
}

// checkTargets rejects identifiers whose type is not the relationship's
// target type.
func (c cardinality) checkTargets(rel string, ids []document.Identifier) error {
	if !c.known {
		return nil
	}
	for _, id := range ids {
		if id.Type != c.target {
			return apierr.E(apierr.KindConflict,
				fmt.Sprintf("relationship %q links %q resources, got %q", rel, c.target, id.Type),
				apierr.WithCode("relationship_type_mismatch"),
				apierr.WithPointer("/data"))
		}
	}
	return nil
}

func errToOneMembers(rel string) error {
	return apierr.E(apierr.KindForbidden,
		fmt.Sprintf("relationship %q is to-one; members can only be added to or removed from to-many relationships", rel),
		apierr.WithCode("to_one_relationship"))
}

func (b base) updateLinkage(q Query, fn func(cur document.Linkage, set bool) (document.Linkage, error)) error {
	id, err := singleID(q.IDs)
	if err != nil {
		return err
	}
	err = b.store.UpdateLinkage(q.Type, id, q.Relationship, fn)
	if errors.Is(err, ErrNotFound) {
		return notFound(q.Type, id)
	}
	return err
}

func (b base) readLinkage(q Query, res *pipeline.Response, reg pipeline.Registry) error {
	card, err := relationshipOf(reg, q.Type, q.Relationship)
	if err != nil {
		return err
	}
	id, err := singleID(q.IDs)
	if err != nil {
		return err
	}
	r, ok := b.store.Get(q.Type, id)
	if !ok {
		return notFound(q.Type, id)
	}
	rel, set := r.Relationships[q.Relationship]
	switch {
	case !set && card.toMany, set && rel.Data.ToMany:
		res.Primary = document.Collection(identifierResources(rel.Data.IDs)...)
	case !set, len(rel.Data.IDs) == 0:
		res.Primary = document.NullData
	default:
		res.Primary = document.One(identifierResources(rel.Data.IDs)[0])
	}
	return nil
}

// replaceLinkage sets the full linkage of a relationship.
func (b base) replaceLinkage(q Query, req *pipeline.Request, res *pipeline.Response, reg pipeline.Registry) error {
	card, err := relationshipOf(reg, q.Type, q.Relationship)
	if err != nil {
		return err
	}
	var next document.Linkage
	switch {
	case req.Primary.IsCollection():
		if card.known && !card.toMany {
			return apierr.E(apierr.KindResourceInvalid,
				fmt.Sprintf("relationship %q is to-one", q.Relationship),
				apierr.WithCode("invalid_relationship"),
				apierr.WithPointer("/data"))
		}
		ids := identifiers(req.Primary)
		if err := card.checkTargets(q.Relationship, ids); err != nil {
			return err
		}
		next = document.ToMany(ids...)
	default:
		if card.toMany {
			return apierr.E(apierr.KindResourceInvalid,
				fmt.Sprintf("relationship %q is to-many", q.Relationship),
				apierr.WithCode("invalid_relationship"),
				apierr.WithPointer("/data"))
		}
		if r, ok := req.Primary.Resource(); ok {
			id := r.Identifier()
			if err := card.checkTargets(q.Relationship, []document.Identifier{id}); err != nil {
				return err
			}
			next = document.ToOne(&id)
		} else {
			next = document.ToOne(nil)
		}
	}
	if err := b.updateLinkage(q, func(document.Linkage, bool) (document.Linkage, error) { return next, nil }); err != nil {
		return err
	}
	res.Status = http.StatusNoContent
	return nil
}

// addMembers adds identifiers to a to-many relationship. Members already
// present are kept once.
func (b base) addMembers(q Query, req *pipeline.Request, res *pipeline.Response, reg pipeline.Registry) error {
	card, err := relationshipOf(reg, q.Type, q.Relationship)
	if err != nil {
		return err
	}
	if card.known && !card.toMany {
		return errToOneMembers(q.Relationship)
	}
	add := identifiers(req.Primary)
	if err := card.checkTargets(q.Relationship, add); err != nil {
		return err
	}
	err = b.updateLinkage(q, func(cur document.Linkage, set bool) (document.Linkage, error) {
		if set && !cur.ToMany {
			return cur, errToOneMembers(q.Relationship)
		}
		ids := slices.Clone(cur.IDs)
		for _, id := range add {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
		return document.ToMany(ids...), nil
	})
	if err != nil {
		return err
	}
	res.Status = http.StatusNoContent
	return nil
}

// removeMembers removes identifiers from a to-many relationship. Members
// that are not present are ignored.
func (b base) removeMembers(q Query, req *pipeline.Request, res *pipeline.Response, reg pipeline.Registry) error {
	card, err := relationshipOf(reg, q.Type, q.Relationship)
	if err != nil {
		return err
	}
	if card.known && !card.toMany {
		return errToOneMembers(q.Relationship)
	}
	remove := identifiers(req.Primary)
	if err := card.checkTargets(q.Relationship, remove); err != nil {
		return err
	}
	err = b.updateLinkage(q, func(cur document.Linkage, set bool) (document.Linkage, error) {
		if set && !cur.ToMany {
			return cur, errToOneMembers(q.Relationship)
		}
		ids := slices.DeleteFunc(slices.Clone(cur.IDs), func(id document.Identifier) bool {
			return slices.Contains(remove, id)
		})
		return document.ToMany(ids...), nil
	})
	if err != nil {
		return err
	}
	res.Status = http.StatusNoContent
	return nil
}
