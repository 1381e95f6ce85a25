package validate

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

// ValidateRequestResources checks every resource of primary against the
// requested type and, when reg carries schemas, against the type's fields
// and relationships. All problems are reported together.
func (v *Validator) ValidateRequestResources(typ string, primary document.Data, reg pipeline.Registry) error {
	var schema *registry.Type
	if s, ok := reg.(Schemas); ok {
		schema, _ = s.Schema(typ)
	}
	many := primary.IsCollection()
	var errs []error
	for i, r := range primary.Resources() {
		pointer := "/data"
		if many {
			pointer = fmt.Sprintf("/data/%d", i)
		}
		if r.Type != typ {
			errs = append(errs, apierr.E(apierr.KindConflict,
				fmt.Sprintf("resource type %q does not match the endpoint type %q", r.Type, typ),
				apierr.WithCode("type_mismatch"),
				apierr.WithPointer(pointer+"/type")))
			continue
		}
		if schema != nil {
			errs = append(errs, v.checkAttributes(schema, r, pointer)...)
			errs = append(errs, checkRelationships(schema, r, pointer)...)
		}
	}
	return errors.Join(errs...)
}

func invalid(pointer, code, detail string) error {
	return apierr.E(apierr.KindResourceInvalid, detail,
		apierr.WithCode(code),
		apierr.WithPointer(pointer))
}

func (v *Validator) checkAttributes(t *registry.Type, r document.Resource, pointer string) []error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(r.Attributes)) {
		val := r.Attributes[name]
		p := pointer + "/attributes/" + name
		f, ok := t.Field(name)
		if !ok {
			errs = append(errs, invalid(p, "unknown_attribute", fmt.Sprintf("%q has no attribute %q", t.Name, name)))
			continue
		}
		if val == nil {
			continue
		}
		if !typeMatches(f.Type, val) {
			errs = append(errs, invalid(p, "invalid_attribute_type", fmt.Sprintf("attribute %q must be of type %s", name, f.Type)))
			continue
		}
		if f.Rules == "" {
			continue
		}
		if err := v.fields.Var(val, f.Rules); err != nil {
			errs = append(errs, invalid(p, "invalid_attribute", fmt.Sprintf("attribute %q does not satisfy %q", name, f.Rules)))
		}
	}
	return errs
}

func checkRelationships(t *registry.Type, r document.Resource, pointer string) []error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(r.Relationships)) {
		rel := r.Relationships[name]
		p := pointer + "/relationships/" + name
		def, ok := t.Relationship(name)
		if !ok {
			errs = append(errs, invalid(p, "unknown_relationship", fmt.Sprintf("%q has no relationship %q", t.Name, name)))
			continue
		}
		if def.ToMany != rel.Data.ToMany {
			want := "to-one"
			if def.ToMany {
				want = "to-many"
			}
			errs = append(errs, invalid(p+"/data", "invalid_relationship", fmt.Sprintf("relationship %q is %s", name, want)))
			continue
		}
		for _, id := range rel.Data.IDs {
			if id.Type != def.Type {
				errs = append(errs, invalid(p+"/data", "invalid_relationship",
					fmt.Sprintf("relationship %q links %q resources, got %q", name, def.Type, id.Type)))
				break
			}
		}
	}
	return errs
}

func typeMatches(t registry.FieldType, v any) bool {
	switch t {
	case registry.FieldString:
		_, ok := v.(string)
		return ok
	case registry.FieldInteger:
		f, ok := v.(float64)
		return ok && f == math.Trunc(f)
	case registry.FieldNumber:
		_, ok := v.(float64)
		return ok
	case registry.FieldBoolean:
		_, ok := v.(bool)
		return ok
	case registry.FieldObject:
		_, ok := v.(map[string]any)
		return ok
	case registry.FieldArray:
		_, ok := v.([]any)
		return ok
	default:
		return true
	}
}

// MissingRequired lists the required fields of t that r does not set.
// Used on create, where the resource must be complete.
func MissingRequired(t *registry.Type, r document.Resource, pointer string) []error {
	var errs []error
	for _, f := range t.Fields {
		if !f.Required {
			continue
		}
		if v, ok := r.Attributes[f.Name]; ok && v != nil {
			continue
		}
		errs = append(errs, invalid(pointer+"/attributes/"+f.Name, "missing_attribute",
			fmt.Sprintf("attribute %q is required", f.Name)))
	}
	return errs
}
