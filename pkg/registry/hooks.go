package registry

import (
	"context"
	"fmt"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
)

// Hooks returns the transform hooks driven by field flags: before save,
// writes to read-only fields are rejected; before render, hidden fields
// are dropped.
func (r *Registry) Hooks() pipeline.Hooks {
	return pipeline.Hooks{
		BeforeSave:   r.rejectReadOnly,
		BeforeRender: r.dropHidden,
	}
}

func (r *Registry) rejectReadOnly(_ context.Context, data document.Data, _ pipeline.Registry, _, _ any) (document.Data, error) {
	many := data.IsCollection()
	return data.Map(func(i int, res document.Resource) (document.Resource, error) {
		t, ok := r.Type(res.Type)
		if !ok {
			return res, nil
		}
		for _, f := range t.Fields {
			if _, set := res.Attributes[f.Name]; !set || !f.ReadOnly {
				continue
			}
			pointer := "/data/attributes/" + f.Name
			if many {
				pointer = fmt.Sprintf("/data/%d/attributes/%s", i, f.Name)
			}
			return res, apierr.E(apierr.KindForbidden,
				fmt.Sprintf("attribute %q of %q is read-only", f.Name, t.Name),
				apierr.WithCode("read_only_attribute"),
				apierr.WithPointer(pointer),
			)
		}
		return res, nil
	})
}

func (r *Registry) dropHidden(_ context.Context, data document.Data, _ pipeline.Registry, _, _ any) (document.Data, error) {
	return data.Map(func(_ int, res document.Resource) (document.Resource, error) {
		t, ok := r.Type(res.Type)
		if !ok || len(res.Attributes) == 0 {
			return res, nil
		}
		var out *document.Resource
		for _, f := range t.Fields {
			if !f.Hidden {
				continue
			}
			if _, set := res.Attributes[f.Name]; !set {
				continue
			}
			if out == nil {
				c := res.Clone()
				out = &c
			}
			delete(out.Attributes, f.Name)
		}
		if out == nil {
			return res, nil
		}
		return *out, nil
	})
}
