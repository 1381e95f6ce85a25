package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
)

// HookName identifies a transform point of the pipeline.
type HookName string

const (
	BeforeSave   HookName = "beforeSave"
	BeforeRender HookName = "beforeRender"
)

// Transform is a user hook. It receives the data at its transform point and
// the two opaque framework handles passed to Handle, and returns the data
// to continue with.
type Transform func(ctx context.Context, data document.Data, reg Registry, frameworkReq, frameworkRes any) (document.Data, error)

// Hooks are the transform hooks of a Controller. Nil hooks are identity.
type Hooks struct {
	BeforeSave   Transform
	BeforeRender Transform
}

func (h Hooks) get(name HookName) Transform {
	switch name {
	case BeforeSave:
		return h.BeforeSave
	case BeforeRender:
		return h.BeforeRender
	default:
		return nil
	}
}

// applyTransform runs the hook named name over data. Errors and panics from
// the hook come back as KindHook errors unless the hook already returned an
// *apierr.Error.
func (h Hooks) applyTransform(ctx context.Context, name HookName, data document.Data, reg Registry, fReq, fRes any) (out document.Data, err error) {
	fn := h.get(name)
	if fn == nil {
		return data, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			out, err = data, hookError(name, fmt.Errorf("panic: %v", rec))
		}
	}()
	out, err = fn(ctx, data, reg, fReq, fRes)
	if err != nil {
		return data, hookError(name, err)
	}
	return out, nil
}

func hookError(name HookName, err error) error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apierr.E(apierr.KindHook, fmt.Sprintf("%s hook failed: %v", name, err),
		apierr.WithCode(string(apierr.KindHook)),
		apierr.WithCause(err),
	)
}
