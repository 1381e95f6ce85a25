package pipeline

import (
	"context"
	"encoding/json"

	"github.com/r9s-ai/open-resource-api/pkg/document"
)

// Registry is the read-only view of the resource-type registry the pipeline
// needs. Implementations are shared by concurrent requests and must be safe
// for concurrent reads.
type Registry interface {
	HasType(name string) bool
	URLTemplates() document.URLTemplates
}

// Validator checks and parses requests. Every method reports failures as an
// error; *apierr.Error values are kept as is, anything else is normalized.
type Validator interface {
	CheckMethod(req *Request) error
	CheckBodyExistence(req *Request) error
	ValidateContentType(req *Request, extensions []string) error
	ValidateRequestDocument(body *document.RequestBody) error
	ParseRequestPrimary(data json.RawMessage, aboutRelationship bool) (document.Data, error)
	ValidateRequestResources(typ string, primary document.Data, reg Registry) error
}

// Negotiator picks a response media type from an Accept header.
type Negotiator interface {
	Negotiate(accept string, supported []string) (string, error)
}

// LabelResolver maps a label to the ids it stands for. Returning the zero
// IDs, NullID or an empty IDList() means the label matches nothing.
type LabelResolver interface {
	LabelToIDs(ctx context.Context, typ, label string, reg Registry, frameworkReq any) (IDs, error)
}

// Query is an opaque, method-specific query value built by a Dispatcher.
type Query any

// Dispatcher handles one method kind: Make builds the query, Do runs it and
// writes the outcome into the response (primary, included, meta, status,
// headers).
type Dispatcher interface {
	Make(ctx context.Context, req *Request, reg Registry) (Query, error)
	Do(ctx context.Context, req *Request, res *Response, reg Registry, q Query) error
}

// Dispatchers holds one Dispatcher per method kind. A nil entry makes that
// method kind fail with 405.
type Dispatchers struct {
	Create Dispatcher
	Read   Dispatcher
	Update Dispatcher
	Delete Dispatcher
}

func (d Dispatchers) For(k MethodKind) Dispatcher {
	switch k {
	case KindCreate:
		return d.Create
	case KindRead:
		return d.Read
	case KindUpdate:
		return d.Update
	case KindDelete:
		return d.Delete
	default:
		return nil
	}
}
