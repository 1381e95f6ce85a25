package pipeline

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/r9s-ai/open-resource-api/pkg/document"
)

// Method is the HTTP method of a request.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPatch  Method = http.MethodPatch
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// ParseMethod normalizes s. Unknown methods are kept so that the method
// check can report them.
func ParseMethod(s string) Method {
	return Method(strings.ToUpper(strings.TrimSpace(s)))
}

// MethodKind is the read/write semantic a Method maps to.
type MethodKind uint8

const (
	KindUnknown MethodKind = iota
	KindCreate
	KindRead
	KindUpdate
	KindDelete
)

func (k MethodKind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindRead:
		return "read"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Kind maps m to its semantic. PUT and PATCH are both updates.
func (m Method) Kind() MethodKind {
	switch m {
	case MethodGet:
		return KindRead
	case MethodPost:
		return KindCreate
	case MethodPatch, MethodPut:
		return KindUpdate
	case MethodDelete:
		return KindDelete
	default:
		return KindUnknown
	}
}

// IDKind tells which state an IDs value is in.
type IDKind uint8

const (
	IDsUnset IDKind = iota
	IDsNull
	IDsSingle
	IDsList
)

// IDs is the id-or-ids of a request: unset, null, one id, or an ordered
// list of ids. A list may be empty. The zero value is unset.
type IDs struct {
	kind   IDKind
	values []string
}

// NullID is an explicit null id, as produced by a label that resolves to
// nothing.
var NullID = IDs{kind: IDsNull}

// OneID wraps a single id.
func OneID(id string) IDs {
	return IDs{kind: IDsSingle, values: []string{id}}
}

// IDList wraps an ordered list of ids. IDList() is the empty list.
func IDList(ids ...string) IDs {
	return IDs{kind: IDsList, values: append(make([]string, 0, len(ids)), ids...)}
}

// ParseIDs turns an id path segment into ids: "" is unset, "a,b" a list.
// Empty members of a list are dropped.
func ParseIDs(raw string) IDs {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return IDs{}
	}
	if !strings.Contains(raw, ",") {
		return OneID(raw)
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return IDList(ids...)
}

func (i IDs) Kind() IDKind { return i.kind }

// IsSet reports whether the request names an identifier at all.
func (i IDs) IsSet() bool { return i.kind == IDsSingle || i.kind == IDsList }

// IsList reports whether i is an ordered list.
func (i IDs) IsList() bool { return i.kind == IDsList }

// Single returns the single id, or "" when i is not IDsSingle.
func (i IDs) Single() string {
	if i.kind != IDsSingle {
		return ""
	}
	return i.values[0]
}

// List returns the ids held by i as a fresh slice.
func (i IDs) List() []string {
	return append([]string(nil), i.values...)
}

// Empty reports whether i resolves to no resources: unset, null, or an
// empty list.
func (i IDs) Empty() bool {
	switch i.kind {
	case IDsSingle:
		return false
	case IDsList:
		return len(i.values) == 0
	default:
		return true
	}
}

func (i IDs) String() string {
	switch i.kind {
	case IDsSingle:
		return i.values[0]
	case IDsList:
		return strings.Join(i.values, ",")
	case IDsNull:
		return "null"
	default:
		return ""
	}
}

// Request is one inbound API request. A Request is owned by a single Handle
// call; only Primary and ID are rewritten by the pipeline.
type Request struct {
	Method Method
	Type   string
	ID     IDs

	// AllowLabel lets ID be a label resolved through the registry.
	AllowLabel bool

	// AboutRelationship marks requests targeting a relationship's linkage
	// rather than full resources; Relationship names it.
	AboutRelationship bool
	Relationship      string

	// Body is nil when the request carried no body.
	Body        *document.RequestBody
	ContentType string
	Accept      string

	URI   string
	Query url.Values

	// Primary is the parsed primary data of Body, after the before-save
	// transform. Undefined when there is no body.
	Primary document.Data
}
