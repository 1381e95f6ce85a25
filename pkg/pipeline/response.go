package pipeline

import (
	"net/http"
	"strings"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/negotiate"
)

// Media types the pipeline produces. Success bodies are only ever
// MediaType; error bodies may also be JSONMediaType.
const (
	MediaType     = negotiate.APIMediaType
	JSONMediaType = "application/json"
)

// Response accumulates everything the pipeline learns about the response to
// one request. Body is set exactly once, as the last step before Handle
// returns.
type Response struct {
	// ContentType is empty until negotiated.
	ContentType string
	Headers     http.Header
	Status      int

	Primary  document.Data
	Included []document.Resource
	Meta     map[string]any

	Errors []*apierr.Error

	// Body is nil for 204 responses.
	Body *document.Document
}

func newResponse() *Response {
	return &Response{Headers: http.Header{}}
}

// Failed reports whether the response carries errors.
func (r *Response) Failed() bool { return len(r.Errors) > 0 }

// isBareJSON reports whether ct is application/json, ignoring parameters.
func isBareJSON(ct string) bool {
	mt, _, _ := strings.Cut(ct, ";")
	return strings.EqualFold(strings.TrimSpace(mt), JSONMediaType)
}
