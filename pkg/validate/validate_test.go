package validate

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

func requireAPIError(t *testing.T, err error, status int, code string) *apierr.Error {
	t.Helper()
	var ae *apierr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, status, ae.Status)
	require.Equal(t, code, ae.Code)
	return ae
}

func TestCheckMethod(t *testing.T) {
	v := New()
	cases := []struct {
		name string
		req  pipeline.Request
		ok   bool
	}{
		{"list", pipeline.Request{Method: pipeline.MethodGet}, true},
		{"create", pipeline.Request{Method: pipeline.MethodPost}, true},
		{"patch collection", pipeline.Request{Method: pipeline.MethodPatch}, false},
		{"delete collection", pipeline.Request{Method: pipeline.MethodDelete}, false},
		{"read one", pipeline.Request{Method: pipeline.MethodGet, ID: pipeline.OneID("1")}, true},
		{"put one", pipeline.Request{Method: pipeline.MethodPut, ID: pipeline.OneID("1")}, true},
		{"post with id", pipeline.Request{Method: pipeline.MethodPost, ID: pipeline.OneID("1")}, false},
		{"unknown method", pipeline.Request{Method: pipeline.Method("TRACE"), ID: pipeline.OneID("1")}, false},
		{"add members", pipeline.Request{Method: pipeline.MethodPost, ID: pipeline.OneID("1"), AboutRelationship: true, Relationship: "friends"}, true},
		{"put relationship", pipeline.Request{Method: pipeline.MethodPut, ID: pipeline.OneID("1"), AboutRelationship: true, Relationship: "friends"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.CheckMethod(&tc.req)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			requireAPIError(t, err, http.StatusMethodNotAllowed, "method_not_allowed")
		})
	}

	err := v.CheckMethod(&pipeline.Request{Method: pipeline.MethodGet, AboutRelationship: true})
	requireAPIError(t, err, http.StatusBadRequest, "invalid_relationship_request")
}

func TestCheckBodyExistence(t *testing.T) {
	v := New()
	body := document.NewRequestBody([]byte(`{"data":null}`))

	require.NoError(t, v.CheckBodyExistence(&pipeline.Request{Method: pipeline.MethodGet}))
	require.NoError(t, v.CheckBodyExistence(&pipeline.Request{Method: pipeline.MethodPost, Body: body}))
	require.NoError(t, v.CheckBodyExistence(&pipeline.Request{Method: pipeline.MethodDelete, AboutRelationship: true, Body: body}))

	requireAPIError(t, v.CheckBodyExistence(&pipeline.Request{Method: pipeline.MethodGet, Body: body}), http.StatusBadRequest, "unexpected_body")
	requireAPIError(t, v.CheckBodyExistence(&pipeline.Request{Method: pipeline.MethodDelete, Body: body}), http.StatusBadRequest, "unexpected_body")
	requireAPIError(t, v.CheckBodyExistence(&pipeline.Request{Method: pipeline.MethodPatch}), http.StatusBadRequest, "missing_body")
}

func TestValidateContentType(t *testing.T) {
	v := New()
	exts := []string{"https://example.com/ext/atomic"}
	ok := []string{
		"application/vnd.api+json",
		`application/vnd.api+json; ext="https://example.com/ext/atomic"`,
		`application/vnd.api+json; profile="https://example.com/profile"`,
	}
	for _, ct := range ok {
		require.NoError(t, v.ValidateContentType(&pipeline.Request{ContentType: ct}, exts), ct)
	}
	bad := []string{
		"",
		"application/json",
		"application/vnd.api+json; charset=utf-8",
		`application/vnd.api+json; ext="https://example.com/ext/other"`,
		"application/vnd.api+json; ext",
	}
	for _, ct := range bad {
		ae := requireAPIError(t, v.ValidateContentType(&pipeline.Request{ContentType: ct}, exts),
			http.StatusUnsupportedMediaType, "unsupported_media_type")
		require.Equal(t, "Content-Type", ae.Source.Header, ct)
	}
}

func TestValidateRequestDocument(t *testing.T) {
	v := New()
	require.NoError(t, v.ValidateRequestDocument(document.NewRequestBody([]byte(`{"data":{"type":"people"},"meta":{}}`))))
	require.NoError(t, v.ValidateRequestDocument(document.NewRequestBody([]byte(`{"data":[]}`))))
	require.NoError(t, v.ValidateRequestDocument(document.NewRequestBody([]byte(`{"data":null}`))))

	cases := map[string]string{
		`{"data":`:                   "",
		`[1,2]`:                      "",
		`{"meta":{}}`:                "/data",
		`{"data":"x"}`:               "/data",
		`{"data":null,"errors":[]}`:  "/errors",
		`{"data":null,"included":1}`: "/included",
	}
	for raw, pointer := range cases {
		err := v.ValidateRequestDocument(document.NewRequestBody([]byte(raw)))
		ae := requireAPIError(t, err, http.StatusBadRequest, "malformed_document")
		require.Equal(t, pointer, ae.Source.Pointer, raw)
	}
	requireAPIError(t, v.ValidateRequestDocument(nil), http.StatusBadRequest, "malformed_document")
}

func TestParseRequestPrimary(t *testing.T) {
	v := New()

	d, err := v.ParseRequestPrimary([]byte(`null`), false)
	require.NoError(t, err)
	require.True(t, d.IsNull())

	d, err = v.ParseRequestPrimary([]byte(`{
		"type":"people","id":"1",
		"attributes":{"name":"Ada","age":36},
		"relationships":{"friends":{"data":[{"type":"people","id":"2"}]},"boss":{"data":null}}
	}`), false)
	require.NoError(t, err)
	r, ok := d.Resource()
	require.True(t, ok)
	require.Equal(t, "1", r.ID)
	require.Equal(t, "Ada", r.Attributes["name"])
	require.Equal(t, float64(36), r.Attributes["age"])
	require.Equal(t, document.ToMany(document.Identifier{Type: "people", ID: "2"}), r.Relationships["friends"].Data)
	require.Equal(t, document.ToOne(nil), r.Relationships["boss"].Data)

	d, err = v.ParseRequestPrimary([]byte(`[{"type":"people","id":"2"},{"type":"people","id":"3"}]`), true)
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())

	_, err = v.ParseRequestPrimary([]byte(`[{"type":"people","id":"2"},{"id":"3"}]`), true)
	ae := requireAPIError(t, err, http.StatusBadRequest, "malformed_document")
	require.Equal(t, "/data/1/type", ae.Source.Pointer)

	_, err = v.ParseRequestPrimary([]byte(`{"type":"people","id":"2","attributes":{}}`), true)
	ae = requireAPIError(t, err, http.StatusBadRequest, "malformed_document")
	require.Equal(t, "/data/attributes", ae.Source.Pointer)

	_, err = v.ParseRequestPrimary([]byte(`{"type":"people","id":2}`), false)
	requireAPIError(t, err, http.StatusBadRequest, "malformed_document")

	_, err = v.ParseRequestPrimary(nil, false)
	requireAPIError(t, err, http.StatusBadRequest, "malformed_document")
}

func peopleRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.NewRegistry()
	require.NoError(t, r.Register(registry.Type{
		Name: "people",
		Fields: []registry.Field{
			{Name: "name", Type: registry.FieldString, Required: true, Rules: "min=1,max=8"},
			{Name: "email", Type: registry.FieldString, Rules: "email"},
			{Name: "age", Type: registry.FieldInteger, Rules: "gte=0"},
		},
		Relationships: []registry.Relationship{
			{Name: "friends", Type: "people", ToMany: true},
		},
	}))
	return r
}

func TestValidateRequestResources(t *testing.T) {
	v := New()
	reg := peopleRegistry(t)

	good := document.One(document.Resource{Type: "people", Attributes: map[string]any{
		"name": "Ada", "email": "ada@example.com", "age": float64(36),
	}})
	require.NoError(t, v.ValidateRequestResources("people", good, reg))

	err := v.ValidateRequestResources("tags", good, reg)
	requireAPIError(t, err, http.StatusConflict, "type_mismatch")

	bad := document.Collection(
		document.Resource{Type: "people", Attributes: map[string]any{"name": "Ada"}},
		document.Resource{Type: "people", Attributes: map[string]any{
			"name":  "Augusta Ada King",
			"age":   1.5,
			"email": "nope",
			"shoe":  42.0,
		}, Relationships: map[string]document.Relationship{
			"friends": {Data: document.ToOne(&document.Identifier{Type: "people", ID: "2"})},
			"pets":    {Data: document.ToMany()},
		}},
	)
	err = v.ValidateRequestResources("people", bad, reg)
	require.Error(t, err)
	errs := apierr.From(err)
	codes := make([]string, 0, len(errs))
	pointers := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Code)
		pointers = append(pointers, e.Source.Pointer)
	}
	require.Equal(t, []string{
		"invalid_attribute_type", "invalid_attribute", "invalid_attribute", "unknown_attribute",
		"invalid_relationship", "unknown_relationship",
	}, codes)
	require.Equal(t, "/data/1/attributes/age", pointers[0])
	require.Equal(t, "/data/1/relationships/pets", pointers[5])
}

func TestValidateRequestResources_NoSchemas(t *testing.T) {
	v := New()
	type plain struct{ pipeline.Registry }
	d := document.One(document.Resource{Type: "people", Attributes: map[string]any{"anything": true}})
	require.NoError(t, v.ValidateRequestResources("people", d, plain{}))
}

func TestMissingRequired(t *testing.T) {
	reg := peopleRegistry(t)
	typ, _ := reg.Type("people")
	errs := MissingRequired(typ, document.Resource{Type: "people", Attributes: map[string]any{"name": nil}}, "/data")
	require.Len(t, errs, 1)
	requireAPIError(t, errors.Join(errs...), http.StatusBadRequest, "missing_attribute")
}
