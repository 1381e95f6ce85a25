package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
)

func TestData_StatesAreDistinct(t *testing.T) {
	var undef Data
	require.True(t, undef.IsUndefined())
	require.Equal(t, Undefined, undef.Kind())

	require.True(t, NullData.IsNull())
	require.False(t, NullData.IsUndefined())

	empty := Collection()
	require.True(t, empty.IsCollection())
	require.Equal(t, 0, empty.Len())
	require.NotNil(t, empty.Resources())

	one := One(Resource{Type: "people", ID: "1"})
	r, ok := one.Resource()
	require.True(t, ok)
	require.Equal(t, "1", r.ID)
	require.Len(t, one.Resources(), 1)
}

func TestData_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(NullData)
	require.NoError(t, err)
	require.JSONEq(t, `null`, string(b))

	b, err = json.Marshal(Collection())
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(b))

	_, err = json.Marshal(Data{})
	require.Error(t, err)
}

func TestData_MapKeepsShape(t *testing.T) {
	upper := func(_ int, r Resource) (Resource, error) {
		r.ID = r.ID + "!"
		return r, nil
	}
	d, err := Collection(Resource{Type: "a", ID: "1"}, Resource{Type: "a", ID: "2"}).Map(upper)
	require.NoError(t, err)
	require.True(t, d.IsCollection())
	require.Equal(t, "2!", d.Resources()[1].ID)

	d, err = NullData.Map(upper)
	require.NoError(t, err)
	require.True(t, d.IsNull())

	boom := errors.New("boom")
	_, err = One(Resource{Type: "a"}).Map(func(int, Resource) (Resource, error) { return Resource{}, boom })
	require.ErrorIs(t, err, boom)
}

func TestLinkage_MarshalJSON(t *testing.T) {
	b, _ := json.Marshal(ToOne(nil))
	require.JSONEq(t, `null`, string(b))
	b, _ = json.Marshal(ToMany())
	require.JSONEq(t, `[]`, string(b))
	b, _ = json.Marshal(ToOne(&Identifier{Type: "people", ID: "9"}))
	require.JSONEq(t, `{"type":"people","id":"9"}`, string(b))
}

func TestDocument_ErrorDocument(t *testing.T) {
	doc := NewErrors([]*apierr.Error{
		apierr.E(apierr.KindNotFound, "no such type", apierr.WithCode("type_not_found")),
		nil,
		apierr.E(apierr.KindMalformed, "bad", apierr.WithPointer("/data")),
	})
	require.True(t, doc.IsError())
	require.Len(t, doc.Errors(), 2)

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	res := gjson.ParseBytes(b)
	require.False(t, res.Get("data").Exists())
	require.Equal(t, "404", res.Get("errors.0.status").String())
	require.Equal(t, "type_not_found", res.Get("errors.0.code").String())
	require.Equal(t, "/data", res.Get("errors.1.source.pointer").String())
	require.Equal(t, Version, res.Get("jsonapi.version").String())
}

func TestDocument_DataDocumentLinks(t *testing.T) {
	templates := URLTemplates{
		"people": {
			LinkSelf:         "/people/{id}",
			LinkRelationship: "/people/{id}/relationships/{relationship}",
			LinkRelated:      "/people/{id}/{relationship}",
		},
	}
	person := Resource{
		Type:       "people",
		ID:         "1",
		Attributes: map[string]any{"name": "Ada"},
		Relationships: map[string]Relationship{
			"employer": {Data: ToOne(&Identifier{Type: "orgs", ID: "7"})},
		},
	}
	org := Resource{Type: "orgs", ID: "7"}
	doc := New(One(person), []Resource{org}, map[string]any{"total": 1}, templates, "/people/1")
	require.False(t, doc.IsError())

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	res := gjson.ParseBytes(b)
	require.Equal(t, "/people/1", res.Get("links.self").String())
	require.Equal(t, "/people/1", res.Get("data.links.self").String())
	require.Equal(t, "/people/1/relationships/employer", res.Get("data.relationships.employer.links.self").String())
	require.Equal(t, "/people/1/employer", res.Get("data.relationships.employer.links.related").String())
	require.Equal(t, "7", res.Get("data.relationships.employer.data.id").String())
	require.Equal(t, "orgs", res.Get("included.0.type").String())
	require.False(t, res.Get("included.0.links").Exists())
	require.EqualValues(t, 1, res.Get("meta.total").Int())

	// rendering must not leak links into the caller's resource
	require.Nil(t, person.Links)
	require.Nil(t, person.Relationships["employer"].Links)
}

func TestDocument_EmptyCollectionAndNull(t *testing.T) {
	b, err := json.Marshal(New(Collection(), nil, nil, nil, ""))
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonapi":{"version":"1.0"},"data":[]}`, string(b))

	b, err = json.Marshal(New(NullData, nil, map[string]any{}, nil, ""))
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonapi":{"version":"1.0"},"data":null}`, string(b))
}

func TestRequestBody(t *testing.T) {
	require.Nil(t, NewRequestBody(nil))
	require.Nil(t, NewRequestBody([]byte("  \n")))

	b := NewRequestBody([]byte(`{"data":{"type":"people"}}`))
	require.JSONEq(t, `{"type":"people"}`, string(b.Data()))
	require.Nil(t, NewRequestBody([]byte(`{"meta":{}}`)).Data())
}
