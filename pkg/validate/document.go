package validate

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
	"github.com/r9s-ai/open-resource-api/pkg/document"
)

var topLevelMembers = map[string]bool{
	"data":     true,
	"included": true,
	"meta":     true,
	"jsonapi":  true,
	"links":    true,
}

func malformed(pointer, detail string) *apierr.Error {
	return apierr.E(apierr.KindMalformed, detail,
		apierr.WithCode("malformed_document"),
		apierr.WithPointer(pointer))
}

// ValidateRequestDocument checks the top-level shape of a request document.
func (v *Validator) ValidateRequestDocument(body *document.RequestBody) error {
	if body == nil {
		return malformed("", "request document is empty")
	}
	if !gjson.ValidBytes(body.Raw) {
		return malformed("", "request body is not valid JSON")
	}
	root := gjson.ParseBytes(body.Raw)
	if !root.IsObject() {
		return malformed("", "request document must be a JSON object")
	}
	var err error
	root.ForEach(func(key, _ gjson.Result) bool {
		if !topLevelMembers[key.String()] {
			err = malformed("/"+key.String(), fmt.Sprintf("top-level member %q is not allowed in request documents", key.String()))
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	data := root.Get("data")
	switch {
	case !data.Exists():
		return malformed("/data", "request document must contain primary data")
	case data.Type != gjson.Null && !data.IsObject() && !data.IsArray():
		return malformed("/data", "primary data must be an object, an array or null")
	}
	if inc := root.Get("included"); inc.Exists() && !inc.IsArray() {
		return malformed("/included", "included must be an array")
	}
	if meta := root.Get("meta"); meta.Exists() && !meta.IsObject() {
		return malformed("/meta", "meta must be an object")
	}
	return nil
}

// ParseRequestPrimary turns the primary data member into resources. For
// relationship requests only resource identifiers are accepted.
func (v *Validator) ParseRequestPrimary(raw json.RawMessage, aboutRelationship bool) (document.Data, error) {
	if len(raw) == 0 {
		return document.Data{}, malformed("/data", "request document must contain primary data")
	}
	data := gjson.ParseBytes(raw)
	switch {
	case data.Type == gjson.Null:
		return document.NullData, nil
	case data.IsArray():
		items := data.Array()
		out := make([]document.Resource, 0, len(items))
		for i, item := range items {
			r, err := parseResource(item, fmt.Sprintf("/data/%d", i), aboutRelationship)
			if err != nil {
				return document.Data{}, err
			}
			out = append(out, r)
		}
		return document.Collection(out...), nil
	case data.IsObject():
		r, err := parseResource(data, "/data", aboutRelationship)
		if err != nil {
			return document.Data{}, err
		}
		return document.One(r), nil
	default:
		return document.Data{}, malformed("/data", "primary data must be an object, an array or null")
	}
}

func parseResource(obj gjson.Result, pointer string, identifierOnly bool) (document.Resource, error) {
	if !obj.IsObject() {
		return document.Resource{}, malformed(pointer, "resource objects must be JSON objects")
	}
	typ := obj.Get("type")
	if typ.Type != gjson.String || typ.String() == "" {
		return document.Resource{}, malformed(pointer+"/type", "resource objects must have a non-empty string type")
	}
	r := document.Resource{Type: typ.String()}
	if id := obj.Get("id"); id.Exists() {
		if id.Type != gjson.String || id.String() == "" {
			return document.Resource{}, malformed(pointer+"/id", "resource ids must be non-empty strings")
		}
		r.ID = id.String()
	}
	if meta := obj.Get("meta"); meta.Exists() {
		m, err := decodeObject(meta, pointer+"/meta")
		if err != nil {
			return document.Resource{}, err
		}
		r.Meta = m
	}

	if identifierOnly {
		if r.ID == "" {
			return document.Resource{}, malformed(pointer+"/id", "resource identifiers must have an id")
		}
		var extra string
		obj.ForEach(func(key, _ gjson.Result) bool {
			switch key.String() {
			case "type", "id", "meta":
				return true
			}
			extra = key.String()
			return false
		})
		if extra != "" {
			return document.Resource{}, malformed(pointer+"/"+extra, fmt.Sprintf("member %q is not allowed in resource identifiers", extra))
		}
		return r, nil
	}

	if attrs := obj.Get("attributes"); attrs.Exists() {
		m, err := decodeObject(attrs, pointer+"/attributes")
		if err != nil {
			return document.Resource{}, err
		}
		r.Attributes = m
	}
	if rels := obj.Get("relationships"); rels.Exists() {
		if !rels.IsObject() {
			return document.Resource{}, malformed(pointer+"/relationships", "relationships must be an object")
		}
		r.Relationships = map[string]document.Relationship{}
		var err error
		rels.ForEach(func(key, val gjson.Result) bool {
			var rel document.Relationship
			rel, err = parseRelationship(val, pointer+"/relationships/"+key.String())
			if err != nil {
				return false
			}
			r.Relationships[key.String()] = rel
			return true
		})
		if err != nil {
			return document.Resource{}, err
		}
	}
	return r, nil
}

func parseRelationship(obj gjson.Result, pointer string) (document.Relationship, error) {
	if !obj.IsObject() {
		return document.Relationship{}, malformed(pointer, "relationship objects must be JSON objects")
	}
	data := obj.Get("data")
	switch {
	case !data.Exists():
		return document.Relationship{}, malformed(pointer+"/data", "relationship objects must contain data")
	case data.Type == gjson.Null:
		return document.Relationship{Data: document.ToOne(nil)}, nil
	case data.IsObject():
		id, err := parseIdentifier(data, pointer+"/data")
		if err != nil {
			return document.Relationship{}, err
		}
		return document.Relationship{Data: document.ToOne(&id)}, nil
	case data.IsArray():
		items := data.Array()
		ids := make([]document.Identifier, 0, len(items))
		for i, item := range items {
			id, err := parseIdentifier(item, fmt.Sprintf("%s/data/%d", pointer, i))
			if err != nil {
				return document.Relationship{}, err
			}
			ids = append(ids, id)
		}
		return document.Relationship{Data: document.ToMany(ids...)}, nil
	default:
		return document.Relationship{}, malformed(pointer+"/data", "relationship data must be an object, an array or null")
	}
}

func parseIdentifier(obj gjson.Result, pointer string) (document.Identifier, error) {
	r, err := parseResource(obj, pointer, true)
	if err != nil {
		return document.Identifier{}, err
	}
	return r.Identifier(), nil
}

func decodeObject(v gjson.Result, pointer string) (map[string]any, error) {
	if !v.IsObject() {
		return nil, malformed(pointer, "must be an object")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(v.Raw), &m); err != nil {
		return nil, malformed(pointer, err.Error())
	}
	return m, nil
}
