package document

import (
	"encoding/json"
	"maps"
)

// Identifier is a resource linkage object.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Linkage is relationship data: nil for an empty to-one, a slice for a
// to-many. ToMany distinguishes an empty to-many ([]) from an empty to-one.
type Linkage struct {
	ToMany bool
	IDs    []Identifier
}

// ToOne builds to-one linkage; a nil id means an empty relationship.
func ToOne(id *Identifier) Linkage {
	if id == nil {
		return Linkage{}
	}
	return Linkage{IDs: []Identifier{*id}}
}

// ToMany builds to-many linkage.
func ToMany(ids ...Identifier) Linkage {
	out := make([]Identifier, len(ids))
	copy(out, ids)
	return Linkage{ToMany: true, IDs: out}
}

func (l Linkage) MarshalJSON() ([]byte, error) {
	if l.ToMany {
		if l.IDs == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(l.IDs)
	}
	if len(l.IDs) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(l.IDs[0])
}

// Relationship is a named relationship of a resource.
type Relationship struct {
	Data  Linkage           `json:"data"`
	Links map[string]string `json:"links,omitempty"`
}

// Resource is a resource object. Links is filled in at render time from the
// registry's URL templates.
type Resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Links         map[string]string       `json:"links,omitempty"`
	Meta          map[string]any          `json:"meta,omitempty"`
}

// Identifier returns the linkage object for r.
func (r Resource) Identifier() Identifier {
	return Identifier{Type: r.Type, ID: r.ID}
}

// Clone returns a copy of r whose maps can be modified independently.
// Nested attribute values are shared.
func (r Resource) Clone() Resource {
	out := r
	out.Attributes = maps.Clone(r.Attributes)
	out.Links = maps.Clone(r.Links)
	out.Meta = maps.Clone(r.Meta)
	if r.Relationships != nil {
		out.Relationships = make(map[string]Relationship, len(r.Relationships))
		for k, v := range r.Relationships {
			v.Data.IDs = append([]Identifier(nil), v.Data.IDs...)
			v.Links = maps.Clone(v.Links)
			out.Relationships[k] = v
		}
	}
	return out
}
