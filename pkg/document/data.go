package document

import (
	"encoding/json"
	"errors"
)

// Kind tells which state a Data value is in. The four states are distinct:
// Undefined means nothing was computed yet, Null is an explicit single null
// resource, Single is one resource and Many is a collection (possibly empty).
type Kind uint8

const (
	Undefined Kind = iota
	Null
	Single
	Many
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Single:
		return "single"
	case Many:
		return "collection"
	default:
		return "undefined"
	}
}

// Data is primary data: undefined, null, one resource or a collection.
// The zero value is Undefined.
type Data struct {
	kind Kind
	one  Resource
	many []Resource
}

// NullData is an explicit null primary.
var NullData = Data{kind: Null}

// One wraps a single resource.
func One(r Resource) Data {
	return Data{kind: Single, one: r}
}

// Collection is an explicit set of resources. Collection() with no arguments
// is the empty set, which is not the same as Undefined.
func Collection(rs ...Resource) Data {
	out := make([]Resource, len(rs))
	copy(out, rs)
	return Data{kind: Many, many: out}
}

func (d Data) Kind() Kind { return d.kind }

func (d Data) IsUndefined() bool { return d.kind == Undefined }

func (d Data) IsNull() bool { return d.kind == Null }

func (d Data) IsCollection() bool { return d.kind == Many }

// Resource returns the single resource when d is Single.
func (d Data) Resource() (Resource, bool) {
	if d.kind != Single {
		return Resource{}, false
	}
	return d.one, true
}

// Resources returns the resources d holds: one element for Single, the
// collection for Many and nil otherwise. The slice is a copy.
func (d Data) Resources() []Resource {
	switch d.kind {
	case Single:
		return []Resource{d.one}
	case Many:
		out := make([]Resource, len(d.many))
		copy(out, d.many)
		return out
	default:
		return nil
	}
}

// Len is the number of resources held.
func (d Data) Len() int {
	switch d.kind {
	case Single:
		return 1
	case Many:
		return len(d.many)
	default:
		return 0
	}
}

// Map applies fn to each resource and keeps the shape of d. Undefined and
// Null values are returned unchanged.
func (d Data) Map(fn func(i int, r Resource) (Resource, error)) (Data, error) {
	switch d.kind {
	case Single:
		r, err := fn(0, d.one)
		if err != nil {
			return d, err
		}
		return One(r), nil
	case Many:
		out := make([]Resource, 0, len(d.many))
		for i, r := range d.many {
			nr, err := fn(i, r)
			if err != nil {
				return d, err
			}
			out = append(out, nr)
		}
		return Data{kind: Many, many: out}, nil
	default:
		return d, nil
	}
}

var errUndefinedData = errors.New("document: cannot marshal undefined data")

// MarshalJSON renders Null as null, Single as an object and Many as an
// array. Undefined data must be omitted by the caller.
func (d Data) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case Null:
		return []byte("null"), nil
	case Single:
		return json.Marshal(d.one)
	case Many:
		if d.many == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(d.many)
	default:
		return nil, errUndefinedData
	}
}
