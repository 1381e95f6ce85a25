package registry

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
)

// FieldType is the JSON type an attribute must have.
type FieldType string

const (
	FieldAny     FieldType = ""
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldObject  FieldType = "object"
	FieldArray   FieldType = "array"
)

func (t FieldType) valid() bool {
	switch t {
	case FieldAny, FieldString, FieldInteger, FieldNumber, FieldBoolean, FieldObject, FieldArray:
		return true
	default:
		return false
	}
}

// Field describes one attribute of a resource type.
type Field struct {
	Name     string    `yaml:"name"`
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	// Rules are go-playground/validator tags, e.g. "min=1,max=64" or "email".
	Rules    string `yaml:"rules"`
	ReadOnly bool   `yaml:"read_only"`
	Hidden   bool   `yaml:"hidden"`
}

// Relationship describes one relationship of a resource type.
type Relationship struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	ToMany bool   `yaml:"to_many"`
}

// LabelTarget is what a label resolves to. In YAML it is a scalar (one id),
// a sequence (a list of ids, possibly empty) or null.
type LabelTarget struct {
	List bool
	IDs  []string
}

func (l *LabelTarget) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			*l = LabelTarget{}
			return nil
		}
		*l = LabelTarget{IDs: []string{strings.TrimSpace(n.Value)}}
		return nil
	case yaml.SequenceNode:
		out := LabelTarget{List: true, IDs: make([]string, 0, len(n.Content))}
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: label ids must be scalars", item.Line)
			}
			out.IDs = append(out.IDs, strings.TrimSpace(item.Value))
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: label must be an id, a list of ids or null", n.Line)
	}
}

// Resolve turns the target into request ids.
func (l LabelTarget) Resolve() pipeline.IDs {
	switch {
	case l.List:
		return pipeline.IDList(l.IDs...)
	case len(l.IDs) == 0:
		return pipeline.NullID
	default:
		return pipeline.OneID(l.IDs[0])
	}
}

// Type is a registered resource type, loaded from <name>.yaml.
type Type struct {
	Name          string                 `yaml:"name"`
	Fields        []Field                `yaml:"fields"`
	Relationships []Relationship         `yaml:"relationships"`
	URLs          map[string]string      `yaml:"urls"`
	Labels        map[string]LabelTarget `yaml:"labels"`

	// Path is the file the type was loaded from; empty for registered types.
	Path string `yaml:"-"`
}

// Field returns the field named name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Relationship returns the relationship named name.
func (t *Type) Relationship(name string) (Relationship, bool) {
	for _, r := range t.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return Relationship{}, false
}

func (t *Type) validate() error {
	if err := validateTypeName(t.Name); err != nil {
		return err
	}
	seen := map[string]bool{}
	for i, f := range t.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("type %q: fields[%d].name is required", t.Name, i)
		}
		if f.Name == "id" || f.Name == "type" {
			return fmt.Errorf("type %q: field name %q is reserved", t.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("type %q: duplicate field or relationship %q", t.Name, f.Name)
		}
		seen[f.Name] = true
		if !f.Type.valid() {
			return fmt.Errorf("type %q: field %q has unknown type %q", t.Name, f.Name, f.Type)
		}
		if err := checkRules(f.Type, f.Rules); err != nil {
			return fmt.Errorf("type %q: field %q has invalid rules %q: %v", t.Name, f.Name, f.Rules, err)
		}
	}
	for i, r := range t.Relationships {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("type %q: relationships[%d].name is required", t.Name, i)
		}
		if seen[r.Name] {
			return fmt.Errorf("type %q: duplicate field or relationship %q", t.Name, r.Name)
		}
		seen[r.Name] = true
		if err := validateTypeName(r.Type); err != nil {
			return fmt.Errorf("type %q: relationship %q: %w", t.Name, r.Name, err)
		}
	}
	return nil
}

var rulesChecker = validator.New()

// checkRules compiles a validator tag against a zero value of the decoded
// JSON type. The validator panics on tags it cannot parse, so the panic is
// turned into an error here.
func checkRules(t FieldType, rules string) (err error) {
	if strings.TrimSpace(rules) == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	// A failed validation of the zero value is fine; only parsing counts.
	_ = rulesChecker.Var(t.zero(), rules)
	return nil
}

func (t FieldType) zero() any {
	switch t {
	case FieldInteger, FieldNumber:
		return float64(0)
	case FieldBoolean:
		return false
	case FieldObject:
		return map[string]any{}
	case FieldArray:
		return []any{}
	default:
		return ""
	}
}
