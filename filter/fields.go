package filter

import (
	"fmt"
	"sort"
)

// FieldType is the declared type of a record attribute.
type FieldType string

const (
	TypeText    FieldType = "text"
	TypeNumber  FieldType = "number"
	TypeDate    FieldType = "date"
	TypeBoolean FieldType = "boolean"
	TypeList    FieldType = "list"
)

func (t FieldType) IsValid() bool {
	switch t {
	case TypeText, TypeNumber, TypeDate, TypeBoolean, TypeList:
		return true
	}
	return false
}

// Field describes one filterable attribute of an entity.
type Field struct {
	Name       string    `json:"name" yaml:"name"`
	Type       FieldType `json:"type" yaml:"type"`
	Label      string    `json:"label,omitempty" yaml:"label,omitempty"`
	Searchable bool      `json:"searchable,omitempty" yaml:"searchable,omitempty"`
}

// Registry is the static list of filterable fields of one entity.
type Registry struct {
	entity string
	fields []Field
	index  map[string]int
}

// NewRegistry builds a registry, rejecting unnamed, duplicated or untyped fields.
func NewRegistry(entity string, fields ...Field) (*Registry, error) {
	r := &Registry{
		entity: entity,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("entity %s: field name is required", entity)
		}
		if f.Type == "" {
			f.Type = TypeText
		}
		if !f.Type.IsValid() {
			return nil, fmt.Errorf("entity %s: field %s has invalid type %q", entity, f.Name, f.Type)
		}
		if _, ok := r.index[f.Name]; ok {
			return nil, fmt.Errorf("entity %s: duplicate field %s", entity, f.Name)
		}
		if f.Label == "" {
			f.Label = f.Name
		}
		r.index[f.Name] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. Meant for static declarations.
func MustRegistry(entity string, fields ...Field) *Registry {
	r, err := NewRegistry(entity, fields...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Entity() string {
	return r.entity
}

// Fields returns the declared fields in declaration order.
func (r *Registry) Fields() []Field {
	result := make([]Field, len(r.fields))
	copy(result, r.fields)
	return result
}

func (r *Registry) Lookup(name string) (Field, bool) {
	if r == nil {
		return Field{}, false
	}
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// SearchFields returns the names of the fields covered by free-text search.
func (r *Registry) SearchFields() []string {
	names := make([]string, 0)
	for _, f := range r.fields {
		if f.Searchable {
			names = append(names, f.Name)
		}
	}
	return names
}

// Names returns the declared field names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether an operator can be applied to a field of the given type.
func (t FieldType) Supports(op Operator) bool {
	switch op {
	case Equals, NotEquals, IsEmpty, IsNotEmpty, InList:
		return true
	case Contains, NotContains:
		return t == TypeText || t == TypeList
	case StartsWith, EndsWith, MatchesRegex:
		return t == TypeText
	case GreaterThan, LessThan:
		return t == TypeNumber || t == TypeDate
	case IsTrue, IsFalse:
		return t == TypeBoolean
	}
	return false
}
