package markup

import "strings"

// Value is either literal text or an ordered sequence of nested templates
type Value struct {
	text   string
	nested []*Template
	isList bool
}

// Text returns a literal value
func Text(s string) Value {
	return Value{text: s}
}

// Nested returns a value made of nested templates. Literal fragments between
// nested invocations are expressed as string templates (see NewText).
func Nested(templates ...*Template) Value {
	list := make([]*Template, len(templates))
	copy(list, templates)
	return Value{nested: list, isList: true}
}

// IsNested reports whether the value holds nested templates
func (v Value) IsNested() bool {
	return v.isList
}

// Text returns the literal text, empty for nested values
func (v Value) Text() string {
	return v.text
}

// Templates returns copies of the nested templates in order, nil for literal values.
// Editing a copy never changes the owning parameter.
func (v Value) Templates() []*Template {
	if !v.isList {
		return nil
	}
	return v.clone().nested
}

// String rebuilds the value without any separator or name
func (v Value) String() string {
	if !v.isList {
		return v.text
	}
	var sb strings.Builder
	for _, sub := range v.nested {
		sub.writeTo(&sb)
	}
	return sb.String()
}

func (v Value) clone() Value {
	if !v.isList {
		return v
	}
	list := make([]*Template, len(v.nested))
	for i, sub := range v.nested {
		list[i] = sub.Clone()
	}
	return Value{nested: list, isList: true}
}

// Parameter is one name/value/positional triplet of a template
type Parameter struct {
	name  string
	value Value
	index bool
}

// NewParameter creates a parameter. No validation is performed; an empty name is accepted.
func NewParameter(name string, value Value, index bool) *Parameter {
	return &Parameter{
		name:  name,
		value: value,
		index: index,
	}
}

// Name returns the parameter name as given, untrimmed
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter value
func (p *Parameter) Value() Value {
	return p.value
}

// IsIndex reports whether the parameter is positional
func (p *Parameter) IsIndex() bool {
	return p.index
}

// Key returns the trimmed name the parameter is stored under
func (p *Parameter) Key() string {
	return strings.TrimSpace(p.name)
}
