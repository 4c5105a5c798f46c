package markup

import (
	"fmt"
	"iter"
	"strings"
)

// Template is a parsed template invocation or an opaque string fragment
type Template struct {
	title     string
	titleArgs []*Template
	isArg     bool

	// Exactly one body variant is active: text when isText is set, keys/params otherwise.
	isText bool
	text   string
	keys   []string
	params map[string]*Parameter
}

// New creates a template with an empty parameter mapping
func New(title string, titleArgs ...*Template) *Template {
	return &Template{
		title:     title,
		titleArgs: copyTemplates(titleArgs),
		params:    make(map[string]*Parameter),
	}
}

// NewText creates a template whose body is a literal string
func NewText(text string) *Template {
	return &Template{
		isText: true,
		text:   text,
	}
}

// NewWithParams creates a template from parameters in source order, keyed by trimmed name
func NewWithParams(title string, params ...*Parameter) (*Template, error) {
	t := New(title)
	for _, p := range params {
		key := p.Key()
		if _, ok := t.params[key]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateParameter, key)
		}
		t.keys = append(t.keys, key)
		t.params[key] = p
	}
	return t, nil
}

// Title returns the template name
func (t *Template) Title() string {
	return t.title
}

// TitleArgs returns the nested content a computed title was built from
func (t *Template) TitleArgs() []*Template {
	return copyTemplates(t.titleArgs)
}

// SetTitle overwrites the title and title arguments
func (t *Template) SetTitle(title string, titleArgs ...*Template) *Template {
	t.title = title
	t.titleArgs = copyTemplates(titleArgs)
	return t
}

// IsArg reports whether the template is an argument reference ({{{ }}})
func (t *Template) IsArg() bool {
	return t.isArg
}

// SetIsArg marks the template as an argument reference
func (t *Template) SetIsArg(isArg bool) *Template {
	t.isArg = isArg
	return t
}

// IsString reports whether the body is a literal string
func (t *Template) IsString() bool {
	return t.isText
}

// Contains reports whether a parameter is stored under exactly this key
func (t *Template) Contains(name string) (bool, error) {
	if t.isText {
		return false, errTextBody("contains")
	}
	_, ok := t.params[name]
	return ok, nil
}

// Param returns the value of a parameter
func (t *Template) Param(name string) (Value, error) {
	p, err := t.lookup("param", name)
	if err != nil {
		return Value{}, err
	}
	return p.value, nil
}

// Params returns the parameters in mapping order. The sequence can be ranged over repeatedly.
func (t *Template) Params() (iter.Seq[*Parameter], error) {
	if t.isText {
		return nil, errTextBody("params")
	}
	return func(yield func(*Parameter) bool) {
		for _, key := range t.keys {
			if !yield(t.params[key]) {
				return
			}
		}
	}, nil
}

// Names returns the parameter keys in mapping order
func (t *Template) Names() ([]string, error) {
	if t.isText {
		return nil, errTextBody("names")
	}
	names := make([]string, len(t.keys))
	copy(names, t.keys)
	return names, nil
}

// Len returns the number of parameters, zero for string templates
func (t *Template) Len() int {
	return len(t.keys)
}

// StrContains reports whether the literal body contains needle
func (t *Template) StrContains(needle string) (bool, error) {
	if !t.isText {
		return false, errParamBody("str contains")
	}
	return strings.Contains(t.text, needle), nil
}

// Text returns the literal body, empty for parameter templates
func (t *Template) Text() string {
	return t.text
}

// AddParam appends a parameter unless its trimmed name is already present
func (t *Template) AddParam(name string, value Value, index bool) (*Template, error) {
	if t.isText {
		return t, errTextBody("add param")
	}
	key := strings.TrimSpace(name)
	if _, ok := t.params[key]; ok {
		return t, nil
	}
	t.keys = append(t.keys, key)
	t.params[key] = NewParameter(name, value, index)
	return t, nil
}

// AddParamBefore inserts a parameter right before anchor, or appends it when anchor is absent
func (t *Template) AddParamBefore(anchor, name string, value Value, index bool) (*Template, error) {
	return t.addRelative("add param before", anchor, name, value, index, false)
}

// AddParamAfter inserts a parameter right after anchor, or appends it when anchor is absent
func (t *Template) AddParamAfter(anchor, name string, value Value, index bool) (*Template, error) {
	return t.addRelative("add param after", anchor, name, value, index, true)
}

func (t *Template) addRelative(op, anchor, name string, value Value, index, after bool) (*Template, error) {
	if t.isText {
		return t, errTextBody(op)
	}
	if _, ok := t.params[anchor]; !ok {
		return t.AddParam(name, value, index)
	}
	key := strings.TrimSpace(name)
	if _, ok := t.params[key]; ok {
		return t, nil
	}

	anchorKey := strings.TrimSpace(anchor)
	keys := make([]string, 0, len(t.keys)+1)
	for _, k := range t.keys {
		if t.params[k].Key() != anchorKey {
			keys = append(keys, k)
			continue
		}
		if after {
			keys = append(keys, k, key)
		} else {
			keys = append(keys, key, k)
		}
	}

	t.keys = keys
	t.params[key] = NewParameter(name, value, index)
	return t, nil
}

// RemoveParam removes the parameter stored under exactly this key
func (t *Template) RemoveParam(name string) (*Template, error) {
	if t.isText {
		return t, errTextBody("remove param")
	}
	if _, ok := t.params[name]; !ok {
		return t, nil
	}
	delete(t.params, name)
	for i, k := range t.keys {
		if k == name {
			t.keys = append(t.keys[:i:i], t.keys[i+1:]...)
			break
		}
	}
	return t, nil
}

// RenameParam gives a parameter a new name in place, keeping its value and position.
// The renamed parameter becomes a named one; every other parameter keeps its positional flag.
// A different parameter already stored under the new name is dropped.
func (t *Template) RenameParam(oldName, newName string) (*Template, error) {
	if t.isText {
		return t, errTextBody("rename param")
	}
	target, ok := t.params[oldName]
	if !ok {
		return t, nil
	}

	oldKey := strings.TrimSpace(oldName)
	newKey := strings.TrimSpace(newName)
	keys := make([]string, 0, len(t.keys))
	params := make(map[string]*Parameter, len(t.params))
	for _, k := range t.keys {
		p := t.params[k]
		switch {
		case p.Key() == oldKey:
			keys = append(keys, newKey)
			params[newKey] = NewParameter(newName, target.value, false)
		case k == newKey:
		default:
			keys = append(keys, k)
			params[k] = p
		}
	}

	t.keys = keys
	t.params = params
	return t, nil
}

// SetParam inserts a parameter or overwrites the one stored under the trimmed name
func (t *Template) SetParam(name string, value Value, index bool) (*Template, error) {
	if t.isText {
		return t, errTextBody("set param")
	}
	key := strings.TrimSpace(name)
	if _, ok := t.params[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.params[key] = NewParameter(name, value, index)
	return t, nil
}

// SetText replaces the body with a literal string, discarding any parameters
func (t *Template) SetText(text string) *Template {
	t.isText = true
	t.text = text
	t.keys = nil
	t.params = nil
	return t
}

// SetParams replaces a string body with an empty parameter mapping
func (t *Template) SetParams() *Template {
	t.isText = false
	t.text = ""
	t.keys = nil
	t.params = make(map[string]*Parameter)
	return t
}

// StrReplace replaces up to limit occurrences of search in the literal body. A limit of
// zero or less replaces every occurrence; an empty search leaves the body unchanged.
func (t *Template) StrReplace(search, replace string, limit int) (*Template, error) {
	if !t.isText {
		return t, errParamBody("str replace")
	}
	if search == "" {
		return t, nil
	}
	n := limit
	if n <= 0 {
		n = -1
	}
	t.text = strings.Replace(t.text, search, replace, n)
	return t, nil
}

// Clone returns a deep copy of the template
func (t *Template) Clone() *Template {
	c := &Template{
		title:  t.title,
		isArg:  t.isArg,
		isText: t.isText,
		text:   t.text,
	}
	if len(t.titleArgs) > 0 {
		c.titleArgs = make([]*Template, len(t.titleArgs))
		for i, arg := range t.titleArgs {
			c.titleArgs[i] = arg.Clone()
		}
	}
	if !t.isText {
		c.keys = make([]string, len(t.keys))
		copy(c.keys, t.keys)
		c.params = make(map[string]*Parameter, len(t.params))
		for k, p := range t.params {
			c.params[k] = NewParameter(p.name, p.value.clone(), p.index)
		}
	}
	return c
}

// Depth returns the nesting depth: 1 for a template without nested values
func (t *Template) Depth() int {
	depth := 0
	for _, arg := range t.titleArgs {
		depth = max(depth, arg.Depth())
	}
	for _, p := range t.params {
		for _, sub := range p.value.nested {
			depth = max(depth, sub.Depth())
		}
	}
	return depth + 1
}

func (t *Template) lookup(op, name string) (*Parameter, error) {
	if t.isText {
		return nil, errTextBody(op)
	}
	p, ok := t.params[name]
	if !ok {
		return nil, errNotFound(name)
	}
	return p, nil
}

func copyTemplates(list []*Template) []*Template {
	if len(list) == 0 {
		return nil
	}
	out := make([]*Template, len(list))
	copy(out, list)
	return out
}
