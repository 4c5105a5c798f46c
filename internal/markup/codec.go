package markup

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultMaxDepth caps template nesting accepted by Decode and UnmarshalJSON
const DefaultMaxDepth = 64

type wireTemplate struct {
	Title     string         `json:"title,omitempty"`
	TitleArgs []wireTemplate `json:"title_args,omitempty"`
	IsArg     bool           `json:"is_arg,omitempty"`
	Text      *string        `json:"text,omitempty"`
	Params    []wireParam    `json:"params,omitempty"`
}

type wireParam struct {
	Name  string          `json:"name"`
	Index bool            `json:"index,omitempty"`
	Value json.RawMessage `json:"value"`
}

// Decode parses the JSON form of a template, rejecting nesting deeper than maxDepth.
// A maxDepth of zero or less uses DefaultMaxDepth.
func Decode(data []byte, maxDepth int) (*Template, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	var w wireTemplate
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template: %w", err)
	}
	return fromWire(&w, 1, maxDepth)
}

// MarshalJSON encodes the template in its wire form
func (t *Template) MarshalJSON() ([]byte, error) {
	w, err := toWire(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form, capped at DefaultMaxDepth
func (t *Template) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data, DefaultMaxDepth)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

func toWire(t *Template) (wireTemplate, error) {
	w := wireTemplate{
		Title: t.title,
		IsArg: t.isArg,
	}
	for _, arg := range t.titleArgs {
		wa, err := toWire(arg)
		if err != nil {
			return wireTemplate{}, err
		}
		w.TitleArgs = append(w.TitleArgs, wa)
	}

	if t.isText {
		text := t.text
		w.Text = &text
		return w, nil
	}

	for _, key := range t.keys {
		p := t.params[key]
		raw, err := encodeValue(p.value)
		if err != nil {
			return wireTemplate{}, fmt.Errorf("parameter %q: %w", p.name, err)
		}
		w.Params = append(w.Params, wireParam{
			Name:  p.name,
			Index: p.index,
			Value: raw,
		})
	}
	return w, nil
}

func encodeValue(v Value) (json.RawMessage, error) {
	if !v.isList {
		return json.Marshal(v.text)
	}
	list := make([]wireTemplate, 0, len(v.nested))
	for _, sub := range v.nested {
		ws, err := toWire(sub)
		if err != nil {
			return nil, err
		}
		list = append(list, ws)
	}
	return json.Marshal(list)
}

func fromWire(w *wireTemplate, depth, maxDepth int) (*Template, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: exceeds %d levels", ErrNestingTooDeep, maxDepth)
	}

	var titleArgs []*Template
	for i := range w.TitleArgs {
		arg, err := fromWire(&w.TitleArgs[i], depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
		titleArgs = append(titleArgs, arg)
	}

	if w.Text != nil {
		if len(w.Params) > 0 {
			return nil, fmt.Errorf("template %q: text and params are mutually exclusive", w.Title)
		}
		t := NewText(*w.Text)
		t.SetTitle(w.Title, titleArgs...)
		t.SetIsArg(w.IsArg)
		return t, nil
	}

	params := make([]*Parameter, 0, len(w.Params))
	for _, wp := range w.Params {
		value, err := decodeValue(wp.Value, depth, maxDepth)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", wp.Name, err)
		}
		params = append(params, NewParameter(wp.Name, value, wp.Index))
	}

	t, err := NewWithParams(w.Title, params...)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", w.Title, err)
	}
	t.SetTitle(w.Title, titleArgs...)
	t.SetIsArg(w.IsArg)
	return t, nil
}

func decodeValue(raw json.RawMessage, depth, maxDepth int) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Text(""), nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Value{}, fmt.Errorf("failed to unmarshal value: %w", err)
		}
		return Text(s), nil
	case '[':
		var list []wireTemplate
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return Value{}, fmt.Errorf("failed to unmarshal nested value: %w", err)
		}
		nested := make([]*Template, 0, len(list))
		for i := range list {
			sub, err := fromWire(&list[i], depth+1, maxDepth)
			if err != nil {
				return Value{}, err
			}
			nested = append(nested, sub)
		}
		return Nested(nested...), nil
	default:
		return Value{}, fmt.Errorf("value must be a string or a list of templates")
	}
}
