package edit

import (
	"fmt"

	"github.com/aescanero/dago-node-template/internal/markup"
)

// applyStep performs one operation on tmpl in place
func (e *Editor) applyStep(tmpl *markup.Template, step *Step) error {
	var err error
	switch step.Op {
	case OpAdd, OpAddBefore, OpAddAfter, OpSet:
		value, verr := e.stepValue(tmpl, step)
		if verr != nil {
			return verr
		}
		switch step.Op {
		case OpAdd:
			_, err = tmpl.AddParam(step.Name, value, step.Index)
		case OpAddBefore:
			_, err = tmpl.AddParamBefore(step.Anchor, step.Name, value, step.Index)
		case OpAddAfter:
			_, err = tmpl.AddParamAfter(step.Anchor, step.Name, value, step.Index)
		default:
			_, err = tmpl.SetParam(step.Name, value, step.Index)
		}
	case OpRemove:
		_, err = tmpl.RemoveParam(step.Name)
	case OpRename:
		_, err = tmpl.RenameParam(step.Name, step.NewName)
	case OpSetText:
		text, verr := e.stepText(tmpl, step)
		if verr != nil {
			return verr
		}
		tmpl.SetText(text)
	case OpStrReplace:
		_, err = tmpl.StrReplace(step.Search, step.Replace, step.Limit)
	case OpSetTitle:
		tmpl.SetTitle(step.Title, step.Nested...)
	case OpSetIsArg:
		tmpl.SetIsArg(step.IsArg)
	default:
		return fmt.Errorf("unknown op: %s", step.Op)
	}
	return err
}

// stepValue builds the parameter value of a step: nested templates, a rendered
// Handlebars value, or the literal text
func (e *Editor) stepValue(tmpl *markup.Template, step *Step) (markup.Value, error) {
	if len(step.Nested) > 0 {
		nested := make([]*markup.Template, len(step.Nested))
		for i, sub := range step.Nested {
			nested[i] = sub.Clone()
		}
		return markup.Nested(nested...), nil
	}
	text, err := e.stepText(tmpl, step)
	if err != nil {
		return markup.Value{}, err
	}
	return markup.Text(text), nil
}

func (e *Editor) stepText(tmpl *markup.Template, step *Step) (string, error) {
	if !step.Render {
		return step.Value, nil
	}
	text, err := e.templateEngine.Render(step.Value, templateView(tmpl))
	if err != nil {
		return "", fmt.Errorf("failed to render value: %w", err)
	}
	return text, nil
}

// templateView flattens a template into plain maps for CEL and Handlebars.
// Parameter values are rebuilt to markup text.
func templateView(tmpl *markup.Template) map[string]interface{} {
	params := make(map[string]string)
	names := []string{}
	index := []string{}

	if !tmpl.IsString() {
		seq, _ := tmpl.Params()
		for p := range seq {
			key := p.Key()
			params[key] = p.Value().String()
			names = append(names, key)
			if p.IsIndex() {
				index = append(index, key)
			}
		}
	}

	return map[string]interface{}{
		"title":     tmpl.Title(),
		"is_arg":    tmpl.IsArg(),
		"is_string": tmpl.IsString(),
		"text":      tmpl.Text(),
		"params":    params,
		"names":     names,
		"index":     index,
	}
}
