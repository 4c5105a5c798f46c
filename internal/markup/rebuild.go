package markup

import "strings"

const (
	openTemplate  = "{{"
	closeTemplate = "}}"
	openArg       = "{{{"
	closeArg      = "}}}"
	separator     = "|"
	assignment    = "="
)

// Rebuild serializes the template back into markup. String templates are returned verbatim.
func (t *Template) Rebuild() string {
	if t.isText {
		return t.text
	}
	var sb strings.Builder
	t.writeTo(&sb)
	return sb.String()
}

// RebuildParam serializes a single parameter value without separator, name or braces
func (t *Template) RebuildParam(name string) (string, error) {
	p, err := t.lookup("rebuild param", name)
	if err != nil {
		return "", err
	}
	return p.value.String(), nil
}

func (t *Template) writeTo(sb *strings.Builder) {
	if t.isText {
		sb.WriteString(t.text)
		return
	}

	if t.isArg {
		sb.WriteString(openArg)
	} else {
		sb.WriteString(openTemplate)
	}
	sb.WriteString(t.title)

	for _, key := range t.keys {
		p := t.params[key]
		sb.WriteString(separator)
		if !p.index {
			sb.WriteString(p.name)
			sb.WriteString(assignment)
		}
		if p.value.isList {
			for _, sub := range p.value.nested {
				sub.writeTo(sb)
			}
		} else {
			sb.WriteString(p.value.text)
		}
	}

	if t.isArg {
		sb.WriteString(closeArg)
	} else {
		sb.WriteString(closeTemplate)
	}
}
