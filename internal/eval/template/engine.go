package template

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
)

// raymond keeps helpers in a process-wide registry that panics on re-registration
var registerOnce sync.Once

// helpers available to every value template
var helpers = map[string]interface{}{
	"uppercase": strings.ToUpper,
	"lowercase": strings.ToLower,
	"trim":      strings.TrimSpace,
	"contains":  strings.Contains,
	"join":      strings.Join,

	"default": func(value, fallback interface{}) interface{} {
		if value == nil || value == "" {
			return fallback
		}
		return value
	},
	"eq": func(a, b interface{}) bool { return a == b },
	"ne": func(a, b interface{}) bool { return a != b },
	"gt": func(a, b float64) bool { return a > b },
	"lt": func(a, b float64) bool { return a < b },

	"len": func(value interface{}) int {
		switch v := value.(type) {
		case string:
			return len(v)
		case []string:
			return len(v)
		case []interface{}:
			return len(v)
		case map[string]string:
			return len(v)
		case map[string]interface{}:
			return len(v)
		}
		return 0
	},

	// Markup producers; output is never escaped
	"raw": func(s string) raymond.SafeString {
		return raymond.SafeString(s)
	},
	"wikilink": func(target, label string) raymond.SafeString {
		if label == "" {
			return raymond.SafeString("[[" + target + "]]")
		}
		return raymond.SafeString("[[" + target + "|" + label + "]]")
	},
	"arg": func(name, fallback string) raymond.SafeString {
		if fallback == "" {
			return raymond.SafeString("{{{" + name + "}}}")
		}
		return raymond.SafeString("{{{" + name + "|" + fallback + "}}}")
	},
	"nowiki": func(s string) raymond.SafeString {
		return raymond.SafeString("<nowiki>" + s + "</nowiki>")
	},
}

// Engine renders Handlebars sources into parameter values and keeps the parsed sources
type Engine struct {
	parsed sync.Map // source -> *raymond.Template
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	registerOnce.Do(func() { raymond.RegisterHelpers(helpers) })
	return &Engine{}
}

// Render executes source against view
func (e *Engine) Render(source string, view interface{}) (string, error) {
	tmpl, err := e.parse(source)
	if err != nil {
		return "", err
	}

	out, err := tmpl.Exec(view)
	if err != nil {
		return "", fmt.Errorf("render value: %w", err)
	}
	return out, nil
}

// Check parses source without rendering it
func (e *Engine) Check(source string) error {
	_, err := e.parse(source)
	return err
}

// Cached returns the number of parsed sources
func (e *Engine) Cached() int {
	n := 0
	e.parsed.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Reset drops all parsed sources
func (e *Engine) Reset() {
	e.parsed.Range(func(key, _ interface{}) bool {
		e.parsed.Delete(key)
		return true
	})
}

func (e *Engine) parse(source string) (*raymond.Template, error) {
	if tmpl, ok := e.parsed.Load(source); ok {
		return tmpl.(*raymond.Template), nil
	}

	tmpl, err := raymond.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse value template: %w", err)
	}

	actual, _ := e.parsed.LoadOrStore(source, tmpl)
	return actual.(*raymond.Template), nil
}
