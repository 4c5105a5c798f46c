package edit

import (
	"context"
	"fmt"

	"github.com/aescanero/dago-node-template/internal/eval/cel"
	"github.com/aescanero/dago-node-template/internal/eval/template"
	"github.com/aescanero/dago-node-template/internal/markup"
	"go.uber.org/zap"
)

// Mode controls how a plan reacts to a failing step
type Mode string

const (
	// ModeStrict aborts on the first failing step and leaves the input untouched
	ModeStrict Mode = "strict"

	// ModeLenient records failing steps and carries on
	ModeLenient Mode = "lenient"
)

// Op names a template operation
type Op string

const (
	OpAdd        Op = "add"
	OpAddBefore  Op = "add_before"
	OpAddAfter   Op = "add_after"
	OpRemove     Op = "remove"
	OpRename     Op = "rename"
	OpSet        Op = "set"
	OpSetText    Op = "set_text"
	OpStrReplace Op = "str_replace"
	OpSetTitle   Op = "set_title"
	OpSetIsArg   Op = "set_is_arg"
)

// Plan is an ordered list of edit steps
type Plan struct {
	Mode  Mode   `json:"mode,omitempty"`
	Steps []Step `json:"steps"`
}

// Step is a single template operation, optionally guarded by a CEL condition
type Step struct {
	Op      Op                 `json:"op"`
	When    string             `json:"when,omitempty"`
	Name    string             `json:"name,omitempty"`
	Anchor  string             `json:"anchor,omitempty"`
	NewName string             `json:"new_name,omitempty"`
	Value   string             `json:"value,omitempty"`
	Nested  []*markup.Template `json:"nested,omitempty"`
	Render  bool               `json:"render,omitempty"`
	Index   bool               `json:"index,omitempty"`
	Search  string             `json:"search,omitempty"`
	Replace string             `json:"replace,omitempty"`
	Limit   int                `json:"limit,omitempty"`
	Title   string             `json:"title,omitempty"`
	IsArg   bool               `json:"is_arg,omitempty"`
}

// StepStatus is the outcome of a single step
type StepStatus string

const (
	StatusApplied StepStatus = "applied"
	StatusSkipped StepStatus = "skipped"
	StatusFailed  StepStatus = "failed"
)

// StepOutcome records what happened to a step
type StepOutcome struct {
	Index  int        `json:"index"`
	Op     Op         `json:"op"`
	Status StepStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// Result is the outcome of applying a plan
type Result struct {
	Template *markup.Template `json:"-"`
	Rebuilt  string           `json:"rebuilt"`
	Mode     Mode             `json:"mode"`
	Applied  int              `json:"applied"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Steps    []StepOutcome    `json:"steps"`
}

// Editor applies edit plans to templates
type Editor struct {
	celEvaluator   *cel.Evaluator
	templateEngine *template.Engine
	celEnabled     bool
	defaultMode    Mode
	logger         *zap.Logger
}

// Option configures an Editor
type Option func(*Editor)

// WithCEL enables or disables step conditions
func WithCEL(enabled bool) Option {
	return func(e *Editor) {
		e.celEnabled = enabled
	}
}

// WithDefaultMode sets the mode used by plans that do not name one
func WithDefaultMode(mode Mode) Option {
	return func(e *Editor) {
		e.defaultMode = mode
	}
}

// NewEditor creates a new editor
func NewEditor(logger *zap.Logger, opts ...Option) *Editor {
	e := &Editor{
		celEvaluator:   cel.NewEvaluator(),
		templateEngine: template.NewEngine(),
		celEnabled:     true,
		defaultMode:    ModeStrict,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs the plan against a copy of tmpl. The input is never modified; the edited
// template is returned in the result. In strict mode the first failing step aborts the plan.
func (e *Editor) Apply(ctx context.Context, tmpl *markup.Template, plan *Plan) (*Result, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("template is nil")
	}
	if err := e.validatePlan(plan); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	mode := plan.Mode
	if mode == "" {
		mode = e.defaultMode
	}

	work := tmpl.Clone()
	result := &Result{
		Mode:  mode,
		Steps: make([]StepOutcome, 0, len(plan.Steps)),
	}

	for i := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		step := &plan.Steps[i]
		outcome := StepOutcome{Index: i, Op: step.Op}

		run, err := e.shouldRun(ctx, work, step)
		if err == nil && !run {
			e.logger.Debug("step condition not met",
				zap.Int("step_index", i),
				zap.String("condition", step.When),
			)
			outcome.Status = StatusSkipped
			result.Skipped++
			result.Steps = append(result.Steps, outcome)
			continue
		}
		if err == nil {
			err = e.applyStep(work, step)
		}

		if err != nil {
			if mode == ModeStrict {
				e.logger.Warn("plan aborted",
					zap.Int("step_index", i),
					zap.String("op", string(step.Op)),
					zap.Error(err),
				)
				return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
			}
			e.logger.Warn("step failed",
				zap.Int("step_index", i),
				zap.String("op", string(step.Op)),
				zap.Error(err),
			)
			outcome.Status = StatusFailed
			outcome.Reason = err.Error()
			result.Failed++
			result.Steps = append(result.Steps, outcome)
			continue
		}

		outcome.Status = StatusApplied
		result.Applied++
		result.Steps = append(result.Steps, outcome)
	}

	result.Template = work
	result.Rebuilt = work.Rebuild()

	e.logger.Info("plan applied",
		zap.String("title", work.Title()),
		zap.String("mode", string(mode)),
		zap.Int("applied", result.Applied),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

// shouldRun evaluates the step condition against the current state of the template
func (e *Editor) shouldRun(ctx context.Context, tmpl *markup.Template, step *Step) (bool, error) {
	if step.When == "" {
		return true, nil
	}
	if !e.celEnabled {
		return false, fmt.Errorf("step conditions are disabled")
	}
	return e.celEvaluator.Match(ctx, step.When, templateView(tmpl))
}

// validatePlan validates the plan structure before any step runs
func (e *Editor) validatePlan(plan *Plan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}

	switch plan.Mode {
	case "", ModeStrict, ModeLenient:
	default:
		return fmt.Errorf("unknown mode: %s", plan.Mode)
	}

	for i, step := range plan.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if step.When != "" && e.celEnabled {
			if err := e.celEvaluator.Check(step.When); err != nil {
				return fmt.Errorf("step %d: invalid condition: %w", i, err)
			}
		}
		if step.Render {
			if err := e.templateEngine.Check(step.Value); err != nil {
				return fmt.Errorf("step %d: invalid value template: %w", i, err)
			}
		}
	}

	return nil
}

func validateStep(step Step) error {
	switch step.Op {
	case OpAdd, OpSet, OpRemove:
		if step.Name == "" {
			return fmt.Errorf("%s requires name", step.Op)
		}
	case OpAddBefore, OpAddAfter:
		if step.Name == "" || step.Anchor == "" {
			return fmt.Errorf("%s requires name and anchor", step.Op)
		}
	case OpRename:
		if step.Name == "" || step.NewName == "" {
			return fmt.Errorf("%s requires name and new_name", step.Op)
		}
	case OpStrReplace:
		if step.Search == "" {
			return fmt.Errorf("%s requires search", step.Op)
		}
	case OpSetTitle:
		if step.Title == "" {
			return fmt.Errorf("%s requires title", step.Op)
		}
	case OpSetText, OpSetIsArg:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op: %s", step.Op)
	}

	if step.Render && len(step.Nested) > 0 {
		return fmt.Errorf("render and nested are mutually exclusive")
	}
	return nil
}
