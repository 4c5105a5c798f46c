package cel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// TemplateVar names the template view inside conditions
const TemplateVar = "template"

// interruptEvery bounds how many comprehension iterations run between context checks
const interruptEvery = 100

// Evaluator compiles edit conditions once and evaluates them against template views
type Evaluator struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewEvaluator creates an evaluator whose environment declares the template variable
// and the string extension library (lowerAscii, split, replace, ...).
func NewEvaluator() *Evaluator {
	env, err := cel.NewEnv(
		cel.Variable(TemplateVar, cel.MapType(cel.StringType, cel.DynType)),
		ext.Strings(),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create CEL environment: %v", err))
	}

	return &Evaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}
}

// Match reports whether condition holds for view
func (e *Evaluator) Match(ctx context.Context, condition string, view map[string]interface{}) (bool, error) {
	program, err := e.program(condition)
	if err != nil {
		return false, err
	}

	out, _, err := program.ContextEval(ctx, map[string]interface{}{TemplateVar: view})
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", condition, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %s, want bool", condition, out.Type().TypeName())
	}
	return matched, nil
}

// Check compiles condition without evaluating it. Conditions of dynamic type pass
// and are checked by Match.
func (e *Evaluator) Check(condition string) error {
	_, err := e.program(condition)
	return err
}

// Cached returns the number of compiled conditions
func (e *Evaluator) Cached() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}

// Reset drops all compiled conditions
func (e *Evaluator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs = make(map[string]cel.Program)
}

func (e *Evaluator) program(condition string) (cel.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[condition]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	ast, issues := e.env.Compile(condition)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("condition %q: %w", condition, issues.Err())
	}

	switch out := ast.OutputType().String(); out {
	case cel.BoolType.String(), cel.DynType.String():
	default:
		return nil, fmt.Errorf("condition %q must return bool, got %s", condition, out)
	}

	program, err := e.env.Program(ast, cel.InterruptCheckFrequency(interruptEvery))
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", condition, err)
	}

	e.mu.Lock()
	e.programs[condition] = program
	e.mu.Unlock()

	return program, nil
}
