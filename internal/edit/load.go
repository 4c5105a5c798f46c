package edit

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadPlan reads a plan file in YAML or JSON form
func LoadPlan(path string) (*Plan, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("plan path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}

	plan, err := ParsePlan(data)
	if err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	return plan, nil
}

// ParsePlan decodes a YAML or JSON plan. YAML documents are converted to JSON first so nested
// templates decode through the markup wire codec.
func ParsePlan(data []byte) (*Plan, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("plan is empty")
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert plan: %w", err)
	}

	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}

	plan.Mode = Mode(strings.ToLower(strings.TrimSpace(string(plan.Mode))))
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan steps are required")
	}
	return &plan, nil
}
