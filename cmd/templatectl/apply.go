package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aescanero/dago-node-template/internal/edit"
	"github.com/aescanero/dago-node-template/internal/markup"
)

type applyOutput struct {
	*edit.Result
	Template *markup.Template `json:"template"`
}

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply an edit plan to a template and print the result",
		Args:  cobra.NoArgs,
		RunE:  runApply,
	}

	cmd.Flags().StringP("plan", "p", "", "edit plan file (YAML or JSON)")
	cmd.Flags().String("mode", "", "override the plan mode (strict|lenient)")
	cmd.Flags().Bool("no-cel", false, "reject steps with when conditions")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runApply(cmd *cobra.Command, _ []string) error {
	planPath, err := cmd.Flags().GetString("plan")
	if err != nil {
		return fmt.Errorf("failed to get plan flag: %w", err)
	}
	plan, err := edit.LoadPlan(planPath)
	if err != nil {
		return err
	}

	mode, _ := cmd.Flags().GetString("mode")
	switch edit.Mode(mode) {
	case "":
	case edit.ModeStrict, edit.ModeLenient:
		plan.Mode = edit.Mode(mode)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	tmpl, err := loadTemplate(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	noCEL, _ := cmd.Flags().GetBool("no-cel")
	editor := edit.NewEditor(logger, edit.WithCEL(!noCEL))

	result, err := editor.Apply(cmd.Context(), tmpl, plan)
	if err != nil {
		return err
	}

	if jsonFlag(cmd) {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(applyOutput{Result: result, Template: result.Template})
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, result.Rebuilt); err != nil {
		return err
	}
	for _, s := range result.Steps {
		if s.Status == edit.StatusFailed {
			fmt.Fprintf(cmd.ErrOrStderr(), "step %d (%s) failed: %s\n", s.Index, s.Op, s.Reason)
		}
	}
	return nil
}
