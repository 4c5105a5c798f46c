package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-template/internal/markup"
)

// newRootCmd builds the command tree; tests use a fresh tree per run
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "templatectl",
		Short:        "Inspect and edit wikitext templates",
		Long:         `templatectl rebuilds templates from their JSON form and applies edit plans to them`,
		Version:      Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("template", "t", "", "template JSON file, - reads stdin")
	root.PersistentFlags().Int("max-depth", markup.DefaultMaxDepth, "maximum template nesting accepted")
	root.PersistentFlags().Bool("json", false, "print JSON instead of text")
	root.PersistentFlags().Bool("verbose", false, "log to stderr")

	root.AddCommand(newRebuildCmd())
	root.AddCommand(newParamsCmd())
	root.AddCommand(newApplyCmd())

	return root
}

// loadTemplate decodes the template named by the --template flag
func loadTemplate(cmd *cobra.Command) (*markup.Template, error) {
	path, err := cmd.Flags().GetString("template")
	if err != nil {
		return nil, fmt.Errorf("failed to get template flag: %w", err)
	}
	if path == "" {
		return nil, fmt.Errorf("--template is required")
	}

	maxDepth, err := cmd.Flags().GetInt("max-depth")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-depth flag: %w", err)
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}

	return markup.Decode(data, maxDepth)
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func jsonFlag(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}
