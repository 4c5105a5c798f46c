package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Print the wikitext of a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tmpl, err := loadTemplate(cmd)
			if err != nil {
				return err
			}

			if jsonFlag(cmd) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"rebuilt": tmpl.Rebuild(),
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tmpl.Rebuild())
			return err
		},
	}
}
