package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type paramView struct {
	Name  string `json:"name"`
	Index bool   `json:"index"`
	Value string `json:"value"`
}

func newParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "List the parameters of a template in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tmpl, err := loadTemplate(cmd)
			if err != nil {
				return err
			}

			params, err := tmpl.Params()
			if err != nil {
				return err
			}

			views := make([]paramView, 0, tmpl.Len())
			for p := range params {
				views = append(views, paramView{
					Name:  p.Name(),
					Index: p.IsIndex(),
					Value: p.Value().String(),
				})
			}

			if jsonFlag(cmd) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(views)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, v := range views {
				kind := "named"
				if v.Index {
					kind = "index"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Name, kind, v.Value)
			}
			return tw.Flush()
		},
	}
}
