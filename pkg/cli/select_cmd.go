package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// selectionRequest mirrors the selection publish payload.
type selectionRequest struct {
	Source string `json:"source"`
	Column string `json:"column"`
	Values []any  `json:"values"`
	List   bool   `json:"list"`
}

func newSelectCmd(host, output *string) *cobra.Command {
	var (
		source string
		column string
		values []string
		list   bool
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "select <selection>",
		Short: "Publish values to a shared selection, or reset it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewClient(*host)

			var res *SelectionResult
			var err error
			if reset {
				res, err = client.Reset(cmd.Context(), args[0])
			} else {
				req := selectionRequest{Source: source, Column: column, List: list}
				for _, v := range values {
					req.Values = append(req.Values, v)
				}
				res, err = client.Publish(cmd.Context(), args[0], req)
			}
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printSelection(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&source, "source", "gridcli", "writer identity on the selection")
	cmd.Flags().StringVar(&column, "column", "", "SQL column the values constrain")
	cmd.Flags().StringSliceVar(&values, "values", nil, "values to publish; empty clears this source's clause")
	cmd.Flags().BoolVar(&list, "list", false, "treat the column as a DuckDB list column")
	cmd.Flags().BoolVar(&reset, "reset", false, "reset the whole selection")
	return cmd
}

func printSelection(w io.Writer, res *SelectionResult) error {
	if !res.Active {
		_, err := fmt.Fprintf(w, "%s: inactive\n", res.Name)
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", res.Name, res.Predicate)
	return err
}
