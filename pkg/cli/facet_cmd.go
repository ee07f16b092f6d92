package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newFacetCmd(host, output *string) *cobra.Command {
	var (
		kind   string
		search string
		limit  int
		alpha  bool
	)

	cmd := &cobra.Command{
		Use:   "facet <table> <column>",
		Short: "Fetch unique values or min/max bounds for a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if kind != "" {
				params.Set("kind", kind)
			}
			if cmd.Flags().Changed("search") {
				params.Set("search", search)
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			if alpha {
				params.Set("sort", "alpha")
			}

			res, err := NewClient(*host).Facet(cmd.Context(), args[0], args[1], params)
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printFacet(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "facet kind: unique, minmax, or totalCount")
	cmd.Flags().StringVar(&search, "search", "", "substring filter for unique values")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of unique values")
	cmd.Flags().BoolVar(&alpha, "alpha", false, "sort unique values alphabetically instead of by count")
	return cmd
}

func printFacet(w io.Writer, res *FacetResult) error {
	switch res.Kind {
	case "minmax":
		_, err := fmt.Fprintf(w, "min=%v max=%v\n", res.Min, res.Max)
		return err
	case "totalCount":
		_, err := fmt.Fprintf(w, "total=%d\n", res.Total)
		return err
	}
	for _, opt := range res.Options {
		marker := " "
		if opt.Selected {
			marker = "*"
		}
		if _, err := fmt.Fprintf(w, "%s %v (%d)\n", marker, opt.Value, opt.Count); err != nil {
			return err
		}
	}
	if res.HasMore {
		if _, err := fmt.Fprintln(w, "..."); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
