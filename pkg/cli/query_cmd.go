package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// queryState is the table-state payload assembled from flags.
type queryState struct {
	Pagination struct {
		PageIndex int `json:"pageIndex"`
		PageSize  int `json:"pageSize"`
	} `json:"pagination"`
	Sorting       []sortEntry    `json:"sorting,omitempty"`
	ColumnFilters map[string]any `json:"columnFilters,omitempty"`
}

type sortEntry struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

func newQueryCmd(host, output *string) *cobra.Command {
	var (
		page     int
		pageSize int
		sorts    []string
		filters  []string
	)

	cmd := &cobra.Command{
		Use:   "query <table>",
		Short: "Query a grid's row window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := queryState{ColumnFilters: map[string]any{}}
			state.Pagination.PageIndex = page
			state.Pagination.PageSize = pageSize
			for _, s := range sorts {
				col, dir, _ := strings.Cut(s, ":")
				state.Sorting = append(state.Sorting, sortEntry{ID: col, Desc: dir == "desc"})
			}
			for _, f := range filters {
				k, v, ok := strings.Cut(f, "=")
				if !ok {
					return fmt.Errorf("filter %q is not in column=value form", f)
				}
				state.ColumnFilters[k] = v
			}

			res, err := NewClient(*host).Query(cmd.Context(), args[0], state)
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printRows(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&pageSize, "page-size", 25, "rows per page")
	cmd.Flags().StringArrayVar(&sorts, "sort", nil, "sort column, optionally column:desc (repeatable)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "column=value filter (repeatable)")
	return cmd
}

// printRows renders a row window as an aligned table, columns sorted by name.
func printRows(w interface{ Write([]byte) (int, error) }, res *TableResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(res.Rows) > 0 {
		cols := make([]string, 0, len(res.Rows[0]))
		for c := range res.Rows[0] {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
		for _, row := range res.Rows {
			vals := make([]string, len(cols))
			for i, c := range cols {
				vals[i] = fmt.Sprint(row[c])
			}
			fmt.Fprintln(tw, strings.Join(vals, "\t"))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d rows\n", len(res.Rows), res.Total)
	return err
}
