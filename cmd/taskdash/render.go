package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"taskdash/internal/dashboard"
	"taskdash/internal/model"
)

// renderTable prints the dashboard's data columns with a leading ID.
func renderTable(w io.Writer, tasks []model.Task) error {
	cols := dashboard.DataColumns(dashboard.Columns())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headers := []string{"ID"}
	for _, c := range cols {
		headers = append(headers, strings.ToUpper(c.Header))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, t := range tasks {
		row := []string{fmt.Sprint(int64(t.ID))}
		for _, c := range cols {
			row = append(row, c.Cell(t))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if len(tasks) == 0 {
		fmt.Fprintln(tw, "(no tasks)")
	}
	return tw.Flush()
}
