// Package summary renders the HTML change summary stored after a dry run.
package summary

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/a-h/templ"
)

// ContentType is the content type of a rendered summary.
const ContentType = "text/html; charset=utf-8"

// order is the column order of the totals table.
var order = []resource.ImportType{
	resource.ImportNew,
	resource.ImportUpdate,
	resource.ImportSkip,
	resource.ImportError,
	resource.ImportInvalid,
}

// Render writes the change summary for an import result to w.
func Render(ctx context.Context, w io.Writer, model string, result *resource.Result) error {
	return ChangeSummary(model, result).Render(ctx, w)
}

// ChangeSummary is the summary document: a totals table followed by one
// line per changed or failed row.
func ChangeSummary(model string, result *resource.Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<html><head><meta charset=\"utf-8\"><title>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, templ.EscapeString(model)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " import summary</title></head><body>"); err != nil {
			return err
		}
		if result != nil {
			if err := totals(result).Render(ctx, w); err != nil {
				return err
			}
			if err := rows(result).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

func totals(result *resource.Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<p>Rows: %d</p><table><tr>", result.TotalRows); err != nil {
			return err
		}
		for _, t := range order {
			if _, err := fmt.Fprintf(w, "<th>%s</th>", templ.EscapeString(string(t))); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tr><tr>"); err != nil {
			return err
		}
		for _, t := range order {
			if _, err := fmt.Fprintf(w, "<td>%d</td>", result.Totals[t]); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tr></table>")
		return err
	})
}

func rows(result *resource.Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(result.BaseErrors) == 0 && len(result.Rows) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, "<ul>"); err != nil {
			return err
		}
		for _, msg := range result.BaseErrors {
			if _, err := fmt.Fprintf(w, "<li class=\"error\">%s</li>", templ.EscapeString(msg)); err != nil {
				return err
			}
		}
		for _, row := range result.Rows {
			if row.ImportType == resource.ImportSkip {
				continue
			}
			line := fmt.Sprintf("%d %s %s", row.Number, row.ImportType, row.Key)
			for _, e := range row.Errors {
				line += ": " + e.Error
			}
			if _, err := fmt.Fprintf(w, "<li class=\"%s\">%s</li>", row.ImportType, templ.EscapeString(line)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>")
		return err
	})
}
