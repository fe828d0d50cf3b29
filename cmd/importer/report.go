package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"furniture-erp/internal/service"
)

func printPreview(w io.Writer, p *service.PreviewResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSKU\tPRODUCT\tACTION\tREASON")
	for _, item := range p.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", item.Number, item.SKU, item.Product, item.Action, item.Reason)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d rows: %d to create, %d to update, %d skipped\n",
		p.Summary.Total, p.Summary.Create, p.Summary.Update, p.Summary.Skip)
}

func printResult(w io.Writer, r *service.ImportResult) {
	s := r.Summary
	fmt.Fprintf(w, "Rows: %d (%d valid)\n", s.TotalRows, s.ValidRows)
	fmt.Fprintf(w, "Created: %d  Updated: %d  Customer prices: %d\n", s.Created, s.Updated, s.CustomerPricesSet)
	if r.ArchiveKey != "" {
		fmt.Fprintf(w, "Archived as %s\n", r.ArchiveKey)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  row %d: %s\n", e.Row, e.Message)
	}
	for _, sku := range r.Failed {
		fmt.Fprintf(w, "  failed: %s\n", sku)
	}
}

func printLegacy(w io.Writer, r *service.LegacyResult) {
	fmt.Fprintf(w, "Rows: %d  Products: %d\n", r.Rows, r.Products)
	fmt.Fprintf(w, "Created: %d  Skipped (already in catalog): %d\n", r.Created, r.Skipped)
	for _, name := range r.Failed {
		fmt.Fprintf(w, "  failed: %s\n", name)
	}
}
