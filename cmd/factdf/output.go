package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	d "github.com/invertedv/factdf"
	m "github.com/invertedv/factdf/mem"
)

// writeTable prints every row of df, one tab-aligned line per row.
func writeTable(w io.Writer, df *m.DF) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for ind, cn := range df.ColumnNames() {
		if ind > 0 {
			_, _ = fmt.Fprint(tw, "\t")
		}
		_, _ = fmt.Fprint(tw, cn)
	}
	_, _ = fmt.Fprintln(tw)

	row, e := df.Iter(true)
	for ; e == nil; row, e = df.Iter(false) {
		for ind, x := range row {
			if ind > 0 {
				_, _ = fmt.Fprint(tw, "\t")
			}

			sx, ok := d.ToString(x)
			if !ok {
				sx = "NULL"
			}

			_, _ = fmt.Fprint(tw, sx)
		}
		_, _ = fmt.Fprintln(tw)
	}

	return tw.Flush()
}

// writeSummaries prints the statistics of each of cols.
func writeSummaries(w io.Writer, df *m.DF, cols []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "column\tmin\tlq\tmedian\tmean\tuq\tmax\tn\tmissing\t")

	for _, cn := range cols {
		c := df.Column(cn)
		if c == nil {
			return fmt.Errorf("%w: column %s not found", d.ErrStructural, cn)
		}

		sm, e := c.(*m.Col).Summary()
		if e != nil {
			return e
		}

		if sm.N == 0 {
			_, _ = fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\t0\t%d\t\n", cn, sm.Missing)
			continue
		}

		_, _ = fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t%d\t\n",
			cn, sm.Min, sm.Q25, sm.Median, sm.Mean, sm.Q75, sm.Max, sm.N, sm.Missing)
	}

	return tw.Flush()
}
