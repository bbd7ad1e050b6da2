package cli

import (
	"fmt"
	"text/tabwriter"
)

type ReceivablesCmd struct{}

func (c *ReceivablesCmd) Run(ctx *Context) error {
	db, srv, err := ctx.open()
	if err != nil {
		return err
	}
	defer db.Close()

	ranked, err := srv.Agenda().Receivables(ctx.now())
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		fmt.Fprintln(ctx.Out, "no open receivables")
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DUE\tCLIENT\tAMOUNT\tRISK\tCHARGES\tID")
	for _, r := range ranked {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.DueDate, r.ClientName, r.Amount.StringFixed(2), r.RiskLevel, len(r.ChargeHistory), r.ID)
	}
	return tw.Flush()
}
