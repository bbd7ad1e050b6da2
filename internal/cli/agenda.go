package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dukerupert/clientbook/internal/model"
)

type AgendaCmd struct {
	Date string `arg:"" optional:"" help:"First day (YYYY-MM-DD, today or tomorrow)." default:"today"`
	Days int    `short:"n" help:"Number of days to show." default:"1"`
}

func (c *AgendaCmd) Run(ctx *Context) error {
	if c.Days < 1 || c.Days > 90 {
		return fmt.Errorf("--days must be between 1 and 90")
	}
	from, err := parseDate(c.Date, ctx.now())
	if err != nil {
		return err
	}

	db, srv, err := ctx.open()
	if err != nil {
		return err
	}
	defer db.Close()

	days, err := srv.Agenda().Range(from, c.Days)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	for i, d := range days {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\n", d.DateKey)
		if len(d.Appointments) == 0 {
			fmt.Fprintln(tw, "  no appointments")
			continue
		}
		for _, a := range d.Appointments {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", a.Time, a.Name, a.Location, appointmentState(a))
		}
	}
	return tw.Flush()
}

func appointmentState(a model.Appointment) string {
	parts := []string{string(a.Status)}
	if a.ConfirmationStatus != "" && a.ConfirmationStatus != model.ConfirmationPending {
		parts = append(parts, string(a.ConfirmationStatus))
	}
	if a.Note != "" {
		parts = append(parts, "note: "+a.Note)
	}
	return strings.Join(parts, ", ")
}
