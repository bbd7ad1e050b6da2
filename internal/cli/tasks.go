package cli

import (
	"fmt"
	"text/tabwriter"
)

type TasksCmd struct {
	Date      string   `arg:"" optional:"" help:"Day to build the queue for." default:"today"`
	Completed []string `short:"c" help:"Ids of tasks already completed." sep:","`
}

func (c *TasksCmd) Run(ctx *Context) error {
	day, err := parseDate(c.Date, ctx.now())
	if err != nil {
		return err
	}

	db, srv, err := ctx.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tasks, progress, err := srv.Agenda().Tasks(day, c.Completed)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	for _, t := range tasks {
		risk := ""
		if t.RiskLevel != "" {
			risk = string(t.RiskLevel)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Type, t.Title, t.Subtitle, risk)
	}
	fmt.Fprintf(tw, "\n%d/%d done (%d%%)\n", progress.Done, progress.Total, progress.Percent)
	return tw.Flush()
}
