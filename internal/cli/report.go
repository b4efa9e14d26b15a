package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/storagereport/internal/report"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

func newReportCmd(a *app) *cobra.Command {
	var previousDate, currentDate string
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the report for stored snapshots without scanning or mailing",
		Long: "Compare two stored snapshots and print the report. By default the\n" +
			"latest snapshot is compared with the most recent one before it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReport(cmd, previousDate, currentDate, asHTML)
		},
	}

	cmd.Flags().StringVar(&previousDate, "previous", "", "date of the previous snapshot (YYYY-MM-DD)")
	cmd.Flags().StringVar(&currentDate, "current", "", "date of the current snapshot (default: latest)")
	cmd.Flags().BoolVar(&asHTML, "html", false, "print the HTML body instead of plain text")
	return cmd
}

func (a *app) runReport(cmd *cobra.Command, previousDate, currentDate string, asHTML bool) error {
	current, err := a.loadSnapshot(currentDate)
	if err != nil {
		return err
	}

	var previous types.Snapshot
	if previousDate != "" {
		if previous, err = a.loadSnapshot(previousDate); err != nil {
			return err
		}
	} else {
		previous, err = a.store().Previous(current.StartedAt(), a.cfg.Snapshot.LookbackDays)
		if err != nil {
			return sysError(err)
		}
	}

	rep := report.Compare(previous, current)
	out := cmd.OutOrStdout()

	if a.flags.jsonMode {
		return printJSON(out, rep)
	}

	body, err := rep.HTML()
	if err != nil {
		return sysError(err)
	}
	if asHTML {
		_, err = fmt.Fprint(out, body)
		return err
	}

	text, err := report.PlainText(body)
	if err != nil {
		return sysError(err)
	}
	fmt.Fprintf(out, "Subject: %s\n\n%s", rep.Subject(), text)
	return nil
}
