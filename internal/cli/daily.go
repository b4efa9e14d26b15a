package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDailyCmd(a *app) *cobra.Command {
	var dryRun, noMail bool

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Snapshot every bucket and mail the daily report",
		Long: "Scan the S3 bucket of every collaborator, save the snapshot, compare it\n" +
			"with the most recent earlier snapshot and mail the report. Any failure\n" +
			"exits nonzero so a batch scheduler can hold the job.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := dailyOptions{noMail: noMail}
			if dryRun {
				opts.mailTo = cmd.OutOrStdout()
			}
			return a.runDaily(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "write the email to stdout instead of sending it")
	cmd.Flags().BoolVar(&noMail, "no-mail", false, "save the snapshot without sending the email")
	return cmd
}

func (a *app) runDaily(cmd *cobra.Command, opts dailyOptions) error {
	job, err := a.newDailyJob(opts, nil)
	if err != nil {
		return err
	}

	res, err := job.Run(cmd.Context(), newRunID())
	if err != nil {
		return sysError(err)
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, map[string]any{
			"run_id":   res.RunID,
			"snapshot": res.SnapshotPath,
			"subject":  res.Message.Subject,
			"mailed":   res.Mailed,
			"initial":  res.Report.Initial(),
		})
	}
	if opts.mailTo != nil {
		return nil
	}

	fmt.Fprintf(out, "snapshot: %s\n", res.SnapshotPath)
	fmt.Fprintf(out, "subject: %s\n", res.Message.Subject)
	if !res.Mailed {
		fmt.Fprintf(out, "\n%s", res.Message.Text)
	}
	return nil
}
