package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobspecCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "jobspec",
		Short: "Print the batch-scheduler submit description for the daily job",
		Long: "Render the submit description that runs \"storagereport daily\" on the\n" +
			"job's cron schedule, holds it when a run fails and releases it after\n" +
			"the release delay. Settings come from the job section of config.yaml.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc := a.descriptor()
			if err := desc.Validate(); err != nil {
				return userError(fmt.Errorf("job: %w", err))
			}

			w, closeFn, err := openOutput(cmd, output)
			if err != nil {
				return sysError(err)
			}
			if err := desc.Render(w); err != nil {
				closeFn()
				return sysError(err)
			}
			return sysError(closeFn())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
