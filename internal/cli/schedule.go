package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/storagereport/internal/jobspec"
	"github.com/mesh-intelligence/storagereport/internal/metrics"
	"github.com/mesh-intelligence/storagereport/internal/paths"
	"github.com/mesh-intelligence/storagereport/internal/schedule"
)

const stopTimeout = 30 * time.Second

func newScheduleCmd(a *app) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the daily report on its cron schedule until interrupted",
		Long: "Run the daily report in the foreground on the job's cron schedule. A\n" +
			"failed run holds the job; it is released and re-run after the release\n" +
			"delay. Triggers that arrive while the job runs or is held are skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSchedule(cmd, runNow)
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "run once immediately, then follow the schedule")
	return cmd
}

func (a *app) runSchedule(cmd *cobra.Command, runNow bool) error {
	desc := a.descriptor()
	if _, err := desc.Schedule(); err != nil {
		return userError(err)
	}

	rec := metrics.NewRecorder()
	job, err := a.newDailyJob(dailyOptions{}, rec)
	if err != nil {
		return err
	}

	textfile := paths.ResolveRelative(a.dataDir, a.cfg.Metrics.Textfile)
	runner := schedule.NewRunner(desc, job.Task, a.logger,
		schedule.WithRecorder(rec),
		schedule.WithTextfile(textfile))
	if err := runner.Start(); err != nil {
		return sysError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runNow {
		go runner.RunNow()
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := runner.Stop(stopCtx); err != nil {
		return sysError(err)
	}
	return nil
}

// descriptor is the job section of config.yaml with the running binary
// filled in as the executable when none is configured.
func (a *app) descriptor() jobspec.Descriptor {
	desc := jobspec.FromConfig(a.cfg.Job)
	if desc.Executable == "" {
		if exe, err := os.Executable(); err == nil {
			desc.Executable = exe
		}
	}
	return desc
}
