package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/storagereport/internal/report"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect stored snapshots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored snapshot dates",
		Args:  cobra.NoArgs,
		RunE:  a.runSnapshotList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show [DATE]",
		Short: "Show a snapshot (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runSnapshotShow,
	})
	return cmd
}

func (a *app) runSnapshotList(cmd *cobra.Command, args []string) error {
	dates, err := a.store().List()
	if err != nil {
		return sysError(err)
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		if dates == nil {
			dates = []string{}
		}
		return printJSON(out, dates)
	}
	for _, d := range dates {
		fmt.Fprintln(out, d)
	}
	return nil
}

func (a *app) runSnapshotShow(cmd *cobra.Command, args []string) error {
	date := ""
	if len(args) == 1 {
		date = args[0]
	}
	snap, err := a.loadSnapshot(date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, snap)
	}

	fmt.Fprintf(out, "date: %s\n", snap.Date())
	if snap.Meta.RunID != "" {
		fmt.Fprintf(out, "run: %s\n", snap.Meta.RunID)
	}
	fmt.Fprintf(out, "scan time: %s\n\n", time.Duration((snap.Meta.EndTime-snap.Meta.StartTime)*float64(time.Second)).Round(time.Second))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Collaborator\tBucket\tFiles\tSize\t")
	for _, e := range snap.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", e.Name, e.Bucket, report.Count(e.Files), report.StripPadding(report.HumanSize(e.Bytes)))
	}
	return tw.Flush()
}

// loadSnapshot loads the snapshot for date, or the latest when date is
// empty. A bad or unknown date is a user error.
func (a *app) loadSnapshot(date string) (types.Snapshot, error) {
	store := a.store()
	if date == "" {
		snap, err := store.Latest()
		if errors.Is(err, types.ErrSnapshotNotFound) {
			return types.Snapshot{}, userError(fmt.Errorf("no snapshots in %s", store.Dir))
		}
		if err != nil {
			return types.Snapshot{}, sysError(err)
		}
		return snap, nil
	}

	if _, err := time.Parse(types.DateLayout, date); err != nil {
		return types.Snapshot{}, userError(fmt.Errorf("invalid date %q (want YYYY-MM-DD)", date))
	}
	snap, err := store.Load(date)
	if errors.Is(err, types.ErrSnapshotNotFound) {
		return types.Snapshot{}, userError(err)
	}
	if err != nil {
		return types.Snapshot{}, sysError(err)
	}
	return snap, nil
}
