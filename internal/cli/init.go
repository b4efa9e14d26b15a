package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/storagereport/internal/paths"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// collaboratorsTemplate seeds the collaborators file with its header.
const collaboratorsTemplate = types.ColumnName + "," + types.ColumnBucket + "\n"

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and data directories",
		Long: "Create the configuration directory with a default config.yaml and an\n" +
			"empty collaborators file, and the data directory for snapshots.\n" +
			"Existing files are left alone.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	// config.yaml is created by setup.
	created, err := writeFileIfMissing(a.collaboratorsPath(), collaboratorsTemplate)
	if err != nil {
		return sysError(fmt.Errorf("write collaborators file: %w", err))
	}

	snapDir := paths.SnapshotDir(a.dataDir)
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create data directory: %w", err))
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, map[string]any{
			"config":        filepath.Join(a.configDir, configFileExt),
			"collaborators": a.collaboratorsPath(),
			"snapshots":     snapDir,
		})
	}

	fmt.Fprintf(out, "config: %s\n", filepath.Join(a.configDir, configFileExt))
	if created {
		fmt.Fprintf(out, "collaborators: %s (created)\n", a.collaboratorsPath())
	} else {
		fmt.Fprintf(out, "collaborators: %s\n", a.collaboratorsPath())
	}
	fmt.Fprintf(out, "snapshots: %s\n", snapDir)
	fmt.Fprintln(out, "storagereport initialized successfully")
	return nil
}
