package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/storagereport/internal/sqlite"
	"github.com/mesh-intelligence/storagereport/internal/verify"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Snapshot and compare directory trees",
		Long: "Confirm that a copy of a directory tree is identical to its source:\n" +
			"hash the source into a listing, convert it into a database, hash the\n" +
			"copy and compare that listing against the database.",
	}

	var hashOutput string
	hashCmd := &cobra.Command{
		Use:   "hash ROOT",
		Short: "Write a listing of every entry under ROOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, closeFn, err := openOutput(cmd, hashOutput)
			if err != nil {
				return sysError(err)
			}
			_, err = verify.NewVerifier(a.logger).Hash(cmd.Context(), args[0], w)
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			return verifyError(err)
		},
	}
	hashCmd.Flags().StringVarP(&hashOutput, "output", "o", "", "write the listing to file instead of stdout")

	convertCmd := &cobra.Command{
		Use:   "convert SOURCE DESTINATION",
		Short: "Load a listing into a new SQLite database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return userError(err)
			}
			defer f.Close()

			rows, err := verify.NewVerifier(a.logger).Convert(cmd.Context(), f, args[1])
			if err != nil {
				return verifyError(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"rows": rows, "database": args[1]})
			}
			return nil
		},
	}

	var compareOutput string
	compareCmd := &cobra.Command{
		Use:   "compare SOURCE-LIST DESTINATION-DB",
		Short: "Compare a listing against a listing database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return userError(err)
			}
			defer f.Close()

			w, closeFn, err := openOutput(cmd, compareOutput)
			if err != nil {
				return sysError(err)
			}
			_, err = verify.NewVerifier(a.logger).Compare(cmd.Context(), f, args[1], w)
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			return verifyError(err)
		},
	}
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", "", "write results to file instead of stdout")

	cmd.AddCommand(hashCmd, convertCmd, compareCmd)
	return cmd
}

// verifyError classifies verify failures: bad input files are user
// errors, everything else is a system error.
func verifyError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range []error{
		types.ErrMalformedLine,
		types.ErrMissingRoot,
		types.ErrPathOutsideRoot,
		sqlite.ErrDatabaseNotFound,
	} {
		if errors.Is(err, target) {
			return userError(err)
		}
	}
	return sysError(fmt.Errorf("verify: %w", err))
}
