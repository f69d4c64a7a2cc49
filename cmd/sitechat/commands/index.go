// ABOUTME: Index commands for inspecting and managing the vector index
// ABOUTME: Provides status, Charm sync, and wipe
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewIndexCmd creates the index command group
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect and manage the vector index",
		Long: `Inspect and manage the vector index.

The index lives in the configured backend: memory, charm, pgvector,
or redis. With the charm backend vectors sync to the Charm cloud via
SSH keys, so every device linked to the account sees the same index.`,
	}

	cmd.AddCommand(newIndexStatusCmd())
	cmd.AddCommand(newIndexNowCmd())
	cmd.AddCommand(newIndexWipeCmd())

	return cmd
}

func newIndexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend, dimension, and vector count",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			count, err := a.Index.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to count vectors: %w", err)
			}

			status := map[string]interface{}{
				"backend":   a.Index.BackendName(),
				"dimension": a.Index.Dimension(),
				"vectors":   count,
				"sources":   a.Ingestor.Sources(),
			}
			if a.Charm != nil {
				status["charm_host"] = a.Charm.Host()
				status["charm_auto_sync"] = a.Charm.AutoSync()
				if id, err := a.Charm.ID(); err == nil {
					status["charm_user"] = id
				}
			}

			out := cmd.OutOrStdout()
			if wantJSON() {
				return writeJSON(out, status)
			}

			fmt.Fprintf(out, "Backend:   %s\n", a.Index.BackendName())
			fmt.Fprintf(out, "Dimension: %d\n", a.Index.Dimension())
			fmt.Fprintf(out, "Vectors:   %d\n", count)
			fmt.Fprintf(out, "Sources:   %v\n", a.Ingestor.Sources())
			if a.Charm != nil {
				fmt.Fprintf(out, "Charm:     %s (auto-sync: %t)\n", a.Charm.Host(), a.Charm.AutoSync())
				if id, ok := status["charm_user"]; ok {
					fmt.Fprintf(out, "User ID:   %s\n", id)
				} else {
					fmt.Fprintln(out, "User ID:   not connected")
				}
			}
			return nil
		},
	}
}

func newIndexNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Charm == nil {
				return fmt.Errorf("sync needs the charm backend (current: %s)", a.Index.BackendName())
			}

			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Syncing...")
			}
			if err := a.Charm.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			return nil
		},
	}
}

func newIndexWipeCmd() *cobra.Command {
	var confirm, local bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every vector from the index",
		Long: `Delete every vector from the index.

WARNING: chat answers have no site context until the next ingest.

With --local and the charm backend only the local Charm cache is
reset; the cloud copy is pulled again on next access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !confirm {
				fmt.Fprintln(out, "This will delete ALL indexed vectors!")
				fmt.Fprintln(out, "Run with --confirm to proceed")
				return nil
			}

			a, err := loadApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if local {
				if a.Charm == nil {
					return fmt.Errorf("--local needs the charm backend (current: %s)", a.Index.BackendName())
				}
				if err := a.Charm.Reset(); err != nil {
					return fmt.Errorf("failed to wipe local data: %w", err)
				}
				fmt.Fprintln(out, "Local data wiped successfully")
				return nil
			}

			if err := a.Index.DeleteAll(cmd.Context()); err != nil {
				return fmt.Errorf("failed to wipe index: %w", err)
			}

			fmt.Fprintln(out, "Index wiped successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")
	cmd.Flags().BoolVar(&local, "local", false, "Reset only the local Charm cache")

	return cmd
}
