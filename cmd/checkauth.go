package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanpawarit/databricks-agent-toolkit/pkg/toolkit"
)

func checkAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-auth",
		Short: "Verify the workspace host and token from the environment.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tk := toolkit.Resolve(cmd.Context(), toolkit.WithRunStoreConfig(toolkit.RunStoreConfig{Backend: toolkit.BackendMemory}))
			if err := tk.CheckAuthentication(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "authentication ok")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which toolkit capabilities are available.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tk := toolkit.Resolve(cmd.Context())
			defer tk.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tk.Status())
		},
	}
}
