package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tanpawarit/databricks-agent-toolkit/agent/router"
)

func agentsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agents declared in the configuration file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := router.LoadConfig(root.configPath)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tENABLED\tPRIORITY\tTIMEOUT")
			for _, ac := range cfg.Agents {
				timeout := "default"
				if d := ac.Timeout(); d > 0 {
					timeout = d.String()
				}
				priority := ac.Priority
				if priority == "" {
					priority = "default"
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", ac.Name, ac.Type, ac.IsEnabled(), priority, timeout)
			}
			return w.Flush()
		},
	}
}
