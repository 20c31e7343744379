// Package cmd implements the agentctl command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/databricks-agent-toolkit/agent/agents/tripplanner"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
	"github.com/tanpawarit/databricks-agent-toolkit/agent/router"
	configx "github.com/tanpawarit/databricks-agent-toolkit/pkg/config"
	logx "github.com/tanpawarit/databricks-agent-toolkit/pkg/logger"
	metricsx "github.com/tanpawarit/databricks-agent-toolkit/pkg/metrics"
	"github.com/tanpawarit/databricks-agent-toolkit/pkg/toolkit"
)

const defaultConfigPath = "config/agents.yaml"

type rootOptions struct {
	configPath string
	envFile    string
	debug      bool
	pretty     bool
	registry   *prometheus.Registry
}

// RootCmd is the root Cobra command that gets called from the main func.
func RootCmd() *cobra.Command {
	opts := &rootOptions{registry: prometheus.NewRegistry()}
	cmd := &cobra.Command{
		Use:           "agentctl",
		Short:         "agentctl routes requests to the agents declared in a configuration file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			flags := cmd.Flags()
			if flags.Changed("debug") || flags.Changed("pretty") {
				log.Logger = logx.New(os.Stderr, logx.Config{Debug: opts.debug, PrettyFormat: opts.pretty})
			}
			configx.SetEnvFile(opts.envFile)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "router configuration file")
	pf.StringVar(&opts.envFile, "env", "", "dotenv file exported before reading configuration (default ./.env)")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.BoolVar(&opts.pretty, "pretty", false, "human readable log output")

	cmd.AddCommand(
		routeCmd(opts),
		agentsCmd(opts),
		checkAuthCmd(),
		statusCmd(),
	)
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd().ExecuteContext(ctx); err != nil {
		stop()
		log.Error().Err(err).Msg("agentctl failed")
		os.Exit(1)
	}
}

// factories lists the agent types agentctl can build. The trip planner gets
// the serving chat model when the llm capability resolved.
func factories(ctx context.Context, tk *toolkit.Toolkit) map[string]contractx.Factory {
	var plannerOpts []tripplanner.Option
	if llm, err := tk.LLM(); err == nil {
		plannerOpts = append(plannerOpts,
			tripplanner.WithChat(llm),
			tripplanner.WithChatFactory(func(endpoint string) (tripplanner.Chatter, error) {
				return tk.LLMFor(ctx, endpoint)
			}),
		)
	}
	return map[string]contractx.Factory{
		tripplanner.TypeName: tripplanner.NewFactory(plannerOpts...),
	}
}

func buildRouter(ctx context.Context, root *rootOptions, tk *toolkit.Toolkit) (*router.Router, error) {
	opts := []router.Option{
		router.WithMetrics(metricsx.NewPrometheusRecorder(root.registry)),
	}
	if store, err := tk.RunStore(); err == nil {
		opts = append(opts, router.WithStore(store))
	}
	return router.FromYAML(ctx, root.configPath, factories(ctx, tk), opts...)
}
