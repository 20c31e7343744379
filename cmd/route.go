package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
	"github.com/tanpawarit/databricks-agent-toolkit/pkg/toolkit"
)

func routeCmd(root *rootOptions) *cobra.Command {
	var (
		agentName string
		requestID string
		data      string
		meta      string
		metrics   bool
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Run one request through a configured agent and print its output.",
		Example: `  agentctl route --agent trip_planner --data '{"budget": 2000, "estimated_cost": 2600}'
  agentctl route --agent trip_planner --request-id r1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			in, err := parseInput(requestID, data, meta)
			if err != nil {
				return err
			}

			tk := toolkit.Resolve(ctx)
			defer func() {
				if err := tk.Close(); err != nil {
					log.Warn().Err(err).Msg("close toolkit")
				}
			}()

			r, err := buildRouter(ctx, root, tk)
			if err != nil {
				return err
			}
			defer func() {
				if err := r.Close(ctx); err != nil {
					log.Warn().Err(err).Msg("close router")
				}
			}()

			out, err := r.Route(ctx, agentName, in)
			if metrics {
				if werr := writeMetrics(cmd.ErrOrStderr(), root.registry); werr != nil {
					log.Warn().Err(werr).Msg("write metrics")
				}
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "name of the agent to route to")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request id (default: random uuid)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request data as a JSON object")
	cmd.Flags().StringVar(&meta, "context", "", "request context as a JSON object")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print the route metrics to stderr")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

func parseInput(requestID, data, meta string) (contractx.AgentInput, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	dataMap, err := parseObject("data", data)
	if err != nil {
		return contractx.AgentInput{}, err
	}
	metaMap, err := parseObject("context", meta)
	if err != nil {
		return contractx.AgentInput{}, err
	}
	return contractx.NewAgentInput(requestID, dataMap, metaMap), nil
}

func parseObject(flag, raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: --%s must be a JSON object: %w", contractx.ErrValidation, flag, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
