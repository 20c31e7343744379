package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
	configx "github.com/tanpawarit/databricks-agent-toolkit/pkg/config"
)

// FileConfig is the layout of the router configuration file:
//
//	agents:
//	  - name: trip_planner
//	    type: trip_planner
//	    enabled: true
//	    timeout_seconds: 30
//	    priority: normal
//	    config: {}
type FileConfig struct {
	Agents []contractx.AgentConfig `mapstructure:"agents"`
}

func LoadConfig(path string) (*FileConfig, error) {
	cfg, err := configx.ReadFile[FileConfig](path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrConfiguration, err)
	}
	return cfg, nil
}

// FromYAML builds a router from the configuration file at path. factories
// maps an agent type to its constructor.
func FromYAML(ctx context.Context, path string, factories map[string]contractx.Factory, opts ...Option) (*Router, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return FromConfig(ctx, cfg, factories, opts...)
}

// FromConfig registers every enabled agent of cfg. Any failure cleans up the
// agents registered so far.
func FromConfig(ctx context.Context, cfg *FileConfig, factories map[string]contractx.Factory, opts ...Option) (*Router, error) {
	r := New(opts...)
	if cfg == nil {
		return r, nil
	}

	for i, ac := range cfg.Agents {
		if err := r.registerConfig(ctx, i, ac, factories); err != nil {
			if cerr := r.Close(ctx); cerr != nil {
				r.logger.Warn().Err(cerr).Msg("cleanup after failed configuration")
			}
			return nil, err
		}
	}
	return r, nil
}

func (r *Router) registerConfig(ctx context.Context, idx int, ac contractx.AgentConfig, factories map[string]contractx.Factory) error {
	ac.Name = strings.TrimSpace(ac.Name)
	ac.Type = strings.TrimSpace(ac.Type)
	if ac.Name == "" {
		return fmt.Errorf("%w: agents[%d]: name is required", contractx.ErrConfiguration, idx)
	}
	if !ac.IsEnabled() {
		r.logger.Info().Str("agent", ac.Name).Msg("agent disabled, skipping")
		return nil
	}
	if err := ac.Validate(); err != nil {
		return fmt.Errorf("agent %s: %w", ac.Name, err)
	}
	if ac.Type == "" {
		ac.Type = ac.Name
	}

	factory, ok := factories[ac.Type]
	if !ok || factory == nil {
		return fmt.Errorf("%w: agent %s: unknown type %q", contractx.ErrConfiguration, ac.Name, ac.Type)
	}
	agent, err := factory(ac)
	if err != nil {
		if errors.Is(err, contractx.ErrConfiguration) {
			return fmt.Errorf("agent %s: %w", ac.Name, err)
		}
		return fmt.Errorf("%w: agent %s: %w", contractx.ErrConfiguration, ac.Name, err)
	}
	return r.Register(ctx, ac.Name, agent)
}
