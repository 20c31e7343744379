package contract

import "context"

// Agent is one unit of domain processing behind a uniform lifecycle:
// Initialize once, Process zero or more times, Cleanup once.
type Agent interface {
	ID() string
	Name() string
	Metadata() Metadata

	// Initialize is idempotent; a second call returns nil without side effects.
	Initialize(ctx context.Context) error
	Process(ctx context.Context, in AgentInput) (AgentOutput, error)
	// Cleanup is idempotent and safe to call before Initialize.
	Cleanup(ctx context.Context) error
}

type Router interface {
	Route(ctx context.Context, agentName string, in AgentInput) (AgentOutput, error)
}

// Factory builds an agent from its declarative configuration.
type Factory func(cfg AgentConfig) (Agent, error)
