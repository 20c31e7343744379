// Package base provides the lifecycle bookkeeping shared by every agent.
// Concrete agents embed *Agent and override Process, and optionally supply
// setup and teardown hooks.
package base

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
)

const DefaultTimeout = 30 * time.Second

type state int

const (
	stateNew state = iota
	stateReady
	stateClosed
)

type Option func(*Agent)

func WithID(id string) Option {
	return func(a *Agent) {
		if v := strings.TrimSpace(id); v != "" {
			a.id = v
		}
	}
}

func WithMetadata(md contractx.Metadata) Option {
	return func(a *Agent) {
		a.metadata = md
	}
}

func WithTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.metadata.Timeout = d
		}
	}
}

func WithPriority(p contractx.ExecutionPriority) Option {
	return func(a *Agent) {
		if p != "" {
			a.metadata.Priority = p
		}
	}
}

// WithSetup runs fn on the first Initialize call.
func WithSetup(fn func(ctx context.Context) error) Option {
	return func(a *Agent) {
		a.setup = fn
	}
}

// WithTeardown runs fn on the first Cleanup call after a successful Initialize.
func WithTeardown(fn func(ctx context.Context) error) Option {
	return func(a *Agent) {
		a.teardown = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// Agent implements contractx.Agent except for real domain logic: its Process
// reports ErrNotImplemented so a missing implementation is never mistaken for
// a scored result.
type Agent struct {
	id       string
	name     string
	config   map[string]any
	metadata contractx.Metadata

	setup    func(ctx context.Context) error
	teardown func(ctx context.Context) error
	now      func() time.Time

	mu    sync.Mutex
	state state
}

var _ contractx.Agent = (*Agent)(nil)

func New(name string, config map[string]any, opts ...Option) (*Agent, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: agent name is required", contractx.ErrConfiguration)
	}
	if config == nil {
		config = map[string]any{}
	}

	a := &Agent{
		id:     uuid.NewString(),
		name:   name,
		config: config,
		metadata: contractx.Metadata{
			Type:     contractx.AgentTypeEnrichment,
			Priority: contractx.PriorityNormal,
			Timeout:  DefaultTimeout,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if !a.metadata.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown agent type=%q", contractx.ErrConfiguration, a.metadata.Type)
	}
	if !a.metadata.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown execution priority=%q", contractx.ErrConfiguration, a.metadata.Priority)
	}
	if a.metadata.Timeout <= 0 {
		a.metadata.Timeout = DefaultTimeout
	}
	return a, nil
}

func (a *Agent) ID() string                   { return a.id }
func (a *Agent) Name() string                 { return a.name }
func (a *Agent) Metadata() contractx.Metadata { return a.metadata }
func (a *Agent) Now() time.Time               { return a.now() }

// Config returns the opaque configuration the agent was built with.
func (a *Agent) Config() map[string]any {
	return a.config
}

func (a *Agent) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case stateReady:
		return nil
	case stateClosed:
		return fmt.Errorf("%w: agent=%s was cleaned up", contractx.ErrConfiguration, a.name)
	}

	if a.setup != nil {
		if err := a.setup(ctx); err != nil {
			return fmt.Errorf("%w: initialize agent=%s: %v", contractx.ErrConfiguration, a.name, err)
		}
	}
	a.state = stateReady
	return nil
}

func (a *Agent) Cleanup(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.state
	a.state = stateClosed
	if prev != stateReady || a.teardown == nil {
		return nil
	}
	return a.teardown(ctx)
}

// Ready reports ErrNotInitialized unless Initialize succeeded and Cleanup has
// not run yet.
func (a *Agent) Ready() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != stateReady {
		return fmt.Errorf("%w: agent=%s", contractx.ErrNotInitialized, a.name)
	}
	return nil
}

func (a *Agent) Process(ctx context.Context, in contractx.AgentInput) (contractx.AgentOutput, error) {
	if err := a.Ready(); err != nil {
		return contractx.AgentOutput{}, err
	}
	return contractx.AgentOutput{}, fmt.Errorf("%w: agent=%s", contractx.ErrNotImplemented, a.name)
}

// Finish stamps res with this agent's identity and the completion time.
func (a *Agent) Finish(in contractx.AgentInput, res contractx.Result, startedAt time.Time) contractx.AgentOutput {
	return contractx.NewAgentOutput(in, a.id, res, startedAt, a.now())
}
