// Package router dispatches named requests to registered agents. It owns the
// per-agent timeout, the serialization of non-reentrant agents and the
// verification of every output before it reaches the caller.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
	"github.com/tanpawarit/databricks-agent-toolkit/agent/runstore"
	logx "github.com/tanpawarit/databricks-agent-toolkit/pkg/logger"
	metricsx "github.com/tanpawarit/databricks-agent-toolkit/pkg/metrics"
	"golang.org/x/sync/semaphore"
)

const DefaultTimeout = 30 * time.Second

const outcomeOK = "ok"

type Option func(*Router)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithMetrics(rec metricsx.Recorder) Option {
	return func(r *Router) {
		if rec != nil {
			r.metrics = rec
		}
	}
}

// WithStore persists every successful output. Store failures are logged.
func WithStore(store runstore.Store) Option {
	return func(r *Router) {
		r.store = store
	}
}

// WithDefaultTimeout applies to agents whose metadata carries no timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.defaultTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

type entry struct {
	agent contractx.Agent
	// sem is nil for reentrant agents.
	sem *semaphore.Weighted
}

type Router struct {
	mu     sync.RWMutex
	agents map[string]*entry
	order  []string

	logger         zerolog.Logger
	metrics        metricsx.Recorder
	store          runstore.Store
	defaultTimeout time.Duration
	now            func() time.Time
}

var _ contractx.Router = (*Router)(nil)

func New(opts ...Option) *Router {
	r := &Router{
		agents:         make(map[string]*entry),
		logger:         logx.Component("router"),
		metrics:        metricsx.Nop{},
		defaultTimeout: DefaultTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register initializes agent and makes it routable under name. An agent that
// fails to initialize is not registered.
func (r *Router) Register(ctx context.Context, name string, agent contractx.Agent) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: agent name is required", contractx.ErrConfiguration)
	}
	if agent == nil {
		return fmt.Errorf("%w: agent %s is nil", contractx.ErrConfiguration, name)
	}
	if r.has(name) {
		return fmt.Errorf("%w: agent %s already registered", contractx.ErrConfiguration, name)
	}

	if err := agent.Initialize(ctx); err != nil {
		_ = agent.Cleanup(ctx)
		if errors.Is(err, contractx.ErrConfiguration) {
			return fmt.Errorf("initialize %s: %w", name, err)
		}
		return fmt.Errorf("%w: initialize %s: %w", contractx.ErrConfiguration, name, err)
	}

	md := agent.Metadata()
	e := &entry{agent: agent}
	if !md.Reentrant {
		e.sem = semaphore.NewWeighted(1)
	}

	r.mu.Lock()
	if _, ok := r.agents[name]; ok {
		r.mu.Unlock()
		_ = agent.Cleanup(ctx)
		return fmt.Errorf("%w: agent %s already registered", contractx.ErrConfiguration, name)
	}
	r.agents[name] = e
	r.order = append(r.order, name)
	count := len(r.order)
	r.mu.Unlock()

	r.metrics.SetAgents(count)
	r.logger.Info().
		Str("agent", name).
		Str("agent_id", agent.ID()).
		Str("agent_type", string(md.Type)).
		Str("priority", string(md.Priority)).
		Dur("timeout", r.timeoutFor(md)).
		Bool("reentrant", md.Reentrant).
		Msg("agent registered")
	return nil
}

// Agents returns the registered names in registration order.
func (r *Router) Agents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Router) Agent(name string) (contractx.Agent, bool) {
	e, ok := r.lookup(name)
	if !ok {
		return nil, false
	}
	return e.agent, true
}

// Route runs in through the named agent. Failures of the agent itself are
// returned as *contract.ProcessingError.
func (r *Router) Route(ctx context.Context, agentName string, in contractx.AgentInput) (contractx.AgentOutput, error) {
	e, ok := r.lookup(agentName)
	if !ok {
		return contractx.AgentOutput{}, fmt.Errorf("%w: %s", contractx.ErrAgentNotFound, agentName)
	}
	if strings.TrimSpace(in.RequestID) == "" {
		return contractx.AgentOutput{}, fmt.Errorf("%w: request_id is required", contractx.ErrValidation)
	}

	logger := r.logger.With().Str("agent", agentName).Str("request_id", in.RequestID).Logger()
	started := r.now()
	out, err := r.dispatch(ctx, agentName, e, in.Clone())
	elapsed := r.now().Sub(started)

	if err != nil {
		kind := contractx.KindOf(err)
		r.metrics.ObserveRoute(agentName, string(kind), elapsed)
		logger.Warn().Err(err).Str("kind", string(kind)).Dur("elapsed", elapsed).Msg("agent processing failed")
		return contractx.AgentOutput{}, err
	}

	r.metrics.ObserveRoute(agentName, outcomeOK, elapsed)
	logger.Debug().
		Float64("risk_score", out.RiskScore).
		Str("action", string(out.RecommendedAction)).
		Float64("latency_ms", out.LatencyMS).
		Msg("agent processing completed")
	r.persist(ctx, logger, agentName, out)
	return out, nil
}

type processResult struct {
	out contractx.AgentOutput
	err error
}

func (r *Router) dispatch(ctx context.Context, name string, e *entry, in contractx.AgentInput) (contractx.AgentOutput, error) {
	timeout := r.timeoutFor(e.agent.Metadata())
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if e.sem != nil {
		if err := e.sem.Acquire(runCtx, 1); err != nil {
			return contractx.AgentOutput{}, r.classify(ctx, runCtx, name, in, timeout, err)
		}
	}

	done := make(chan processResult, 1)
	go func() {
		defer func() {
			if e.sem != nil {
				e.sem.Release(1)
			}
		}()
		defer func() {
			if p := recover(); p != nil {
				done <- processResult{err: &contractx.ProcessingError{
					Kind: contractx.KindPanic,
					Err:  fmt.Errorf("panic: %v", p),
				}}
			}
		}()
		out, err := e.agent.Process(runCtx, in)
		done <- processResult{out: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return contractx.AgentOutput{}, r.classify(ctx, runCtx, name, in, timeout, res.err)
		}
		if err := contractx.ValidateOutput(in, res.out); err != nil {
			return contractx.AgentOutput{}, &contractx.ProcessingError{
				Kind:      contractx.KindContractViolation,
				AgentName: name,
				RequestID: in.RequestID,
				Err:       err,
			}
		}
		return res.out, nil
	case <-runCtx.Done():
		return contractx.AgentOutput{}, r.classify(ctx, runCtx, name, in, timeout, runCtx.Err())
	}
}

func (r *Router) classify(parent, runCtx context.Context, name string, in contractx.AgentInput, timeout time.Duration, err error) *contractx.ProcessingError {
	var perr *contractx.ProcessingError
	if errors.As(err, &perr) {
		out := *perr
		out.AgentName = name
		out.RequestID = in.RequestID
		return &out
	}

	perr = &contractx.ProcessingError{AgentName: name, RequestID: in.RequestID, Err: err}
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		perr.Kind = contractx.KindCanceled
	case runCtx.Err() != nil && errors.Is(err, context.DeadlineExceeded):
		perr.Kind = contractx.KindTimeout
		perr.Err = fmt.Errorf("exceeded %s: %w", timeout, err)
	default:
		perr.Kind = contractx.KindOf(err)
	}
	return perr
}

func (r *Router) persist(ctx context.Context, logger zerolog.Logger, name string, out contractx.AgentOutput) {
	if r.store == nil {
		return
	}
	rec := runstore.Record{AgentName: name, Output: out, RecordedAt: r.now().UTC()}
	if err := r.store.Save(ctx, rec); err != nil {
		logger.Error().Err(err).Msg("persist run record")
	}
}

// Close cleans up every registered agent and empties the router.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	order := r.order
	agents := r.agents
	r.order = nil
	r.agents = make(map[string]*entry)
	r.mu.Unlock()

	var result *multierror.Error
	for _, name := range order {
		if err := agents[name].agent.Cleanup(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("cleanup %s: %w", name, err))
		}
	}
	r.metrics.SetAgents(0)
	return result.ErrorOrNil()
}

func (r *Router) timeoutFor(md contractx.Metadata) time.Duration {
	if md.Timeout > 0 {
		return md.Timeout
	}
	return r.defaultTimeout
}

func (r *Router) has(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

func (r *Router) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.agents[strings.TrimSpace(name)]
	return e, ok
}
