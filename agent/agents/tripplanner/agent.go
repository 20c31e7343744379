// Package tripplanner scores the feasibility risk of a travel plan.
package tripplanner

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/tanpawarit/databricks-agent-toolkit/agent/agents/base"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
)

// TypeName is the router configuration type that builds this agent.
const TypeName = "trip_planner"

type Option func(*options)

type options struct {
	narrator Narrator
	chat     Chatter
	chatFor  func(endpoint string) (Chatter, error)
	now      func() time.Time
	base     []base.Option
}

// WithNarrator overrides the narrator chosen from settings.
func WithNarrator(n Narrator) Option {
	return func(o *options) { o.narrator = n }
}

// WithChat supplies the chat model used when narrative_mode is "llm".
func WithChat(c Chatter) Option {
	return func(o *options) { o.chat = c }
}

// WithChatFactory builds the chat model for a settings endpoint that differs
// from the default one.
func WithChatFactory(fn func(endpoint string) (Chatter, error)) Option {
	return func(o *options) { o.chatFor = fn }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithBaseOptions(opts ...base.Option) Option {
	return func(o *options) { o.base = append(o.base, opts...) }
}

func (o options) chatModel(endpoint string) (Chatter, error) {
	if endpoint != "" && o.chatFor != nil {
		return o.chatFor(endpoint)
	}
	return o.chat, nil
}

type Agent struct {
	*base.Agent

	settings Settings
	narrator Narrator
	now      func() time.Time
	runner   compose.Runnable[contractx.AgentInput, *tripState]
}

func New(name string, config map[string]any, opts ...Option) (*Agent, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	settings, err := decodeSettings(config)
	if err != nil {
		return nil, err
	}

	narrator := o.narrator
	if narrator == nil {
		switch settings.NarrativeMode {
		case NarrativeLLM:
			chat, err := o.chatModel(settings.Endpoint)
			if err != nil {
				return nil, fmt.Errorf("%w: endpoint %s: %w", contractx.ErrConfiguration, settings.Endpoint, err)
			}
			if chat == nil {
				return nil, fmt.Errorf("%w: narrative_mode=llm requires a serving endpoint", contractx.ErrConfiguration)
			}
			narrator = NewLLMNarrator(chat)
		default:
			narrator = RuleNarrator{}
		}
	}

	a := &Agent{
		settings: settings,
		narrator: narrator,
		now:      o.now,
	}

	baseOpts := append([]base.Option{
		base.WithMetadata(contractx.Metadata{
			Type:     contractx.AgentTypeEnrichment,
			Priority: contractx.PriorityNormal,
			Timeout:  base.DefaultTimeout,
		}),
		base.WithClock(o.now),
		base.WithSetup(a.setup),
	}, o.base...)

	a.Agent, err = base.New(name, config, baseOpts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NewFactory adapts New to the router configuration.
func NewFactory(opts ...Option) contractx.Factory {
	return func(cfg contractx.AgentConfig) (contractx.Agent, error) {
		agentOpts := append([]Option{}, opts...)
		agentOpts = append(agentOpts, WithBaseOptions(
			base.WithTimeout(cfg.Timeout()),
			base.WithPriority(contractx.ExecutionPriority(cfg.Priority)),
		))
		return New(cfg.Name, cfg.Config, agentOpts...)
	}
}

func (a *Agent) Settings() Settings {
	return a.settings
}

func (a *Agent) setup(ctx context.Context) error {
	runner, err := compileTripGraph(ctx, a.settings, a.narrator, a.now)
	if err != nil {
		return err
	}
	a.runner = runner
	return nil
}

func (a *Agent) Process(ctx context.Context, in contractx.AgentInput) (contractx.AgentOutput, error) {
	if err := a.Ready(); err != nil {
		return contractx.AgentOutput{}, err
	}
	startedAt := a.Now()

	st, err := a.runner.Invoke(ctx, in)
	if err != nil {
		return contractx.AgentOutput{}, fmt.Errorf("trip planner graph: %w", err)
	}
	if st.err != nil {
		return contractx.AgentOutput{}, st.err
	}
	if err := ctx.Err(); err != nil {
		return contractx.AgentOutput{}, err
	}

	return a.Finish(in, contractx.Result{
		Score:      st.assessment.Score,
		Narrative:  st.assessment.Narrative,
		Confidence: st.assessment.Confidence,
		ModelName:  a.settings.ModelName,
	}, startedAt), nil
}
