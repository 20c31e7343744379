// Package toolkit resolves the optional integrations an agent application can
// use. A capability whose configuration or dependency is missing is recorded
// as Unavailable and logged; resolution itself never fails.
package toolkit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
	"github.com/tanpawarit/databricks-agent-toolkit/agent/runstore"
	configx "github.com/tanpawarit/databricks-agent-toolkit/pkg/config"
	logx "github.com/tanpawarit/databricks-agent-toolkit/pkg/logger"
	"github.com/tanpawarit/databricks-agent-toolkit/pkg/serving"
)

type Capability string

const (
	CapabilityLLM       Capability = "llm"
	CapabilityWorkspace Capability = "workspace"
	CapabilityRunStore  Capability = "runstore"
)

const (
	DefaultServingPrefix  = "DATABRICKS"
	DefaultRunStorePrefix = "RUNSTORE"
	UpstashPrefix         = "UPSTASH_REDIS"
	LakebasePrefix        = "LAKEBASE"
)

const (
	BackendMemory   = "memory"
	BackendUpstash  = "upstash"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

// RunStoreConfig selects the run store backend.
type RunStoreConfig struct {
	Backend string        `envconfig:"BACKEND" split_words:"true" default:"memory"`
	TTL     time.Duration `envconfig:"TTL" split_words:"true" default:"1h"`
}

// Unavailable reports a capability that could not be resolved.
type Unavailable struct {
	Capability Capability
	Reason     error
}

func (u *Unavailable) Error() string {
	return fmt.Sprintf("toolkit: %s unavailable: %v", u.Capability, u.Reason)
}

func (u *Unavailable) Unwrap() error {
	return u.Reason
}

func (u *Unavailable) Is(target error) bool {
	return target == contractx.ErrUnavailable
}

type Option func(*options)

type options struct {
	logger         zerolog.Logger
	servingPrefix  string
	servingConfig  *serving.Config
	runStorePrefix string
	runStoreConfig *RunStoreConfig
	runStore       runstore.Store
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithServingConfig skips loading the serving configuration from the environment.
func WithServingConfig(cfg serving.Config) Option {
	return func(o *options) {
		o.servingConfig = &cfg
	}
}

func WithServingPrefix(prefix string) Option {
	return func(o *options) {
		if p := strings.TrimSpace(prefix); p != "" {
			o.servingPrefix = p
		}
	}
}

func WithRunStoreConfig(cfg RunStoreConfig) Option {
	return func(o *options) {
		o.runStoreConfig = &cfg
	}
}

func WithRunStorePrefix(prefix string) Option {
	return func(o *options) {
		if p := strings.TrimSpace(prefix); p != "" {
			o.runStorePrefix = p
		}
	}
}

// WithRunStore uses store instead of building one from configuration.
func WithRunStore(store runstore.Store) Option {
	return func(o *options) {
		o.runStore = store
	}
}

// Toolkit holds the capabilities resolved at startup.
type Toolkit struct {
	servingCfg  serving.Config
	llm         *serving.LLM
	workspace   *openaisdk.Client
	store       runstore.Store
	unavailable map[Capability]*Unavailable
	logger      zerolog.Logger
}

// Resolve loads every capability once. Missing capabilities are logged as
// warnings and reported by the matching accessor.
func Resolve(ctx context.Context, opts ...Option) *Toolkit {
	o := options{
		logger:         logx.Component("toolkit"),
		servingPrefix:  DefaultServingPrefix,
		runStorePrefix: DefaultRunStorePrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	tk := &Toolkit{
		unavailable: make(map[Capability]*Unavailable),
		logger:      o.logger,
	}
	tk.resolveServing(ctx, o)
	tk.resolveRunStore(ctx, o)

	for _, status := range tk.Status() {
		if status.Available {
			tk.logger.Debug().Str("capability", string(status.Capability)).Msg("capability available")
			continue
		}
		tk.logger.Warn().
			Str("capability", string(status.Capability)).
			Str("reason", status.Reason).
			Msg("capability unavailable")
	}
	return tk
}

func (t *Toolkit) resolveServing(ctx context.Context, o options) {
	cfg := o.servingConfig
	if cfg == nil {
		loaded, err := configx.New[serving.Config](o.servingPrefix)
		if err != nil {
			t.markUnavailable(CapabilityLLM, err)
			t.markUnavailable(CapabilityWorkspace, err)
			return
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		t.markUnavailable(CapabilityLLM, err)
		t.markUnavailable(CapabilityWorkspace, err)
		return
	}

	t.servingCfg = *cfg
	if llm, err := serving.NewLLM(ctx, *cfg); err != nil {
		t.markUnavailable(CapabilityLLM, err)
	} else {
		t.llm = llm
	}
	if client, err := serving.NewClient(*cfg); err != nil {
		t.markUnavailable(CapabilityWorkspace, err)
	} else {
		t.workspace = client
	}
}

func (t *Toolkit) resolveRunStore(ctx context.Context, o options) {
	if o.runStore != nil {
		t.store = o.runStore
		return
	}

	cfg := o.runStoreConfig
	if cfg == nil {
		loaded, err := configx.New[RunStoreConfig](o.runStorePrefix)
		if err != nil {
			t.markUnavailable(CapabilityRunStore, err)
			return
		}
		cfg = loaded
	}

	store, err := openRunStore(ctx, *cfg)
	if err != nil {
		t.markUnavailable(CapabilityRunStore, err)
		return
	}
	t.store = store
}

func openRunStore(ctx context.Context, cfg RunStoreConfig) (runstore.Store, error) {
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", BackendMemory:
		return runstore.NewMemoryStore(cfg.TTL), nil
	case BackendUpstash:
		upstashCfg, err := configx.New[runstore.UpstashRedisConfig](UpstashPrefix)
		if err != nil {
			return nil, err
		}
		return runstore.NewUpstashRedisStore(*upstashCfg)
	case BackendPostgres:
		pgCfg, err := configx.New[runstore.PostgresConfig](LakebasePrefix)
		if err != nil {
			return nil, err
		}
		store, err := runstore.OpenPostgres(ctx, *pgCfg)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case BackendNone:
		return nil, errors.New("run store disabled")
	default:
		return nil, fmt.Errorf("unknown run store backend %q", backend)
	}
}

func (t *Toolkit) markUnavailable(c Capability, reason error) {
	t.unavailable[c] = &Unavailable{Capability: c, Reason: reason}
}

func (t *Toolkit) missing(c Capability) error {
	if u, ok := t.unavailable[c]; ok {
		return u
	}
	return &Unavailable{Capability: c, Reason: errors.New("not resolved")}
}

// LLM returns the serving chat model or an *Unavailable error.
func (t *Toolkit) LLM() (*serving.LLM, error) {
	if t.llm == nil {
		return nil, t.missing(CapabilityLLM)
	}
	return t.llm, nil
}

// LLMFor returns a chat model bound to endpoint, sharing the resolved host
// and token. An empty endpoint returns the default model.
func (t *Toolkit) LLMFor(ctx context.Context, endpoint string) (*serving.LLM, error) {
	llm, err := t.LLM()
	if err != nil {
		return nil, err
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || endpoint == llm.Endpoint() {
		return llm, nil
	}
	return serving.NewLLM(ctx, t.servingCfg.WithEndpoint(endpoint))
}

// Workspace returns the authenticated workspace client or an *Unavailable error.
func (t *Toolkit) Workspace() (*openaisdk.Client, error) {
	if t.workspace == nil {
		return nil, t.missing(CapabilityWorkspace)
	}
	return t.workspace, nil
}

func (t *Toolkit) RunStore() (runstore.Store, error) {
	if t.store == nil {
		return nil, t.missing(CapabilityRunStore)
	}
	return t.store, nil
}

// CheckAuthentication verifies the workspace credentials with one request.
func (t *Toolkit) CheckAuthentication(ctx context.Context) error {
	client, err := t.Workspace()
	if err != nil {
		return err
	}
	return serving.CheckAuthentication(ctx, client)
}

type CapabilityStatus struct {
	Capability Capability `json:"capability"`
	Available  bool       `json:"available"`
	Reason     string     `json:"reason,omitempty"`
}

// Status lists every capability sorted by name.
func (t *Toolkit) Status() []CapabilityStatus {
	all := []Capability{CapabilityLLM, CapabilityWorkspace, CapabilityRunStore}
	out := make([]CapabilityStatus, 0, len(all))
	for _, c := range all {
		status := CapabilityStatus{Capability: c, Available: true}
		if u, ok := t.unavailable[c]; ok {
			status.Available = false
			status.Reason = u.Reason.Error()
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Capability < out[j].Capability })
	return out
}

// Close releases the run store when it holds a connection.
func (t *Toolkit) Close() error {
	if closer, ok := t.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
