package tripplanner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
)

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeChat struct {
	reply string
	err   error
	calls int
	last  []*schema.Message
}

func (f *fakeChat) Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	f.calls++
	f.last = messages
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func newTestAgent(t *testing.T, config map[string]any, opts ...Option) *Agent {
	t.Helper()

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	a, err := New("trip_planner_agent", config, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Cleanup(context.Background()) })
	return a
}

func TestProcessEmptyDataIsNeutral(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, map[string]any{})
	out, err := a.Process(context.Background(), contractx.NewAgentInput("r1", map[string]any{}, map[string]any{}))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.RequestID != "r1" {
		t.Fatalf("RequestID = %q, want r1", out.RequestID)
	}
	if out.RiskScore != 0.5 {
		t.Fatalf("RiskScore = %v, want 0.5", out.RiskScore)
	}
	if out.RecommendedAction != contractx.ActionMediumPriority {
		t.Fatalf("RecommendedAction = %q, want medium_priority", out.RecommendedAction)
	}
	if out.AgentID != a.ID() {
		t.Fatalf("AgentID = %q, want %q", out.AgentID, a.ID())
	}
	if out.ModelName != "TripPlannerAgent" {
		t.Fatalf("ModelName = %q", out.ModelName)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("LatencyMS = %v", out.LatencyMS)
	}
	if err := contractx.ValidateOutput(contractx.NewAgentInput("r1", nil, nil), out); err != nil {
		t.Fatalf("ValidateOutput() error = %v", err)
	}
	if !strings.Contains(out.RiskNarrative, "neutral") {
		t.Fatalf("unexpected narrative: %q", out.RiskNarrative)
	}
}

func TestProcessOverBudgetShortNotice(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, nil)
	out, err := a.Process(context.Background(), contractx.NewAgentInput("r2", map[string]any{
		"destination":    "Lisbon",
		"budget":         1000,
		"estimated_cost": "1500",
		"start_date":     fixedNow.Add(3 * 24 * time.Hour).Format("2006-01-02"),
		"travelers":      2,
	}, nil))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.RecommendedAction != contractx.ActionHighPriority {
		t.Fatalf("RecommendedAction = %q (score %v), want high_priority", out.RecommendedAction, out.RiskScore)
	}
	if !strings.Contains(out.RiskNarrative, "budget pressure") || !strings.Contains(out.RiskNarrative, "short lead time") {
		t.Fatalf("unexpected narrative: %q", out.RiskNarrative)
	}
	if out.ConfidenceScore <= 0.5 {
		t.Fatalf("ConfidenceScore = %v, want confidence to grow with signals", out.ConfidenceScore)
	}
}

func TestProcessComfortableBudgetIsLowPriority(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, nil)
	out, err := a.Process(context.Background(), contractx.NewAgentInput("r3", map[string]any{
		"budget":         2000.0,
		"estimated_cost": 1000.0,
		"start_date":     fixedNow.Add(120 * 24 * time.Hour),
	}, nil))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.RecommendedAction != contractx.ActionLowPriority {
		t.Fatalf("RecommendedAction = %q (score %v), want low_priority", out.RecommendedAction, out.RiskScore)
	}
}

func TestProcessScoreIsDeterministic(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, nil)
	data := map[string]any{"budget": 800, "estimated_cost": 900, "duration_days": 30, "travelers": 9}

	first, err := a.Process(context.Background(), contractx.NewAgentInput("a", data, nil))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	second, err := a.Process(context.Background(), contractx.NewAgentInput("b", data, nil))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if first.RiskScore != second.RiskScore || first.RiskNarrative != second.RiskNarrative {
		t.Fatalf("non-deterministic result: %v/%v", first.RiskScore, second.RiskScore)
	}
	if first.RiskScore < 0 || first.RiskScore > 1 {
		t.Fatalf("RiskScore = %v outside [0,1]", first.RiskScore)
	}
}

func TestProcessInvalidInput(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, nil)
	cases := map[string]map[string]any{
		"non numeric budget": {"budget": "abc"},
		"negative budget":    {"budget": -10},
		"zero travelers":     {"travelers": 0},
		"bad date":           {"start_date": "next week"},
		"past date":          {"start_date": "2020-01-01"},
		"date type":          {"start_date": 42},
	}
	for name, data := range cases {
		_, err := a.Process(context.Background(), contractx.NewAgentInput(name, data, nil))
		if !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("%s: Process() error = %v, want ErrValidation", name, err)
		}
	}
}

func TestProcessBeforeInitialize(t *testing.T) {
	t.Parallel()

	a, err := New("trip_planner_agent", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := a.Process(context.Background(), contractx.NewAgentInput("r1", nil, nil)); !errors.Is(err, contractx.ErrNotInitialized) {
		t.Fatalf("Process() error = %v, want ErrNotInitialized", err)
	}
	if err := a.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup() before Initialize error = %v", err)
	}
}

func TestInitializeTwice(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, nil)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
}

func TestSettings(t *testing.T) {
	t.Parallel()

	a, err := New("trip_planner_agent", map[string]any{
		"model_name":         "test-model",
		"max_travelers":      "4",
		"min_lead_time_days": 14,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s := a.Settings()
	if s.ModelName != "test-model" || s.MaxTravelers != 4 || s.MinLeadTimeDays != 14 {
		t.Fatalf("unexpected settings: %#v", s)
	}
	if a.Metadata().Type != contractx.AgentTypeEnrichment || a.Metadata().Priority != contractx.PriorityNormal {
		t.Fatalf("unexpected metadata: %#v", a.Metadata())
	}
	if a.Metadata().Timeout != 30*time.Second {
		t.Fatalf("Timeout = %v, want 30s", a.Metadata().Timeout)
	}
}

func TestSettingsErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]any{
		"narrative mode":   {"narrative_mode": "poetry"},
		"threshold":        {"max_travelers": 0},
		"type":             {"max_trip_days": "long"},
		"llm without chat": {"narrative_mode": "llm"},
	}
	for name, cfg := range cases {
		if _, err := New("trip_planner_agent", cfg); !errors.Is(err, contractx.ErrConfiguration) {
			t.Fatalf("%s: New() error = %v, want ErrConfiguration", name, err)
		}
	}
}

func TestLLMNarrative(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "  Costs run over budget; trim lodging.  "}
	a := newTestAgent(t, map[string]any{"narrative_mode": "llm"}, WithChat(chat))

	out, err := a.Process(context.Background(), contractx.NewAgentInput("r4", map[string]any{
		"budget":         1000,
		"estimated_cost": 1300,
	}, nil))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.RiskNarrative != "Costs run over budget; trim lodging." {
		t.Fatalf("RiskNarrative = %q", out.RiskNarrative)
	}
	if chat.calls != 1 || len(chat.last) != 2 {
		t.Fatalf("unexpected chat usage: calls=%d messages=%d", chat.calls, len(chat.last))
	}
	if chat.last[0].Role != schema.System || !strings.Contains(chat.last[1].Content, "budget_pressure") {
		t.Fatalf("unexpected prompt: %#v", chat.last)
	}
}

func TestLLMNarrativeFailureIsNotAResult(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: errors.New("endpoint scaled to zero")}
	a := newTestAgent(t, map[string]any{"narrative_mode": "llm"}, WithChat(chat))

	out, err := a.Process(context.Background(), contractx.NewAgentInput("r5", nil, nil))
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Process() error = %v, want ErrModelInvoke", err)
	}
	if out.RequestID != "" {
		t.Fatalf("failed Process must not return an output: %#v", out)
	}
}

func TestFactoryAppliesRouterConfig(t *testing.T) {
	t.Parallel()

	factory := NewFactory(WithClock(func() time.Time { return fixedNow }))
	agent, err := factory(contractx.AgentConfig{
		Name:           "planner",
		Type:           TypeName,
		TimeoutSeconds: 2,
		Priority:       "high",
		Config:         map[string]any{"model_name": "factory-model"},
	})
	if err != nil {
		t.Fatalf("factory() error = %v", err)
	}
	md := agent.Metadata()
	if md.Timeout != 2*time.Second || md.Priority != contractx.PriorityHigh {
		t.Fatalf("unexpected metadata: %#v", md)
	}
	if agent.Name() != "planner" {
		t.Fatalf("Name() = %q", agent.Name())
	}

	if _, err := factory(contractx.AgentConfig{Name: "p", Priority: "urgent"}); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("factory() error = %v, want ErrConfiguration", err)
	}
}

func TestLLMNarrativeUsesSettingsEndpoint(t *testing.T) {
	t.Parallel()

	defaultChat := &fakeChat{reply: "default"}
	endpointChat := &fakeChat{reply: "from endpoint"}
	var requested string
	a := newTestAgent(t,
		map[string]any{"narrative_mode": "llm", "endpoint": "trip-narratives"},
		WithChat(defaultChat),
		WithChatFactory(func(endpoint string) (Chatter, error) {
			requested = endpoint
			return endpointChat, nil
		}),
	)

	out, err := a.Process(context.Background(), contractx.NewAgentInput("r6", nil, nil))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if requested != "trip-narratives" || out.RiskNarrative != "from endpoint" || defaultChat.calls != 0 {
		t.Fatalf("endpoint=%q narrative=%q defaultCalls=%d", requested, out.RiskNarrative, defaultChat.calls)
	}

	_, err = New("p", map[string]any{"narrative_mode": "llm", "endpoint": "gone"},
		WithChatFactory(func(string) (Chatter, error) { return nil, errors.New("no such endpoint") }))
	if !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("New() error = %v, want ErrConfiguration", err)
	}
}

func TestProcessDepartingTodayIsShortNotice(t *testing.T) {
	t.Parallel()

	afternoon := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	a := newTestAgent(t, nil, WithClock(func() time.Time { return afternoon }))

	out, err := a.Process(context.Background(), contractx.NewAgentInput("today", map[string]any{
		"start_date": "2026-10-18",
	}, nil))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.RiskScore <= 0.5 || !strings.Contains(out.RiskNarrative, "departure in 0 days") {
		t.Fatalf("Process() = score %v narrative %q, want a same-day short lead time", out.RiskScore, out.RiskNarrative)
	}

	_, err = a.Process(context.Background(), contractx.NewAgentInput("yesterday", map[string]any{
		"start_date": "2026-10-17",
	}, nil))
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Process() error = %v, want ErrValidation for yesterday", err)
	}

	// a timestamp earlier today is still in the past
	_, err = a.Process(context.Background(), contractx.NewAgentInput("this-morning", map[string]any{
		"start_date": "2026-10-18T08:00:00Z",
	}, nil))
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Process() error = %v, want ErrValidation for a past timestamp", err)
	}
}
