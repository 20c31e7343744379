package contract

import (
	"fmt"
	"math"
	"time"
)

type AgentType string

const (
	AgentTypeEnrichment    AgentType = "enrichment"
	AgentTypeScoring       AgentType = "scoring"
	AgentTypeTriage        AgentType = "triage"
	AgentTypeOrchestration AgentType = "orchestration"
)

func (t AgentType) Valid() bool {
	switch t {
	case AgentTypeEnrichment, AgentTypeScoring, AgentTypeTriage, AgentTypeOrchestration:
		return true
	}
	return false
}

type ExecutionPriority string

const (
	PriorityCritical ExecutionPriority = "critical"
	PriorityHigh     ExecutionPriority = "high"
	PriorityNormal   ExecutionPriority = "normal"
	PriorityLow      ExecutionPriority = "low"
)

func (p ExecutionPriority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Metadata is fixed at construction and never changes over an agent's life.
type Metadata struct {
	Type     AgentType         `json:"agent_type"`
	Priority ExecutionPriority `json:"execution_priority"`
	Timeout  time.Duration     `json:"timeout"`
	// Reentrant agents may run several Process calls at once.
	Reentrant bool `json:"reentrant"`
}

// AgentConfig is one agent entry of the router configuration file.
type AgentConfig struct {
	Name           string         `mapstructure:"name"`
	Type           string         `mapstructure:"type"`
	Enabled        *bool          `mapstructure:"enabled"`
	TimeoutSeconds float64        `mapstructure:"timeout_seconds"`
	Priority       string         `mapstructure:"priority"`
	Config         map[string]any `mapstructure:"config"`
}

func (c AgentConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// maxTimeoutSeconds is the largest timeout_seconds a time.Duration can hold.
const maxTimeoutSeconds = float64(math.MaxInt64 / int64(time.Second))

// Validate rejects timeout_seconds values that are negative, NaN or too large
// for a time.Duration.
func (c AgentConfig) Validate() error {
	if math.IsNaN(c.TimeoutSeconds) || c.TimeoutSeconds < 0 || c.TimeoutSeconds > maxTimeoutSeconds {
		return fmt.Errorf("%w: timeout_seconds=%v out of range [0, %.0f]", ErrConfiguration, c.TimeoutSeconds, maxTimeoutSeconds)
	}
	return nil
}

// Timeout is zero when timeout_seconds is unset or invalid; see Validate.
func (c AgentConfig) Timeout() time.Duration {
	if !(c.TimeoutSeconds > 0) || c.TimeoutSeconds > maxTimeoutSeconds {
		return 0
	}
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

type AgentInput struct {
	RequestID string         `json:"request_id"`
	Data      map[string]any `json:"data"`
	Context   map[string]any `json:"context"`
}

// NewAgentInput copies data and meta so later changes by the caller are not observed.
func NewAgentInput(requestID string, data, meta map[string]any) AgentInput {
	return AgentInput{
		RequestID: requestID,
		Data:      cloneMap(data),
		Context:   cloneMap(meta),
	}
}

func (in AgentInput) Clone() AgentInput {
	return NewAgentInput(in.RequestID, in.Data, in.Context)
}

type AgentOutput struct {
	RequestID         string    `json:"request_id"`
	AgentID           string    `json:"agent_id"`
	RiskScore         float64   `json:"risk_score"`
	RiskNarrative     string    `json:"risk_narrative"`
	RecommendedAction Action    `json:"recommended_action"`
	ConfidenceScore   float64   `json:"confidence_score"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`
	LatencyMS         float64   `json:"latency_ms"`
	ModelName         string    `json:"model_name"`
}

// Result is what an agent's domain logic produces; NewAgentOutput turns it
// into the wire record.
type Result struct {
	Score      float64
	Narrative  string
	Confidence float64
	ModelName  string
}

// NewAgentOutput builds the output for in. Scores are clamped to [0,1] and the
// latency is derived from the two timestamps.
func NewAgentOutput(in AgentInput, agentID string, res Result, startedAt, completedAt time.Time) AgentOutput {
	// UTC drops the monotonic reading, so the latency below always matches
	// the stored timestamps.
	startedAt = startedAt.UTC()
	completedAt = completedAt.UTC()
	if completedAt.Before(startedAt) {
		completedAt = startedAt
	}
	score := Clamp01(res.Score)
	return AgentOutput{
		RequestID:         in.RequestID,
		AgentID:           agentID,
		RiskScore:         score,
		RiskNarrative:     res.Narrative,
		RecommendedAction: ActionForScore(score),
		ConfidenceScore:   Clamp01(res.Confidence),
		StartedAt:         startedAt,
		CompletedAt:       completedAt,
		LatencyMS:         float64(completedAt.Sub(startedAt)) / float64(time.Millisecond),
		ModelName:         res.ModelName,
	}
}

func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the JSON-shaped containers nested in input maps. Other
// values are shared as-is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		return cloneMap(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
