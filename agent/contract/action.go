package contract

import (
	"fmt"
	"math"
	"strings"
)

type Action string

const (
	ActionHighPriority   Action = "high_priority"
	ActionMediumPriority Action = "medium_priority"
	ActionLowPriority    Action = "low_priority"
)

const (
	HighPriorityThreshold   = 0.8
	MediumPriorityThreshold = 0.5
)

// ActionForScore maps a score to an action. Thresholds are inclusive:
// 0.8 is high_priority and 0.5 is medium_priority.
func ActionForScore(score float64) Action {
	switch {
	case score >= HighPriorityThreshold:
		return ActionHighPriority
	case score >= MediumPriorityThreshold:
		return ActionMediumPriority
	default:
		return ActionLowPriority
	}
}

// ValidateOutput checks the invariants every AgentOutput must satisfy for in.
func ValidateOutput(in AgentInput, out AgentOutput) error {
	if out.RequestID != in.RequestID {
		return fmt.Errorf("%w: request_id=%q does not echo input request_id=%q", ErrSchemaViolation, out.RequestID, in.RequestID)
	}
	if strings.TrimSpace(out.AgentID) == "" {
		return fmt.Errorf("%w: agent_id is empty", ErrSchemaViolation)
	}
	if math.IsNaN(out.RiskScore) || out.RiskScore < 0 || out.RiskScore > 1 {
		return fmt.Errorf("%w: risk_score=%v outside [0,1]", ErrSchemaViolation, out.RiskScore)
	}
	if math.IsNaN(out.ConfidenceScore) || out.ConfidenceScore < 0 || out.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence_score=%v outside [0,1]", ErrSchemaViolation, out.ConfidenceScore)
	}
	if out.LatencyMS < 0 {
		return fmt.Errorf("%w: latency_ms=%v is negative", ErrSchemaViolation, out.LatencyMS)
	}
	if out.CompletedAt.Before(out.StartedAt) {
		return fmt.Errorf("%w: completed_at precedes started_at", ErrSchemaViolation)
	}
	if want := ActionForScore(out.RiskScore); out.RecommendedAction != want {
		return fmt.Errorf("%w: recommended_action=%q, score %.3f maps to %q", ErrSchemaViolation, out.RecommendedAction, out.RiskScore, want)
	}
	return nil
}
