package tripplanner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
	promptx "github.com/tanpawarit/databricks-agent-toolkit/agent/prompt"
)

type Narrator interface {
	Narrate(ctx context.Context, a Assessment) (string, error)
}

// Chatter is satisfied by serving.LLM.
type Chatter interface {
	Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error)
}

type RuleNarrator struct{}

func (RuleNarrator) Narrate(_ context.Context, a Assessment) (string, error) {
	if len(a.Factors) == 0 {
		if a.Trip == (tripRequest{}) {
			return "No trip details were provided; the plan is rated at a neutral risk level.", nil
		}
		return "No risk factors found in the provided trip details.", nil
	}

	parts := make([]string, 0, len(a.Factors))
	for _, f := range a.Factors {
		parts = append(parts, fmt.Sprintf("%s (%s)", strings.ReplaceAll(f.Name, "_", " "), f.Detail))
	}
	return "Risk factors: " + strings.Join(parts, "; ") + ".", nil
}

type LLMNarrator struct {
	chat   Chatter
	prompt string
}

func NewLLMNarrator(chat Chatter) *LLMNarrator {
	return &LLMNarrator{
		chat:   chat,
		prompt: promptx.LoadPromptSet().TripPlannerNarrative,
	}
}

func (n *LLMNarrator) Narrate(ctx context.Context, a Assessment) (string, error) {
	payload := map[string]any{
		"score":   a.Score,
		"action":  a.Action(),
		"factors": a.Factors,
		"trip":    a.Trip,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal narrative payload: %v", contractx.ErrValidation, err)
	}

	msg, err := n.chat.Chat(ctx, []*schema.Message{
		schema.SystemMessage(n.prompt),
		schema.UserMessage(string(input)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: narrative invoke: %v", contractx.ErrModelInvoke, err)
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", fmt.Errorf("%w: narrative is empty", contractx.ErrModelInvoke)
	}
	return text, nil
}
