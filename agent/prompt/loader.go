package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/trip_planner_narrative.txt
	tripPlannerNarrativeRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	TripPlannerNarrative string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		TripPlannerNarrative: strings.TrimSpace(tripPlannerNarrativeRaw),
	}
}
