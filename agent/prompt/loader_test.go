package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if set.TripPlannerNarrative == "" {
		t.Fatal("trip planner narrative prompt is empty")
	}
	if strings.TrimSpace(set.TripPlannerNarrative) != set.TripPlannerNarrative {
		t.Fatal("prompt must be trimmed")
	}
}
