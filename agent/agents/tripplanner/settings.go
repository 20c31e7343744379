package tripplanner

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
)

const (
	NarrativeRules = "rules"
	NarrativeLLM   = "llm"
)

// Settings are the recognized keys of the agent's opaque config map.
type Settings struct {
	ModelName       string `mapstructure:"model_name"`
	NarrativeMode   string `mapstructure:"narrative_mode"`
	Endpoint        string `mapstructure:"endpoint"`
	MinLeadTimeDays int    `mapstructure:"min_lead_time_days"`
	MaxTravelers    int    `mapstructure:"max_travelers"`
	MaxTripDays     int    `mapstructure:"max_trip_days"`
}

func defaultSettings() Settings {
	return Settings{
		ModelName:       "TripPlannerAgent",
		NarrativeMode:   NarrativeRules,
		MinLeadTimeDays: 7,
		MaxTravelers:    6,
		MaxTripDays:     21,
	}
}

func decodeSettings(config map[string]any) (Settings, error) {
	s := defaultSettings()
	if len(config) == 0 {
		return s, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Settings{}, fmt.Errorf("%w: build settings decoder: %v", contractx.ErrConfiguration, err)
	}
	if err := decoder.Decode(config); err != nil {
		return Settings{}, fmt.Errorf("%w: decode trip planner settings: %v", contractx.ErrConfiguration, err)
	}

	s.ModelName = strings.TrimSpace(s.ModelName)
	if s.ModelName == "" {
		s.ModelName = defaultSettings().ModelName
	}
	s.NarrativeMode = strings.ToLower(strings.TrimSpace(s.NarrativeMode))
	switch s.NarrativeMode {
	case "":
		s.NarrativeMode = NarrativeRules
	case NarrativeRules, NarrativeLLM:
	default:
		return Settings{}, fmt.Errorf("%w: unsupported narrative_mode=%q", contractx.ErrConfiguration, s.NarrativeMode)
	}
	if s.MinLeadTimeDays < 0 || s.MaxTravelers <= 0 || s.MaxTripDays <= 0 {
		return Settings{}, fmt.Errorf("%w: trip planner thresholds must be positive", contractx.ErrConfiguration)
	}
	return s, nil
}
