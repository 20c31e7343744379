package tripplanner

import (
	"fmt"
	"math"
	"time"

	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
)

const (
	neutralScore   = 0.5
	baseConfidence = 0.3
	signalWeight   = 0.12
	maxConfidence  = 0.9
	ampleLeadDays  = 90
)

// Factor is one signal that moved the score away from neutral.
type Factor struct {
	Name   string  `json:"name"`
	Delta  float64 `json:"delta"`
	Detail string  `json:"detail"`
}

// Assessment is the scored view of a trip before it becomes an AgentOutput.
type Assessment struct {
	Score      float64     `json:"score"`
	Confidence float64     `json:"confidence"`
	Factors    []Factor    `json:"factors"`
	Trip       tripRequest `json:"trip"`
	Narrative  string      `json:"-"`
}

func (a Assessment) Action() contractx.Action {
	return contractx.ActionForScore(a.Score)
}

// assess is deterministic for a given request, settings and clock reading.
// With no recognized fields it returns the neutral score.
func assess(req tripRequest, s Settings, now time.Time) (Assessment, error) {
	out := Assessment{Trip: req, Factors: []Factor{}}
	signals := 0

	if req.Destination != "" {
		signals++
	}

	if req.Budget != nil && req.EstimatedCost != nil {
		signals++
		ratio := *req.EstimatedCost / *req.Budget
		delta := clamp((ratio-1)*0.5, -0.25, 0.4)
		switch {
		case ratio > 1:
			out.Factors = append(out.Factors, Factor{
				Name:   "budget_pressure",
				Delta:  delta,
				Detail: fmt.Sprintf("estimated cost %.2f exceeds budget %.2f", *req.EstimatedCost, *req.Budget),
			})
		case ratio < 1:
			out.Factors = append(out.Factors, Factor{
				Name:   "budget_headroom",
				Delta:  delta,
				Detail: fmt.Sprintf("estimated cost %.2f leaves %.0f%% of the budget unused", *req.EstimatedCost, (1-ratio)*100),
			})
		}
	} else if req.Budget != nil || req.EstimatedCost != nil {
		signals++
	}

	if req.StartDate != nil {
		signals++
		lead := req.leadTime(now)
		if lead < 0 {
			return Assessment{}, fmt.Errorf("%w: start_date %s is in the past", contractx.ErrValidation, req.StartDate.Format("2006-01-02"))
		}
		days := int(lead.Hours() / 24)
		switch {
		case days < s.MinLeadTimeDays:
			out.Factors = append(out.Factors, Factor{
				Name:   "short_lead_time",
				Delta:  0.15,
				Detail: fmt.Sprintf("departure in %d days, under the %d day minimum", days, s.MinLeadTimeDays),
			})
		case days > ampleLeadDays:
			out.Factors = append(out.Factors, Factor{
				Name:   "ample_lead_time",
				Delta:  -0.05,
				Detail: fmt.Sprintf("departure in %d days", days),
			})
		}
	}

	if req.DurationDays != nil {
		signals++
		if *req.DurationDays > s.MaxTripDays {
			out.Factors = append(out.Factors, Factor{
				Name:   "long_trip",
				Delta:  0.05,
				Detail: fmt.Sprintf("%d days exceeds the %d day threshold", *req.DurationDays, s.MaxTripDays),
			})
		}
	}

	if req.Travelers != nil {
		signals++
		if *req.Travelers > s.MaxTravelers {
			out.Factors = append(out.Factors, Factor{
				Name:   "large_party",
				Delta:  0.1,
				Detail: fmt.Sprintf("%d travelers exceeds the party size of %d", *req.Travelers, s.MaxTravelers),
			})
		}
	}

	score := neutralScore
	for _, f := range out.Factors {
		score += f.Delta
	}
	out.Score = contractx.Clamp01(score)
	out.Confidence = math.Min(baseConfidence+signalWeight*float64(signals), maxConfidence)
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
