package tripplanner

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
)

const dateOnlyLayout = "2006-01-02"

var dateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

// tripRequest is the normalized view of AgentInput.Data. Absent fields stay nil.
type tripRequest struct {
	Destination   string     `mapstructure:"destination" json:"destination,omitempty"`
	Budget        *float64   `mapstructure:"budget" json:"budget,omitempty"`
	EstimatedCost *float64   `mapstructure:"estimated_cost" json:"estimated_cost,omitempty"`
	DurationDays  *int       `mapstructure:"duration_days" json:"duration_days,omitempty"`
	Travelers     *int       `mapstructure:"travelers" json:"travelers,omitempty"`
	StartDate     *time.Time `mapstructure:"-" json:"start_date,omitempty"`
	// DateOnly is set when start_date carried no time of day.
	DateOnly bool `mapstructure:"-" json:"-"`
}

func decodeRequest(data map[string]any) (tripRequest, error) {
	var req tripRequest
	if len(data) == 0 {
		return req, nil
	}

	fields := make(map[string]any, len(data))
	for k, v := range data {
		if k == "start_date" || v == nil {
			continue
		}
		fields[k] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return tripRequest{}, fmt.Errorf("%w: build request decoder: %v", contractx.ErrValidation, err)
	}
	if err := decoder.Decode(fields); err != nil {
		return tripRequest{}, fmt.Errorf("%w: decode trip request: %v", contractx.ErrValidation, err)
	}
	req.Destination = strings.TrimSpace(req.Destination)

	if raw, ok := data["start_date"]; ok && raw != nil {
		start, dateOnly, err := parseDate(raw)
		if err != nil {
			return tripRequest{}, err
		}
		req.StartDate = &start
		req.DateOnly = dateOnly
	}

	if err := req.validate(); err != nil {
		return tripRequest{}, err
	}
	return req, nil
}

func (r tripRequest) validate() error {
	if r.Budget != nil && *r.Budget <= 0 {
		return fmt.Errorf("%w: budget must be > 0", contractx.ErrValidation)
	}
	if r.EstimatedCost != nil && *r.EstimatedCost < 0 {
		return fmt.Errorf("%w: estimated_cost must be >= 0", contractx.ErrValidation)
	}
	if r.DurationDays != nil && *r.DurationDays <= 0 {
		return fmt.Errorf("%w: duration_days must be > 0", contractx.ErrValidation)
	}
	if r.Travelers != nil && *r.Travelers <= 0 {
		return fmt.Errorf("%w: travelers must be > 0", contractx.ErrValidation)
	}
	return nil
}

func parseDate(raw any) (time.Time, bool, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), false, nil
	case *time.Time:
		if v != nil {
			return v.UTC(), false, nil
		}
	case string:
		s := strings.TrimSpace(v)
		if t, err := time.Parse(dateOnlyLayout, s); err == nil {
			return t.UTC(), true, nil
		}
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), false, nil
			}
		}
		return time.Time{}, false, fmt.Errorf("%w: start_date=%q is not a date", contractx.ErrValidation, s)
	}
	return time.Time{}, false, fmt.Errorf("%w: start_date has unsupported type %T", contractx.ErrValidation, raw)
}

// leadTime is the time left before departure. Date-only starts are compared
// against the start of the current UTC day, so departing today has zero lead.
func (r tripRequest) leadTime(now time.Time) time.Duration {
	if r.DateOnly {
		y, m, d := now.UTC().Date()
		return r.StartDate.Sub(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}
	return r.StartDate.Sub(now)
}
