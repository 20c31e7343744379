// Package runstore persists the outputs of routed agent requests keyed by
// request id.
package runstore

import (
	"context"
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
)

var (
	ErrRecordNotFound   = errors.New("run record not found")
	ErrInvalidRequestID = errors.New("request id is empty")
)

// Record is one completed agent run.
type Record struct {
	AgentName  string                `json:"agent_name"`
	Output     contractx.AgentOutput `json:"output"`
	RecordedAt time.Time             `json:"recorded_at"`
}

func (r Record) RequestID() string {
	return r.Output.RequestID
}

// Store is the persistence contract used by the router.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, requestID string) (Record, error)
	Delete(ctx context.Context, requestID string) error
}

func normalizeRecord(rec Record) (Record, error) {
	if strings.TrimSpace(rec.Output.RequestID) == "" {
		return Record{}, ErrInvalidRequestID
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	} else {
		rec.RecordedAt = rec.RecordedAt.UTC()
	}
	return rec, nil
}

func checkRequestID(requestID string) error {
	if strings.TrimSpace(requestID) == "" {
		return ErrInvalidRequestID
	}
	return nil
}
