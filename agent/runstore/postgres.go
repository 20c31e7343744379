package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type runRow struct {
	bun.BaseModel `bun:"table:agent_runs,alias:r"`

	RequestID         string    `bun:"request_id,pk"`
	AgentName         string    `bun:"agent_name,notnull"`
	AgentID           string    `bun:"agent_id,notnull"`
	RiskScore         float64   `bun:"risk_score,notnull"`
	RiskNarrative     string    `bun:"risk_narrative"`
	RecommendedAction string    `bun:"recommended_action,notnull"`
	ConfidenceScore   float64   `bun:"confidence_score,notnull"`
	StartedAt         time.Time `bun:"started_at,notnull"`
	CompletedAt       time.Time `bun:"completed_at,notnull"`
	LatencyMS         float64   `bun:"latency_ms,notnull"`
	ModelName         string    `bun:"model_name"`
	RecordedAt        time.Time `bun:"recorded_at,notnull"`
}

func toRow(rec Record) *runRow {
	out := rec.Output
	return &runRow{
		RequestID:         out.RequestID,
		AgentName:         rec.AgentName,
		AgentID:           out.AgentID,
		RiskScore:         out.RiskScore,
		RiskNarrative:     out.RiskNarrative,
		RecommendedAction: string(out.RecommendedAction),
		ConfidenceScore:   out.ConfidenceScore,
		StartedAt:         out.StartedAt,
		CompletedAt:       out.CompletedAt,
		LatencyMS:         out.LatencyMS,
		ModelName:         out.ModelName,
		RecordedAt:        rec.RecordedAt,
	}
}

func (r *runRow) record() Record {
	return Record{
		AgentName: r.AgentName,
		Output: contractx.AgentOutput{
			RequestID:         r.RequestID,
			AgentID:           r.AgentID,
			RiskScore:         r.RiskScore,
			RiskNarrative:     r.RiskNarrative,
			RecommendedAction: contractx.Action(r.RecommendedAction),
			ConfidenceScore:   r.ConfidenceScore,
			StartedAt:         r.StartedAt.UTC(),
			CompletedAt:       r.CompletedAt.UTC(),
			LatencyMS:         r.LatencyMS,
			ModelName:         r.ModelName,
		},
		RecordedAt: r.RecordedAt.UTC(),
	}
}

// PostgresStore keeps records in an agent_runs table.
type PostgresStore struct {
	db *bun.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects with cfg.DSN and verifies the connection.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the agent_runs table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*runRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create agent_runs table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	rec, err := normalizeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().
		Model(toRow(rec)).
		On("CONFLICT (request_id) DO UPDATE").
		Set("agent_name = EXCLUDED.agent_name").
		Set("agent_id = EXCLUDED.agent_id").
		Set("risk_score = EXCLUDED.risk_score").
		Set("risk_narrative = EXCLUDED.risk_narrative").
		Set("recommended_action = EXCLUDED.recommended_action").
		Set("confidence_score = EXCLUDED.confidence_score").
		Set("started_at = EXCLUDED.started_at").
		Set("completed_at = EXCLUDED.completed_at").
		Set("latency_ms = EXCLUDED.latency_ms").
		Set("model_name = EXCLUDED.model_name").
		Set("recorded_at = EXCLUDED.recorded_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save run record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, requestID string) (Record, error) {
	if err := checkRequestID(requestID); err != nil {
		return Record{}, err
	}
	row := new(runRow)
	err := s.db.NewSelect().Model(row).Where("r.request_id = ?", requestID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load run record: %w", err)
	}
	return row.record(), nil
}

func (s *PostgresStore) Delete(ctx context.Context, requestID string) error {
	if err := checkRequestID(requestID); err != nil {
		return err
	}
	if _, err := s.db.NewDelete().Model((*runRow)(nil)).Where("request_id = ?", requestID).Exec(ctx); err != nil {
		return fmt.Errorf("delete run record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
