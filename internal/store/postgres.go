package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-planner/internal/db"
	"github.com/sells-group/coverage-planner/internal/model"
)

// PostgresStore implements Store using pgxpool. Beyond the plan document it
// writes relational plan_sites and plan_households rows, so site decisions
// and unserved households can be queried across plans with plain SQL.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"upsert_plan": `INSERT INTO plans (id, instance, status, covered_population, total_population, budget, threshold_km, solver, detail, created_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	 ON CONFLICT (id) DO UPDATE SET status = $3, covered_population = $4, total_population = $5, budget = $6, threshold_km = $7, solver = $8, detail = $9`,
	"get_plan":               `SELECT detail FROM plans WHERE id = $1`,
	"delete_plan":            `DELETE FROM plans WHERE id = $1`,
	"delete_plan_households": `DELETE FROM plan_households WHERE plan_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// newPostgresWithPool wires an existing pool, used by tests.
func newPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS plans (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	instance           TEXT NOT NULL,
	status             TEXT NOT NULL,
	covered_population BIGINT NOT NULL,
	total_population   BIGINT NOT NULL,
	budget             INTEGER NOT NULL,
	threshold_km       DOUBLE PRECISION NOT NULL,
	solver             TEXT,
	detail             JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS plan_sites (
	plan_id  TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
	site_id  TEXT NOT NULL,
	existing BOOLEAN NOT NULL,
	PRIMARY KEY (plan_id, site_id)
);

CREATE TABLE IF NOT EXISTS plan_households (
	plan_id      TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
	household_id TEXT NOT NULL,
	state        TEXT NOT NULL,
	PRIMARY KEY (plan_id, household_id)
);

CREATE INDEX IF NOT EXISTS idx_plans_instance ON plans(instance);
CREATE INDEX IF NOT EXISTS idx_plans_status ON plans(status);
CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_plan_sites_site ON plan_sites(site_id);
CREATE INDEX IF NOT EXISTS idx_plan_households_state ON plan_households(state);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SavePlan(ctx context.Context, plan *model.Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	detail, err := json.Marshal(plan)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal plan")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO plans (id, instance, status, covered_population, total_population, budget, threshold_km, solver, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET status = $3, covered_population = $4, total_population = $5, budget = $6, threshold_km = $7, solver = $8, detail = $9`,
		plan.ID, plan.InstanceName, string(plan.Status),
		plan.CoveredPopulation, plan.TotalPopulation,
		plan.Budget, plan.Threshold, plan.Solver,
		detail, plan.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save plan %s", plan.ID)
	}

	if err := s.savePlanSites(ctx, plan); err != nil {
		return err
	}
	return s.savePlanHouseholds(ctx, plan)
}

func (s *PostgresStore) savePlanSites(ctx context.Context, plan *model.Plan) error {
	rows := make([][]any, 0, len(plan.OpenedSites)+len(plan.ExistingSites))
	for _, id := range plan.OpenedSites {
		rows = append(rows, []any{plan.ID, id, false})
	}
	for _, id := range plan.ExistingSites {
		rows = append(rows, []any{plan.ID, id, true})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "plan_sites",
		Columns:      []string{"plan_id", "site_id", "existing"},
		ConflictKeys: []string{"plan_id", "site_id"},
	}, rows)
	return err
}

func (s *PostgresStore) savePlanHouseholds(ctx context.Context, plan *model.Plan) error {
	// Replace wholesale; the row sets can be large, COPY handles them.
	if _, err := s.pool.Exec(ctx, `DELETE FROM plan_households WHERE plan_id = $1`, plan.ID); err != nil {
		return eris.Wrapf(err, "postgres: clear plan households %s", plan.ID)
	}

	rows := make([][]any, 0, len(plan.UncoverableHouseholds)+len(plan.UnservedReachable))
	for _, id := range plan.UncoverableHouseholds {
		rows = append(rows, []any{plan.ID, id, "uncoverable"})
	}
	for _, id := range plan.UnservedReachable {
		rows = append(rows, []any{plan.ID, id, "unserved"})
	}

	_, err := db.CopyFrom(ctx, s.pool, "plan_households", []string{"plan_id", "household_id", "state"}, rows)
	return err
}

func (s *PostgresStore) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	var detail []byte
	err := s.pool.QueryRow(ctx, `SELECT detail FROM plans WHERE id = $1`, id).Scan(&detail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get plan %s", id)
	}

	var plan model.Plan
	if err := json.Unmarshal(detail, &plan); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal plan")
	}
	return &plan, nil
}

func (s *PostgresStore) ListPlans(ctx context.Context, filter PlanFilter) ([]model.Plan, error) {
	query := `SELECT detail FROM plans WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Instance != "" {
		query += fmt.Sprintf(` AND instance = $%d`, argIdx)
		args = append(args, filter.Instance)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list plans")
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, eris.Wrap(err, "postgres: scan plan")
		}
		var plan model.Plan
		if err := json.Unmarshal(detail, &plan); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal plan")
		}
		plans = append(plans, plan)
	}
	return plans, eris.Wrap(rows.Err(), "postgres: list plans iterate")
}

func (s *PostgresStore) DeletePlan(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete plan %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: %s", id)
	}
	return nil
}
