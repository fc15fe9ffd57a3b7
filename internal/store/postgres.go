package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-screen/internal/db"
	"github.com/sells-group/esg-screen/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const sqlCurrentValues = `SELECT DISTINCT ON (v.parameter_id) p.name, p.data_type, p.unit, v.value, v.source, v.as_of_date
FROM parameter_values v
JOIN parameters p ON p.id = v.parameter_id
WHERE v.company_id = $1 AND ($2::date IS NULL OR v.as_of_date <= $2::date)
ORDER BY v.parameter_id, v.as_of_date DESC`

const sqlGetCriteriaSet = `SELECT id, name, version, effective_date, client_id, created_at FROM criteria_sets WHERE id = $1`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

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

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS parameters (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL UNIQUE,
	data_type   TEXT NOT NULL CHECK (data_type IN ('number', 'boolean', 'string')),
	unit        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	ticker     TEXT NOT NULL DEFAULT '',
	sector     TEXT NOT NULL DEFAULT '',
	region     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS parameter_values (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id   TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	parameter_id TEXT NOT NULL REFERENCES parameters(id) ON DELETE CASCADE,
	as_of_date   DATE NOT NULL,
	value        JSONB NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	UNIQUE (company_id, parameter_id, as_of_date)
);

CREATE TABLE IF NOT EXISTS portfolios (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	client_id  TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS holdings (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	company_id   TEXT NOT NULL REFERENCES companies(id),
	weight       DOUBLE PRECISION NOT NULL DEFAULT 0,
	position     INTEGER NOT NULL DEFAULT 0,
	UNIQUE (portfolio_id, company_id)
);

CREATE TABLE IF NOT EXISTS criteria_sets (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name           TEXT NOT NULL,
	version        TEXT NOT NULL,
	effective_date DATE NOT NULL,
	client_id      TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rules (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	criteria_set_id TEXT NOT NULL REFERENCES criteria_sets(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	expression      JSONB NOT NULL,
	failure_message TEXT NOT NULL DEFAULT '',
	severity        TEXT NOT NULL DEFAULT 'exclude' CHECK (severity IN ('exclude', 'warn', 'info')),
	position        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS screening_results (
	id                   TEXT PRIMARY KEY,
	criteria_set_id      TEXT NOT NULL,
	criteria_set_name    TEXT NOT NULL,
	criteria_set_version TEXT NOT NULL,
	portfolio_id         TEXT,
	as_of_date           DATE,
	screened_at          TIMESTAMPTZ NOT NULL,
	total_holdings       INTEGER NOT NULL,
	passed               INTEGER NOT NULL,
	failed               INTEGER NOT NULL,
	pass_rate            INTEGER NOT NULL,
	portfolio_stats      JSONB,
	warnings             JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS company_screening_results (
	id           TEXT PRIMARY KEY,
	screening_id TEXT NOT NULL REFERENCES screening_results(id) ON DELETE CASCADE,
	company_id   TEXT NOT NULL,
	position     INTEGER NOT NULL,
	passed       BOOLEAN NOT NULL,
	weight       DOUBLE PRECISION,
	company      JSONB NOT NULL,
	rule_results JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_parameter_values_lookup ON parameter_values(company_id, parameter_id, as_of_date DESC);
CREATE INDEX IF NOT EXISTS idx_holdings_portfolio ON holdings(portfolio_id, position);
CREATE INDEX IF NOT EXISTS idx_rules_criteria_set ON rules(criteria_set_id, position);
CREATE INDEX IF NOT EXISTS idx_criteria_sets_client ON criteria_sets(client_id);
CREATE INDEX IF NOT EXISTS idx_screening_results_screened_at ON screening_results(screened_at DESC);
CREATE INDEX IF NOT EXISTS idx_company_screening_results_screening ON company_screening_results(screening_id, position);
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

// Parameters

func (s *PostgresStore) CreateParameter(ctx context.Context, p model.Parameter) (*model.Parameter, error) {
	p, err := prepareParameter(p)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO parameters (id, name, data_type, unit, description, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, string(p.DataType), p.Unit, p.Description, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert parameter %s", p.Name)
	}
	return &p, nil
}

func (s *PostgresStore) ListParameters(ctx context.Context) ([]model.Parameter, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, data_type, unit, description, created_at FROM parameters ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list parameters")
	}
	defer rows.Close()

	var params []model.Parameter
	for rows.Next() {
		var p model.Parameter
		var dt string
		if err := rows.Scan(&p.ID, &p.Name, &dt, &p.Unit, &p.Description, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan parameter")
		}
		p.DataType = model.DataType(dt)
		params = append(params, p)
	}
	return params, eris.Wrap(rows.Err(), "postgres: list parameters iterate")
}

// Companies

func (s *PostgresStore) CreateCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	c, err := prepareCompany(c)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO companies (id, name, ticker, sector, region) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Ticker, c.Sector, c.Region,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert company %s", c.Name)
	}
	return &c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT id, name, ticker, sector, region FROM companies WHERE true`
	args := []any{}
	argIdx := 1

	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(` AND id = ANY($%d)`, argIdx)
		args = append(args, filter.IDs)
		argIdx++
	}
	if filter.Sector != "" {
		query += fmt.Sprintf(` AND lower(sector) = lower($%d)`, argIdx)
		args = append(args, filter.Sector)
		argIdx++
	}
	if filter.Region != "" {
		query += fmt.Sprintf(` AND lower(region) = lower($%d)`, argIdx)
		args = append(args, filter.Region)
		argIdx++
	}
	query += ` ORDER BY name, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Ticker, &c.Sector, &c.Region); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

// Parameter values

var valueUpsert = db.UpsertConfig{
	Table:        "parameter_values",
	Columns:      []string{"id", "company_id", "parameter_id", "as_of_date", "value", "source"},
	ConflictKeys: []string{"company_id", "parameter_id", "as_of_date"},
	UpdateCols:   []string{"value", "source"},
}

func (s *PostgresStore) UpsertParameterValues(ctx context.Context, values []model.ParameterValue) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	values, err := prepareValues(values)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, len(values))
	for i, v := range values {
		rows[i] = []any{v.ID, v.CompanyID, v.ParameterID, v.AsOfDate, []byte(v.Value), v.Source}
	}
	n, err := db.BulkUpsert(ctx, s.pool, valueUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert parameter values")
	}
	return int(n), nil
}

func (s *PostgresStore) CurrentParameterValues(ctx context.Context, companyID string, asOf *time.Time) (model.Snapshot, error) {
	var cutoff *time.Time
	if asOf != nil {
		d := model.DateOnly(*asOf)
		cutoff = &d
	}

	rows, err := s.pool.Query(ctx, sqlCurrentValues, companyID, cutoff)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: current values for company %s", companyID)
	}
	defer rows.Close()

	snap := make(model.Snapshot)
	for rows.Next() {
		var (
			cv    model.CurrentValue
			dt    string
			value []byte
		)
		if err := rows.Scan(&cv.Parameter, &dt, &cv.Unit, &value, &cv.Source, &cv.AsOfDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan current value")
		}
		cv.DataType = model.DataType(dt)
		cv.Value = json.RawMessage(value)
		snap[model.NormalizeName(cv.Parameter)] = cv
	}
	return snap, eris.Wrap(rows.Err(), "postgres: current values iterate")
}

// Portfolios

func (s *PostgresStore) CreatePortfolio(ctx context.Context, p model.Portfolio) (*model.Portfolio, error) {
	p, err := preparePortfolio(p)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO portfolios (id, name, client_id, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.ClientID, p.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert portfolio %s", p.Name)
	}

	rows := make([][]any, len(p.Holdings))
	for i, h := range p.Holdings {
		rows[i] = []any{h.ID, p.ID, h.CompanyID, h.Weight, i}
	}
	if _, err := db.CopyFromTx(ctx, tx, "holdings", []string{"id", "portfolio_id", "company_id", "weight", "position"}, rows); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert holdings for %s", p.Name)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit portfolio")
	}
	return &p, nil
}

func (s *PostgresStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	var p model.Portfolio
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, client_id, created_at FROM portfolios WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.ClientID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: portfolio %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get portfolio %s", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT h.id, h.company_id, h.weight, c.id, c.name, c.ticker, c.sector, c.region
		 FROM holdings h
		 LEFT JOIN companies c ON c.id = h.company_id
		 WHERE h.portfolio_id = $1
		 ORDER BY h.position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list holdings for %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		h := model.Holding{PortfolioID: id}
		var cID, cName, cTicker, cSector, cRegion *string
		if err := rows.Scan(&h.ID, &h.CompanyID, &h.Weight, &cID, &cName, &cTicker, &cSector, &cRegion); err != nil {
			return nil, eris.Wrap(err, "postgres: scan holding")
		}
		if cID != nil {
			h.Company = &model.Company{
				ID:     *cID,
				Name:   deref(cName),
				Ticker: deref(cTicker),
				Sector: deref(cSector),
				Region: deref(cRegion),
			}
		}
		p.Holdings = append(p.Holdings, h)
	}
	return &p, eris.Wrap(rows.Err(), "postgres: list holdings iterate")
}

func (s *PostgresStore) UpdateHoldingWeights(ctx context.Context, portfolioID string, holdings []model.Holding) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, h := range holdings {
		if err := checkWeight(h); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE holdings SET weight = $1 WHERE portfolio_id = $2 AND company_id = $3`,
			h.Weight, portfolioID, h.CompanyID,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: update weight for %s", h.CompanyID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "holding %s/%s", portfolioID, h.CompanyID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit weights")
}

// Criteria sets

func (s *PostgresStore) CreateCriteriaSet(ctx context.Context, cs model.CriteriaSet) (*model.CriteriaSet, error) {
	cs, err := prepareCriteriaSet(cs)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO criteria_sets (id, name, version, effective_date, client_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		cs.ID, cs.Name, cs.Version, cs.EffectiveDate, cs.ClientID, cs.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert criteria set %s", cs.Name)
	}
	for _, r := range cs.Rules {
		exprJSON, err := json.Marshal(r.Expression)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: marshal rule %s", r.Name)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO rules (id, criteria_set_id, name, description, expression, failure_message, severity, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.ID, cs.ID, r.Name, r.Description, exprJSON, r.FailureMessage, r.Severity.String(), r.Position,
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: insert rule %s", r.Name)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit criteria set")
	}
	return &cs, nil
}

func (s *PostgresStore) GetCriteriaSet(ctx context.Context, id string) (*model.CriteriaSet, error) {
	var cs model.CriteriaSet
	err := s.pool.QueryRow(ctx, sqlGetCriteriaSet, id).
		Scan(&cs.ID, &cs.Name, &cs.Version, &cs.EffectiveDate, &cs.ClientID, &cs.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: criteria set %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get criteria set %s", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, expression, failure_message, severity, position
		 FROM rules WHERE criteria_set_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list rules for %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		r := model.Rule{CriteriaSetID: id}
		var exprJSON []byte
		var severity string
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &exprJSON, &r.FailureMessage, &severity, &r.Position); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rule")
		}
		if err := decodeRule(&r, exprJSON, severity); err != nil {
			return nil, err
		}
		cs.Rules = append(cs.Rules, r)
	}
	return &cs, eris.Wrap(rows.Err(), "postgres: list rules iterate")
}

// ListCriteriaSets returns criteria set headers without rules, newest first.
func (s *PostgresStore) ListCriteriaSets(ctx context.Context, filter CriteriaSetFilter) ([]model.CriteriaSet, error) {
	query := `SELECT id, name, version, effective_date, client_id, created_at FROM criteria_sets`
	args := []any{}
	switch {
	case filter.ClientID != "":
		query += ` WHERE client_id IS NULL OR client_id = $1`
		args = append(args, filter.ClientID)
	case !filter.All:
		query += ` WHERE client_id IS NULL`
	}
	query += ` ORDER BY effective_date DESC, name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list criteria sets")
	}
	defer rows.Close()

	var sets []model.CriteriaSet
	for rows.Next() {
		var cs model.CriteriaSet
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.Version, &cs.EffectiveDate, &cs.ClientID, &cs.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan criteria set")
		}
		sets = append(sets, cs)
	}
	return sets, eris.Wrap(rows.Err(), "postgres: list criteria sets iterate")
}

// Screening results

var companyResultCols = []string{"id", "screening_id", "company_id", "position", "passed", "weight", "company", "rule_results"}

func (s *PostgresStore) SaveScreeningResult(ctx context.Context, r *model.ScreeningResult) (string, error) {
	enc, err := encodeResult(r)
	if err != nil {
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO screening_results (id, criteria_set_id, criteria_set_name, criteria_set_version, portfolio_id,
			as_of_date, screened_at, total_holdings, passed, failed, pass_rate, portfolio_stats, warnings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.CriteriaSet.ID, r.CriteriaSet.Name, r.CriteriaSet.Version, enc.Portfolio,
		r.AsOfDate, r.ScreenedAt, r.Summary.TotalHoldings, r.Summary.Passed, r.Summary.Failed, r.Summary.PassRate,
		enc.Stats, enc.Warnings,
	); err != nil {
		return "", eris.Wrapf(err, "postgres: insert screening result %s", r.ID)
	}

	rows := make([][]any, len(enc.Rows))
	for i, row := range enc.Rows {
		rows[i] = []any{row.ID, r.ID, row.CompanyID, row.Position, row.Passed, row.Weight, row.Company, row.RuleResults}
	}
	if _, err := db.CopyFromTx(ctx, tx, "company_screening_results", companyResultCols, rows); err != nil {
		return "", eris.Wrapf(err, "postgres: insert company results for %s", r.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: commit screening result")
	}
	return r.ID, nil
}

const sqlResultHeader = `SELECT id, criteria_set_id, criteria_set_name, criteria_set_version, portfolio_id, as_of_date,
	screened_at, total_holdings, passed, failed, pass_rate, portfolio_stats, warnings
FROM screening_results`

func (s *PostgresStore) GetScreeningResult(ctx context.Context, id string) (*model.ScreeningResult, error) {
	r, stats, warnings, err := scanPgResultHeader(s.pool.QueryRow(ctx, sqlResultHeader+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: screening result %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get screening result %s", id)
	}
	if err := decodeResultHeader(r, stats, warnings); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT passed, weight, company, rule_results FROM company_screening_results
		 WHERE screening_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list company results for %s", id)
	}
	defer rows.Close()

	r.Results = []model.CompanyScreeningResult{}
	for rows.Next() {
		var c model.CompanyScreeningResult
		var companyJSON, rulesJSON []byte
		if err := rows.Scan(&c.Passed, &c.Weight, &companyJSON, &rulesJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company result")
		}
		if err := decodeResultRow(&c, companyJSON, rulesJSON); err != nil {
			return nil, err
		}
		r.Results = append(r.Results, c)
	}
	return r, eris.Wrap(rows.Err(), "postgres: list company results iterate")
}

func (s *PostgresStore) ListScreeningResults(ctx context.Context, filter ResultFilter) ([]ResultSummary, error) {
	query := sqlResultHeader + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.CriteriaSetID != "" {
		query += fmt.Sprintf(` AND criteria_set_id = $%d`, argIdx)
		args = append(args, filter.CriteriaSetID)
		argIdx++
	}
	if filter.PortfolioID != "" {
		query += fmt.Sprintf(` AND portfolio_id = $%d`, argIdx)
		args = append(args, filter.PortfolioID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY screened_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list screening results")
	}
	defer rows.Close()

	var out []ResultSummary
	for rows.Next() {
		r, _, _, err := scanPgResultHeader(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan screening result")
		}
		out = append(out, summaryOf(r))
	}
	return out, eris.Wrap(rows.Err(), "postgres: list screening results iterate")
}

func (s *PostgresStore) DeleteScreeningResult(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM screening_results WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete screening result %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "screening result %s", id)
	}
	return nil
}

func scanPgResultHeader(row pgx.Row) (*model.ScreeningResult, []byte, []byte, error) {
	var r model.ScreeningResult
	var stats, warnings []byte
	if err := row.Scan(
		&r.ID, &r.CriteriaSet.ID, &r.CriteriaSet.Name, &r.CriteriaSet.Version, &r.PortfolioID, &r.AsOfDate,
		&r.ScreenedAt, &r.Summary.TotalHoldings, &r.Summary.Passed, &r.Summary.Failed, &r.Summary.PassRate,
		&stats, &warnings,
	); err != nil {
		return nil, nil, nil, err
	}
	return &r, stats, warnings, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
