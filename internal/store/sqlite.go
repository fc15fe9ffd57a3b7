package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/esg-screen/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// withPragmas adds per-connection pragmas to the DSN so every pooled
// connection enforces foreign keys and waits on locks.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate applies the embedded goose migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return eris.Wrap(err, "sqlite: set goose dialect")
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// MigrationVersion returns the current schema version.
func (s *SQLiteStore) MigrationVersion(ctx context.Context) (int64, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, eris.Wrap(err, "sqlite: set goose dialect")
	}
	v, err := goose.GetDBVersionContext(ctx, s.db)
	return v, eris.Wrap(err, "sqlite: migration version")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Parameters

func (s *SQLiteStore) CreateParameter(ctx context.Context, p model.Parameter) (*model.Parameter, error) {
	p, err := prepareParameter(p)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO parameters (id, name, data_type, unit, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.DataType), p.Unit, p.Description, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert parameter %s", p.Name)
	}
	return &p, nil
}

func (s *SQLiteStore) ListParameters(ctx context.Context) ([]model.Parameter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, data_type, unit, description, created_at FROM parameters ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list parameters")
	}
	defer rows.Close()

	var params []model.Parameter
	for rows.Next() {
		var p model.Parameter
		if err := rows.Scan(&p.ID, &p.Name, &p.DataType, &p.Unit, &p.Description, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan parameter")
		}
		params = append(params, p)
	}
	return params, eris.Wrap(rows.Err(), "sqlite: list parameters iterate")
}

// Companies

func (s *SQLiteStore) CreateCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	c, err := prepareCompany(c)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO companies (id, name, ticker, sector, region, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Ticker, c.Sector, c.Region, time.Now().UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert company %s", c.Name)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT id, name, ticker, sector, region FROM companies WHERE 1=1`
	var args []any

	if len(filter.IDs) > 0 {
		query += ` AND id IN (` + placeholders(len(filter.IDs)) + `)`
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.Sector != "" {
		query += ` AND lower(sector) = lower(?)`
		args = append(args, filter.Sector)
	}
	if filter.Region != "" {
		query += ` AND lower(region) = lower(?)`
		args = append(args, filter.Region)
	}
	query += ` ORDER BY name, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Ticker, &c.Sector, &c.Region); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

// Parameter values

func (s *SQLiteStore) UpsertParameterValues(ctx context.Context, values []model.ParameterValue) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	values, err := prepareValues(values)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO parameter_values (id, company_id, parameter_id, as_of_date, value, source)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (company_id, parameter_id, as_of_date)
		 DO UPDATE SET value = excluded.value, source = excluded.source`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert values")
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx,
			v.ID, v.CompanyID, v.ParameterID, v.AsOfDate.Format(model.DateLayout), string(v.Value), v.Source,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert value for company %s parameter %s", v.CompanyID, v.ParameterID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit values")
	}
	return len(values), nil
}

// CurrentParameterValues returns, per parameter, the value with the greatest
// as-of date not after asOf (or the latest when asOf is nil).
func (s *SQLiteStore) CurrentParameterValues(ctx context.Context, companyID string, asOf *time.Time) (model.Snapshot, error) {
	cutoff := cutoffArg(asOf)
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.name, p.data_type, p.unit, v.value, v.source, v.as_of_date
		 FROM parameter_values v
		 JOIN parameters p ON p.id = v.parameter_id
		 WHERE v.company_id = ?
		   AND v.as_of_date = (
			SELECT MAX(v2.as_of_date) FROM parameter_values v2
			WHERE v2.company_id = v.company_id
			  AND v2.parameter_id = v.parameter_id
			  AND (? IS NULL OR v2.as_of_date <= ?)
		   )`,
		companyID, cutoff, cutoff,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: current values for company %s", companyID)
	}
	defer rows.Close()

	snap := make(model.Snapshot)
	for rows.Next() {
		var (
			cv    model.CurrentValue
			value string
			date  string
		)
		if err := rows.Scan(&cv.Parameter, &cv.DataType, &cv.Unit, &value, &cv.Source, &date); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan current value")
		}
		cv.Value = json.RawMessage(value)
		if cv.AsOfDate, err = model.ParseDate(date); err != nil {
			return nil, err
		}
		snap[model.NormalizeName(cv.Parameter)] = cv
	}
	return snap, eris.Wrap(rows.Err(), "sqlite: current values iterate")
}

// Portfolios

func (s *SQLiteStore) CreatePortfolio(ctx context.Context, p model.Portfolio) (*model.Portfolio, error) {
	p, err := preparePortfolio(p)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO portfolios (id, name, client_id, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.ClientID, p.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert portfolio %s", p.Name)
	}
	for i, h := range p.Holdings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO holdings (id, portfolio_id, company_id, weight, position) VALUES (?, ?, ?, ?, ?)`,
			h.ID, p.ID, h.CompanyID, h.Weight, i,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert holding %s", h.CompanyID)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit portfolio")
	}
	return &p, nil
}

func (s *SQLiteStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	var (
		p        model.Portfolio
		clientID sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, client_id, created_at FROM portfolios WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &clientID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: portfolio %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get portfolio %s", id)
	}
	p.ClientID = nullStringPtr(clientID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.company_id, h.weight, c.id, c.name, c.ticker, c.sector, c.region
		 FROM holdings h
		 LEFT JOIN companies c ON c.id = h.company_id
		 WHERE h.portfolio_id = ?
		 ORDER BY h.position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list holdings for %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		h := model.Holding{PortfolioID: id}
		var cID, cName, cTicker, cSector, cRegion sql.NullString
		if err := rows.Scan(&h.ID, &h.CompanyID, &h.Weight, &cID, &cName, &cTicker, &cSector, &cRegion); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan holding")
		}
		if cID.Valid {
			h.Company = &model.Company{
				ID:     cID.String,
				Name:   cName.String,
				Ticker: cTicker.String,
				Sector: cSector.String,
				Region: cRegion.String,
			}
		}
		p.Holdings = append(p.Holdings, h)
	}
	return &p, eris.Wrap(rows.Err(), "sqlite: list holdings iterate")
}

func (s *SQLiteStore) UpdateHoldingWeights(ctx context.Context, portfolioID string, holdings []model.Holding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, h := range holdings {
		if err := checkWeight(h); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE holdings SET weight = ? WHERE portfolio_id = ? AND company_id = ?`,
			h.Weight, portfolioID, h.CompanyID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update weight for %s", h.CompanyID)
		}
		if err := checkRowsAffected(res, "holding", portfolioID+"/"+h.CompanyID); err != nil {
			return err
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit weights")
}

// Criteria sets

func (s *SQLiteStore) CreateCriteriaSet(ctx context.Context, cs model.CriteriaSet) (*model.CriteriaSet, error) {
	cs, err := prepareCriteriaSet(cs)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO criteria_sets (id, name, version, effective_date, client_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		cs.ID, cs.Name, cs.Version, cs.EffectiveDate.Format(model.DateLayout), cs.ClientID, cs.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert criteria set %s", cs.Name)
	}
	for _, r := range cs.Rules {
		exprJSON, err := json.Marshal(r.Expression)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: marshal rule %s", r.Name)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rules (id, criteria_set_id, name, description, expression, failure_message, severity, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, cs.ID, r.Name, r.Description, string(exprJSON), r.FailureMessage, r.Severity.String(), r.Position,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert rule %s", r.Name)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit criteria set")
	}
	return &cs, nil
}

func (s *SQLiteStore) GetCriteriaSet(ctx context.Context, id string) (*model.CriteriaSet, error) {
	cs, err := scanCriteriaSet(s.db.QueryRowContext(ctx,
		`SELECT id, name, version, effective_date, client_id, created_at FROM criteria_sets WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: criteria set %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get criteria set %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, expression, failure_message, severity, position
		 FROM rules WHERE criteria_set_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list rules for %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		r := model.Rule{CriteriaSetID: id}
		var exprJSON, severity string
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &exprJSON, &r.FailureMessage, &severity, &r.Position); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rule")
		}
		if err := decodeRule(&r, []byte(exprJSON), severity); err != nil {
			return nil, err
		}
		cs.Rules = append(cs.Rules, r)
	}
	return cs, eris.Wrap(rows.Err(), "sqlite: list rules iterate")
}

// ListCriteriaSets returns criteria set headers without rules, newest first.
func (s *SQLiteStore) ListCriteriaSets(ctx context.Context, filter CriteriaSetFilter) ([]model.CriteriaSet, error) {
	query := `SELECT id, name, version, effective_date, client_id, created_at FROM criteria_sets`
	var args []any
	switch {
	case filter.ClientID != "":
		query += ` WHERE client_id IS NULL OR client_id = ?`
		args = append(args, filter.ClientID)
	case !filter.All:
		query += ` WHERE client_id IS NULL`
	}
	query += ` ORDER BY effective_date DESC, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list criteria sets")
	}
	defer rows.Close()

	var sets []model.CriteriaSet
	for rows.Next() {
		cs, err := scanCriteriaSet(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan criteria set")
		}
		sets = append(sets, *cs)
	}
	return sets, eris.Wrap(rows.Err(), "sqlite: list criteria sets iterate")
}

// Screening results

func (s *SQLiteStore) SaveScreeningResult(ctx context.Context, r *model.ScreeningResult) (string, error) {
	enc, err := encodeResult(r)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var stats any
	if enc.Stats != nil {
		stats = string(enc.Stats)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO screening_results (id, criteria_set_id, criteria_set_name, criteria_set_version, portfolio_id,
			as_of_date, screened_at, total_holdings, passed, failed, pass_rate, portfolio_stats, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CriteriaSet.ID, r.CriteriaSet.Name, r.CriteriaSet.Version, enc.Portfolio,
		enc.AsOf, r.ScreenedAt, r.Summary.TotalHoldings, r.Summary.Passed, r.Summary.Failed, r.Summary.PassRate,
		stats, string(enc.Warnings),
	); err != nil {
		return "", eris.Wrapf(err, "sqlite: insert screening result %s", r.ID)
	}

	for _, row := range enc.Rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO company_screening_results (id, screening_id, company_id, position, passed, weight, company, rule_results)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ID, r.ID, row.CompanyID, row.Position, row.Passed, row.Weight, string(row.Company), string(row.RuleResults),
		); err != nil {
			return "", eris.Wrapf(err, "sqlite: insert company result %s", row.CompanyID)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit screening result")
	}
	return r.ID, nil
}

func (s *SQLiteStore) GetScreeningResult(ctx context.Context, id string) (*model.ScreeningResult, error) {
	r, stats, warnings, err := scanResultHeader(s.db.QueryRowContext(ctx,
		`SELECT id, criteria_set_id, criteria_set_name, criteria_set_version, portfolio_id, as_of_date,
			screened_at, total_holdings, passed, failed, pass_rate, portfolio_stats, warnings
		 FROM screening_results WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: screening result %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get screening result %s", id)
	}
	if err := decodeResultHeader(r, stats, warnings); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT passed, weight, company, rule_results FROM company_screening_results
		 WHERE screening_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list company results for %s", id)
	}
	defer rows.Close()

	r.Results = []model.CompanyScreeningResult{}
	for rows.Next() {
		var (
			c           model.CompanyScreeningResult
			weight      sql.NullFloat64
			companyJSON string
			rulesJSON   string
		)
		if err := rows.Scan(&c.Passed, &weight, &companyJSON, &rulesJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company result")
		}
		if weight.Valid {
			w := weight.Float64
			c.Weight = &w
		}
		if err := decodeResultRow(&c, []byte(companyJSON), []byte(rulesJSON)); err != nil {
			return nil, err
		}
		r.Results = append(r.Results, c)
	}
	return r, eris.Wrap(rows.Err(), "sqlite: list company results iterate")
}

func (s *SQLiteStore) ListScreeningResults(ctx context.Context, filter ResultFilter) ([]ResultSummary, error) {
	query := `SELECT id, criteria_set_id, criteria_set_name, criteria_set_version, portfolio_id, as_of_date,
			screened_at, total_holdings, passed, failed, pass_rate, portfolio_stats, warnings
		FROM screening_results WHERE 1=1`
	var args []any
	if filter.CriteriaSetID != "" {
		query += ` AND criteria_set_id = ?`
		args = append(args, filter.CriteriaSetID)
	}
	if filter.PortfolioID != "" {
		query += ` AND portfolio_id = ?`
		args = append(args, filter.PortfolioID)
	}
	query += ` ORDER BY screened_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter.Limit))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list screening results")
	}
	defer rows.Close()

	var out []ResultSummary
	for rows.Next() {
		r, _, _, err := scanResultHeader(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan screening result")
		}
		out = append(out, summaryOf(r))
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list screening results iterate")
}

func (s *SQLiteStore) DeleteScreeningResult(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM company_screening_results WHERE screening_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete company results for %s", id)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM screening_results WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete screening result %s", id)
	}
	if err := checkRowsAffected(res, "screening result", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCriteriaSet(row scannable) (*model.CriteriaSet, error) {
	var (
		cs        model.CriteriaSet
		effective string
		clientID  sql.NullString
	)
	if err := row.Scan(&cs.ID, &cs.Name, &cs.Version, &effective, &clientID, &cs.CreatedAt); err != nil {
		return nil, err
	}
	t, err := model.ParseDate(effective)
	if err != nil {
		return nil, err
	}
	cs.EffectiveDate = t
	cs.ClientID = nullStringPtr(clientID)
	return &cs, nil
}

func scanResultHeader(row scannable) (*model.ScreeningResult, []byte, []byte, error) {
	var (
		r           model.ScreeningResult
		portfolioID sql.NullString
		asOf        sql.NullString
		stats       sql.NullString
		warnings    string
	)
	if err := row.Scan(
		&r.ID, &r.CriteriaSet.ID, &r.CriteriaSet.Name, &r.CriteriaSet.Version, &portfolioID, &asOf,
		&r.ScreenedAt, &r.Summary.TotalHoldings, &r.Summary.Passed, &r.Summary.Failed, &r.Summary.PassRate,
		&stats, &warnings,
	); err != nil {
		return nil, nil, nil, err
	}
	r.PortfolioID = nullStringPtr(portfolioID)
	d, err := parseDatePtr(nullStringPtr(asOf))
	if err != nil {
		return nil, nil, nil, err
	}
	r.AsOfDate = d

	var statsJSON []byte
	if stats.Valid {
		statsJSON = []byte(stats.String)
	}
	return &r, statsJSON, []byte(warnings), nil
}

func summaryOf(r *model.ScreeningResult) ResultSummary {
	return ResultSummary{
		ID:          r.ID,
		ScreenedAt:  r.ScreenedAt,
		AsOfDate:    r.AsOfDate,
		CriteriaSet: r.CriteriaSet,
		PortfolioID: r.PortfolioID,
		Summary:     r.Summary,
	}
}

func decodeRule(r *model.Rule, exprJSON []byte, severity string) error {
	if err := json.Unmarshal(exprJSON, &r.Expression); err != nil {
		return eris.Wrapf(err, "store: unmarshal expression for rule %s", r.ID)
	}
	sev, err := model.ParseSeverity(severity)
	if err != nil {
		return err
	}
	r.Severity = sev
	return nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
