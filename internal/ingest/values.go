package ingest

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/store"
)

// DefaultBatchSize is the number of values written per upsert call.
const DefaultBatchSize = 500

// Repository is the store subset the importer needs.
type Repository interface {
	ListParameters(ctx context.Context) ([]model.Parameter, error)
	ListCompanies(ctx context.Context, filter store.CompanyFilter) ([]model.Company, error)
	UpsertParameterValues(ctx context.Context, values []model.ParameterValue) (int, error)
}

// Options controls an import.
type Options struct {
	// AsOfDate is used for rows without an as_of_date column or cell.
	AsOfDate *time.Time
	// Source is recorded on rows without a source cell.
	Source string
	// Strict aborts the import, writing nothing, if any row is rejected.
	Strict    bool
	BatchSize int
	Sheet     XLSXOptions
}

// RowError describes a rejected input row. Line is 1-based and counts the
// header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Report summarizes an import.
type Report struct {
	Rows     int        `json:"rows"`
	Written  int        `json:"written"`
	Skipped  int        `json:"skipped"`
	Rejected []RowError `json:"rejected,omitempty"`
}

// Importer converts tabular files into parameter values. Files are long
// format: one row per (company, parameter, date) with columns company,
// parameter, value and optionally as_of_date and source. The company cell
// may hold a company ID or ticker.
type Importer struct {
	repo Repository
}

// NewImporter creates an Importer.
func NewImporter(repo Repository) *Importer {
	return &Importer{repo: repo}
}

var headerAliases = map[string]string{
	"company":        "company",
	"company_id":     "company",
	"ticker":         "company",
	"parameter":      "parameter",
	"parameter_name": "parameter",
	"metric":         "parameter",
	"value":          "value",
	"as_of_date":     "as_of_date",
	"as_of":          "as_of_date",
	"date":           "as_of_date",
	"source":         "source",
}

type columns map[string]int

func mapHeader(header []string) (columns, error) {
	cols := make(columns)
	for i, h := range header {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", "_"))
		if canon, ok := headerAliases[key]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	var missing []string
	for _, req := range []string{"company", "parameter", "value"} {
		if _, ok := cols[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("ingest: header is missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// ImportFile reads path and upserts its values.
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Report, error) {
	rows, err := ReadFile(ctx, path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	rep, err := im.ImportRows(ctx, rows, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: import %s", path)
	}
	return rep, nil
}

// ImportRows converts rows (header first) and upserts them in batches.
func (im *Importer) ImportRows(ctx context.Context, rows [][]string, opts Options) (*Report, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: file is empty")
	}
	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	res, err := im.newResolver(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	values := make([]model.ParameterValue, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}
		rep.Rows++
		v, skip, err := res.convert(row, cols, opts)
		if err != nil {
			rep.Rejected = append(rep.Rejected, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if skip {
			rep.Skipped++
			continue
		}
		values = append(values, v)
	}

	if opts.Strict && len(rep.Rejected) > 0 {
		first := rep.Rejected[0]
		return rep, eris.Errorf("ingest: %d rows rejected (line %d: %s)", len(rep.Rejected), first.Line, first.Reason)
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	for start := 0; start < len(values); start += batch {
		end := min(start+batch, len(values))
		n, err := im.repo.UpsertParameterValues(ctx, values[start:end])
		if err != nil {
			return rep, eris.Wrapf(err, "ingest: write rows %d-%d", start+1, end)
		}
		rep.Written += n
	}

	zap.L().Info("ingest: values imported",
		zap.Int("rows", rep.Rows),
		zap.Int("written", rep.Written),
		zap.Int("skipped", rep.Skipped),
		zap.Int("rejected", len(rep.Rejected)),
	)
	return rep, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

type resolver struct {
	params    map[string]model.Parameter
	companies map[string]string
}

func (im *Importer) newResolver(ctx context.Context) (*resolver, error) {
	params, err := im.repo.ListParameters(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list parameters")
	}
	companies, err := im.repo.ListCompanies(ctx, store.CompanyFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list companies")
	}

	r := &resolver{
		params:    make(map[string]model.Parameter, len(params)),
		companies: make(map[string]string, 2*len(companies)),
	}
	for _, p := range params {
		r.params[model.NormalizeName(p.Name)] = p
	}
	for _, c := range companies {
		if c.Ticker != "" {
			r.companies[strings.ToUpper(c.Ticker)] = c.ID
		}
	}
	// IDs win over tickers that happen to collide with them.
	for _, c := range companies {
		r.companies[c.ID] = c.ID
	}
	return r, nil
}

func (r *resolver) company(key string) (string, bool) {
	if id, ok := r.companies[key]; ok {
		return id, true
	}
	id, ok := r.companies[strings.ToUpper(key)]
	return id, ok
}

// convert turns one row into a value. An empty value cell is skipped, not
// rejected.
func (r *resolver) convert(row []string, cols columns, opts Options) (model.ParameterValue, bool, error) {
	var v model.ParameterValue

	companyKey := cols.get(row, "company")
	companyID, ok := r.company(companyKey)
	if !ok {
		return v, false, eris.Errorf("unknown company %q", companyKey)
	}
	paramName := cols.get(row, "parameter")
	p, ok := r.params[model.NormalizeName(paramName)]
	if !ok {
		return v, false, eris.Errorf("unknown parameter %q", paramName)
	}

	raw := cols.get(row, "value")
	if raw == "" {
		return v, true, nil
	}
	value, err := EncodeValue(raw, p.DataType)
	if err != nil {
		return v, false, err
	}

	var asOf time.Time
	switch d := cols.get(row, "as_of_date"); {
	case d != "":
		if asOf, err = model.ParseDate(d); err != nil {
			return v, false, eris.Errorf("invalid as_of_date %q, want YYYY-MM-DD", d)
		}
	case opts.AsOfDate != nil:
		asOf = *opts.AsOfDate
	default:
		return v, false, eris.Errorf("no as_of_date for %s", p.Name)
	}

	source := cols.get(row, "source")
	if source == "" {
		source = opts.Source
	}

	return model.ParameterValue{
		CompanyID:   companyID,
		ParameterID: p.ID,
		AsOfDate:    model.DateOnly(asOf),
		Value:       value,
		Source:      source,
	}, false, nil
}

// EncodeValue converts a cell into the JSON stored for a parameter of type
// dt. Numbers accept a trailing percent sign ("12.5%" is 12.5) and thousands
// separators; booleans accept true/false, yes/no, y/n and 1/0.
func EncodeValue(raw string, dt model.DataType) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	switch dt {
	case model.DataTypeNumber:
		s := strings.ReplaceAll(strings.TrimSpace(strings.TrimSuffix(raw, "%")), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, eris.Errorf("value %q is not a number", raw)
		}
		return json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64)), nil
	case model.DataTypeBoolean:
		switch strings.ToLower(raw) {
		case "true", "yes", "y", "1":
			return json.RawMessage("true"), nil
		case "false", "no", "n", "0":
			return json.RawMessage("false"), nil
		}
		return nil, eris.Errorf("value %q is not a boolean", raw)
	case model.DataTypeString:
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, eris.Wrap(err, "encode string value")
		}
		return b, nil
	}
	return nil, eris.Errorf("parameter has unknown data type %q", dt)
}
