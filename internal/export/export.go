// Package export writes screening results as terminal tables, CSV, XLSX or
// JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/esg-screen/internal/model"
)

// Format is an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatJSON  Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	}
	return "", eris.Errorf("export: unsupported format %q (want table, csv, xlsx or json)", s)
}

// FormatForPath picks a format from a file extension, falling back to def.
func FormatForPath(path string, def Format) Format {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".csv"):
		return FormatCSV
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		return FormatXLSX
	case strings.HasSuffix(strings.ToLower(path), ".json"):
		return FormatJSON
	}
	return def
}

// WriteResult writes one screening result in the given format.
func WriteResult(w io.Writer, res *model.ScreeningResult, format Format) error {
	if res == nil {
		return eris.New("export: nil screening result")
	}
	switch format {
	case FormatTable:
		return writeResultTable(w, res)
	case FormatCSV:
		return writeResultCSV(w, res)
	case FormatXLSX:
		return writeResultXLSX(w, res)
	case FormatJSON:
		return writeJSON(w, res)
	}
	return eris.Errorf("export: unsupported format %q", format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "export: encode JSON")
	}
	return nil
}

var titleCaser = cases.Title(language.English)

// Label turns a snake_case identifier such as an outcome into a display
// label ("no_data" becomes "No Data").
func Label(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "_", " "))
}

// ruleColumns are the per-rule columns shared by the CSV and XLSX writers.
var ruleColumns = []string{
	"company_id", "company_name", "ticker", "weight", "company_passed",
	"rule_id", "rule_name", "severity", "outcome", "rule_passed", "actual", "failure_reason",
}

// ruleRows flattens a result into one row per (company, rule). Companies
// screened against zero rules still get one row with empty rule columns.
func ruleRows(res *model.ScreeningResult) [][]string {
	var rows [][]string
	for _, c := range res.Results {
		company := []string{c.Company.ID, c.Company.Name, c.Company.Ticker, formatWeight(c.Weight), strconv.FormatBool(c.Passed)}
		if len(c.RuleResults) == 0 {
			rows = append(rows, append(company, "", "", "", "", "", "", ""))
			continue
		}
		for _, rr := range c.RuleResults {
			row := append([]string{}, company...)
			row = append(row,
				rr.RuleID,
				rr.RuleName,
				rr.Severity.String(),
				string(rr.Outcome),
				strconv.FormatBool(rr.Passed),
				actualText(rr.Actual),
				rr.FailureReason,
			)
			rows = append(rows, row)
		}
	}
	return rows
}

func formatWeight(w *float64) string {
	if w == nil {
		return ""
	}
	return strconv.FormatFloat(*w, 'f', -1, 64)
}

func actualText(l *model.Literal) string {
	if l == nil {
		return ""
	}
	return l.Text()
}

func failedRules(c model.CompanyScreeningResult) []string {
	var names []string
	for _, rr := range c.RuleResults {
		if !rr.Passed {
			names = append(names, rr.RuleName)
		}
	}
	return names
}

func verdict(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func asOfText(res *model.ScreeningResult) string {
	if res.AsOfDate == nil {
		return "latest"
	}
	return res.AsOfDate.Format(model.DateLayout)
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
