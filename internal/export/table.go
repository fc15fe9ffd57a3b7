package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/store"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func writeResultTable(w io.Writer, res *model.ScreeningResult) error {
	s := res.Summary
	lines := []string{
		fmt.Sprintf("Result:       %s", res.ID),
		fmt.Sprintf("Criteria set: %s (%s)", res.CriteriaSet.Name, res.CriteriaSet.Version),
		fmt.Sprintf("As of:        %s", asOfText(res)),
		fmt.Sprintf("Passed:       %d/%d (%d%%)", s.Passed, s.TotalHoldings, s.PassRate),
	}
	if p := res.Portfolio; p != nil {
		lines = append(lines, fmt.Sprintf("Weights:      total %s, passed %s, excluded %s",
			percent(p.TotalWeight), percent(p.PassedWeight), percent(p.ExcludedWeight)))
	}
	for _, wn := range res.Warnings {
		lines = append(lines, fmt.Sprintf("Warning %s:  %s", wn.Code, wn.Message))
	}
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return eris.Wrap(err, "export: write summary")
	}

	if len(res.Results) == 0 {
		_, _ = fmt.Fprintln(w, "(0 companies)")
		return nil
	}

	withWeight := res.PortfolioID != nil
	t := newTable(w)
	header := table.Row{"Company", "Ticker"}
	if withWeight {
		header = append(header, "Weight")
	}
	header = append(header, "Verdict", "Failed Rules")
	t.AppendHeader(header)

	for _, c := range res.Results {
		row := table.Row{c.Company.Name, c.Company.Ticker}
		if c.Company.Name == "" {
			row[0] = c.Company.ID
		}
		if withWeight {
			row = append(row, formatWeight(c.Weight))
		}
		row = append(row, verdict(c.Passed), strings.Join(failedRules(c), ", "))
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

// WriteRuleDetail renders every rule result of one company.
func WriteRuleDetail(w io.Writer, c model.CompanyScreeningResult) error {
	t := newTable(w)
	t.SetTitle("%s: %s", c.Company.ID, verdict(c.Passed))
	t.AppendHeader(table.Row{"Rule", "Severity", "Outcome", "Actual", "Reason"})
	for _, rr := range c.RuleResults {
		t.AppendRow(table.Row{rr.RuleName, rr.Severity.String(), Label(string(rr.Outcome)), actualText(rr.Actual), rr.FailureReason})
	}
	t.Render()
	return nil
}

// WriteSummaries lists stored screening results.
func WriteSummaries(w io.Writer, items []store.ResultSummary, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, items)
	case FormatCSV:
		return writeSummaryCSV(w, items)
	case FormatTable:
	default:
		return eris.Errorf("export: format %q is not supported for result lists", format)
	}

	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "(0 results)")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Screened At", "Criteria Set", "Portfolio", "As Of", "Passed", "Failed", "Pass Rate"})
	for _, it := range items {
		t.AppendRow(table.Row{
			it.ID,
			it.ScreenedAt.Format("2006-01-02 15:04"),
			it.CriteriaSet.Name + " " + it.CriteriaSet.Version,
			deref(it.PortfolioID),
			dateText(it.AsOfDate),
			it.Summary.Passed,
			it.Summary.Failed,
			fmt.Sprintf("%d%%", it.Summary.PassRate),
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d results)\n", len(items))
	return nil
}

// WriteSnapshot renders a company's current parameter values.
func WriteSnapshot(w io.Writer, snap model.Snapshot, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, snap)
	}
	if format != FormatTable {
		return eris.Errorf("export: format %q is not supported for parameter values", format)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Parameter", "Value", "Unit", "As Of", "Source"})
	for _, name := range sortedKeys(snap) {
		v := snap[name]
		t.AppendRow(table.Row{v.Parameter, string(v.Value), v.Unit, v.AsOfDate.Format(model.DateLayout), v.Source})
	}
	t.Render()
	return nil
}
