package export

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/esg-screen/internal/model"
)

// Sheet names of the XLSX workbook.
const (
	SheetSummary   = "Summary"
	SheetCompanies = "Companies"
	SheetRules     = "Rule Results"
)

func writeResultXLSX(w io.Writer, res *model.ScreeningResult) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	addPair(summary, "Result ID", res.ID)
	addPair(summary, "Screened At", res.ScreenedAt.UTC().Format(time.RFC3339))
	addPair(summary, "As Of", asOfText(res))
	addPair(summary, "Criteria Set", res.CriteriaSet.Name)
	addPair(summary, "Version", res.CriteriaSet.Version)
	addNumber(summary, "Total", float64(res.Summary.TotalHoldings))
	addNumber(summary, "Passed", float64(res.Summary.Passed))
	addNumber(summary, "Failed", float64(res.Summary.Failed))
	addNumber(summary, "Pass Rate", float64(res.Summary.PassRate))
	if p := res.Portfolio; p != nil {
		addPair(summary, "Portfolio", deref(res.PortfolioID))
		addNumber(summary, "Total Weight", p.TotalWeight)
		addNumber(summary, "Passed Weight", p.PassedWeight)
		addNumber(summary, "Excluded Weight", p.ExcludedWeight)
	}
	for _, wn := range res.Warnings {
		addPair(summary, "Warning "+string(wn.Code), wn.Message)
	}

	companies, err := f.AddSheet(SheetCompanies)
	if err != nil {
		return eris.Wrap(err, "export: add companies sheet")
	}
	addStrings(companies, []string{"Company ID", "Company", "Ticker", "Sector", "Region", "Weight", "Verdict", "Failed Rules"})
	for _, c := range res.Results {
		row := companies.AddRow()
		for _, s := range []string{c.Company.ID, c.Company.Name, c.Company.Ticker, c.Company.Sector, c.Company.Region} {
			row.AddCell().SetString(s)
		}
		if c.Weight != nil {
			row.AddCell().SetFloat(*c.Weight)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(verdict(c.Passed))
		row.AddCell().SetInt(len(failedRules(c)))
	}

	rules, err := f.AddSheet(SheetRules)
	if err != nil {
		return eris.Wrap(err, "export: add rule results sheet")
	}
	header := make([]string, len(ruleColumns))
	for i, c := range ruleColumns {
		header[i] = Label(c)
	}
	addStrings(rules, header)
	for _, r := range ruleRows(res) {
		addStrings(rules, r)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write XLSX")
	}
	return nil
}

func addStrings(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addPair(sheet *xlsx.Sheet, key, value string) {
	addStrings(sheet, []string{key, value})
}

func addNumber(sheet *xlsx.Sheet, key string, value float64) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	if value == float64(int64(value)) {
		row.AddCell().SetInt64(int64(value))
		return
	}
	row.AddCell().SetFloat(value)
}
