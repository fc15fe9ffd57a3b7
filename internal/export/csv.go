package export

import (
	"encoding/csv"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/store"
)

func writeResultCSV(w io.Writer, res *model.ScreeningResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ruleColumns); err != nil {
		return eris.Wrap(err, "export: write CSV header")
	}
	for _, row := range ruleRows(res) {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush CSV")
}

func writeSummaryCSV(w io.Writer, items []store.ResultSummary) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "screened_at", "criteria_set_id", "criteria_set", "version", "portfolio_id", "as_of_date", "total", "passed", "failed", "pass_rate"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write CSV header")
	}
	for _, it := range items {
		row := []string{
			it.ID,
			it.ScreenedAt.UTC().Format(time.RFC3339),
			it.CriteriaSet.ID,
			it.CriteriaSet.Name,
			it.CriteriaSet.Version,
			deref(it.PortfolioID),
			dateText(it.AsOfDate),
			strconv.Itoa(it.Summary.TotalHoldings),
			strconv.Itoa(it.Summary.Passed),
			strconv.Itoa(it.Summary.Failed),
			strconv.Itoa(it.Summary.PassRate),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush CSV")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateText(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(model.DateLayout)
}

func sortedKeys(snap model.Snapshot) []string {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
