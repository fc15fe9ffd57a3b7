package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/esg-screen/internal/expr"
	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/screen"
	"github.com/sells-group/esg-screen/internal/store"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type parseRequest struct {
	Text string `json:"text"`
}

type parseResponse struct {
	Condition *model.Condition `json:"condition"`
	Valid     bool             `json:"valid"`
	Text      string           `json:"text,omitempty"`
}

// parseExpression answers 200 whether or not the text parses; an
// unparseable text yields a null condition.
func (s *Server) parseExpression(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := expr.Parse(req.Text)
	if !ok {
		writeJSON(w, http.StatusOK, parseResponse{})
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{Condition: c, Valid: true, Text: expr.Format(*c)})
}

type formatRequest struct {
	Condition *model.Condition `json:"condition"`
}

func (s *Server) formatExpression(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	switch {
	case req.Condition == nil:
		writeError(w, r, badRequest("condition is required"))
		return
	case strings.TrimSpace(req.Condition.Parameter) == "":
		writeError(w, r, badRequest("condition.parameter is required"))
		return
	case req.Condition.Value.Kind == 0:
		writeError(w, r, badRequest("condition.value is required"))
		return
	}
	if _, ok := model.ParseOperator(string(req.Condition.Operator)); !ok {
		writeError(w, r, badRequest("unsupported operator "+strconv.Quote(string(req.Condition.Operator))))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": expr.Format(*req.Condition)})
}

type screeningRequest struct {
	CriteriaSetID string   `json:"criteria_set_id"`
	PortfolioID   string   `json:"portfolio_id,omitempty"`
	CompanyIDs    []string `json:"company_ids,omitempty"`
	Sector        string   `json:"sector,omitempty"`
	Region        string   `json:"region,omitempty"`
	AsOfDate      string   `json:"as_of_date,omitempty"`
	Save          bool     `json:"save"`
}

func (s *Server) createScreening(w http.ResponseWriter, r *http.Request) {
	var body screeningRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := parseAsOf(body.AsOfDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.screener.Screen(r.Context(), screen.Request{
		CriteriaSetID: body.CriteriaSetID,
		Target: screen.Target{
			PortfolioID: body.PortfolioID,
			CompanyIDs:  body.CompanyIDs,
			Sector:      body.Sector,
			Region:      body.Region,
		},
		AsOfDate: asOf,
		Save:     body.Save,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if body.Save {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (s *Server) listScreenings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ResultFilter{
		CriteriaSetID: q.Get("criteria_set_id"),
		PortfolioID:   q.Get("portfolio_id"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, r, err)
		return
	}

	items, err := s.store.ListScreeningResults(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []store.ResultSummary{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getScreening(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.GetScreeningResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) deleteScreening(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteScreeningResult(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCriteriaSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.store.ListCriteriaSets(r.Context(), store.CriteriaSetFilter{ClientID: r.URL.Query().Get("client_id")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sets == nil {
		sets = []model.CriteriaSet{}
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) getCriteriaSet(w http.ResponseWriter, r *http.Request) {
	cs, err := s.store.GetCriteriaSet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

type normalizeResponse struct {
	Portfolio *model.Portfolio `json:"portfolio"`
	Message   string           `json:"message"`
}

func (s *Server) normalizeWeights(w http.ResponseWriter, r *http.Request) {
	pf, msg, err := s.screener.NormalizeWeights(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, normalizeResponse{Portfolio: pf, Message: msg})
}

func (s *Server) companyParameters(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.store.CurrentParameterValues(r.Context(), chi.URLParam(r, "id"), asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snap == nil {
		snap = model.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snap)
}

func parseAsOf(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := model.ParseDate(s)
	if err != nil {
		return nil, badRequest("invalid date " + strconv.Quote(s) + ", want YYYY-MM-DD")
	}
	return &t, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, badRequest("invalid integer " + strconv.Quote(s))
	}
	return n, nil
}
