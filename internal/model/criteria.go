package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Severity controls how a failing rule affects a company's verdict.
type Severity uint8

const (
	// SeverityExclude is a hard constraint: a failure excludes the company.
	SeverityExclude Severity = iota
	// SeverityWarn is recorded but never changes the verdict.
	SeverityWarn
	// SeverityInfo is recorded but never changes the verdict.
	SeverityInfo
)

var severityNames = map[Severity]string{
	SeverityExclude: "exclude",
	SeverityWarn:    "warn",
	SeverityInfo:    "info",
}

// ParseSeverity parses exclude, warn or info. An empty string is exclude.
func ParseSeverity(s string) (Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SeverityExclude, nil
	}
	for sev, name := range severityNames {
		if name == s {
			return sev, nil
		}
	}
	return 0, eris.Errorf("model: unknown severity %q", s)
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "invalid"
}

// Blocking reports whether a failure at this severity fails the company.
func (s Severity) Blocking() bool {
	return s == SeverityExclude
}

func (s Severity) MarshalText() ([]byte, error) {
	name, ok := severityNames[s]
	if !ok {
		return nil, eris.Errorf("model: invalid severity %d", uint8(s))
	}
	return []byte(name), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// CriteriaSet is a named, versioned collection of rules. ClientID nil means
// the set is global.
type CriteriaSet struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	EffectiveDate time.Time `json:"effective_date"`
	ClientID      *string   `json:"client_id,omitempty"`
	Rules         []Rule    `json:"rules"`
	CreatedAt     time.Time `json:"created_at"`
}

// Ref returns the reference embedded in screening results.
func (c *CriteriaSet) Ref() CriteriaSetRef {
	return CriteriaSetRef{ID: c.ID, Name: c.Name, Version: c.Version}
}

// Rule is one condition with a severity inside a criteria set.
type Rule struct {
	ID             string    `json:"id"`
	CriteriaSetID  string    `json:"criteria_set_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Expression     Condition `json:"expression"`
	FailureMessage string    `json:"failure_message,omitempty"`
	Severity       Severity  `json:"severity"`
	Position       int       `json:"position"`
}
