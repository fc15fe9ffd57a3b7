package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DataType is the declared type of an ESG parameter's values.
type DataType string

const (
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeString  DataType = "string"
)

// ParseDataType validates a data type name.
func ParseDataType(s string) (DataType, error) {
	switch dt := DataType(strings.ToLower(strings.TrimSpace(s))); dt {
	case DataTypeNumber, DataTypeBoolean, DataTypeString:
		return dt, nil
	default:
		return "", eris.Errorf("model: unknown data type %q", s)
	}
}

// Parameter is a named ESG metric definition.
type Parameter struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DataType    DataType  `json:"data_type"`
	Unit        string    `json:"unit,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParameterValue is a dated fact for a (company, parameter) pair. Value is
// the JSON encoding of a scalar matching the parameter's data type.
type ParameterValue struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id"`
	ParameterID string          `json:"parameter_id"`
	AsOfDate    time.Time       `json:"as_of_date"`
	Value       json.RawMessage `json:"value"`
	Source      string          `json:"source,omitempty"`
}

// CurrentValue is the value of one parameter in effect for a company as of
// the requested date.
type CurrentValue struct {
	Parameter string          `json:"parameter"`
	DataType  DataType        `json:"data_type"`
	Value     json.RawMessage `json:"value"`
	Unit      string          `json:"unit,omitempty"`
	Source    string          `json:"source,omitempty"`
	AsOfDate  time.Time       `json:"as_of_date"`
}

// Snapshot maps normalized parameter names to a company's current values.
type Snapshot map[string]CurrentValue

// Lookup finds a parameter by name, ignoring case.
func (s Snapshot) Lookup(name string) (CurrentValue, bool) {
	v, ok := s[NormalizeName(name)]
	return v, ok
}

// NormalizeName returns the canonical (upper-case) form of a parameter name.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the textual form of as-of dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "model: parse date %q", s)
	}
	return t, nil
}
