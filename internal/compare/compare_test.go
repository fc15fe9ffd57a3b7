package compare

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-screen/internal/model"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		dt   model.DataType
		want model.Literal
	}{
		{"number", `5000`, model.DataTypeNumber, model.Number(5000)},
		{"fraction", ` 12.5 `, model.DataTypeNumber, model.Number(12.5)},
		{"numeric string", `"42"`, model.DataTypeNumber, model.Number(42)},
		{"bool", `false`, model.DataTypeBoolean, model.Bool(false)},
		{"bool string", `"TRUE"`, model.DataTypeBoolean, model.Bool(true)},
		{"string", `"AAA"`, model.DataTypeString, model.String("AAA")},
		{"number as string", `7`, model.DataTypeString, model.String("7")},
		{"bool as string", `true`, model.DataTypeString, model.String("true")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(json.RawMessage(tt.raw), tt.dt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Missing(t *testing.T) {
	for _, raw := range []string{``, `   `, `null`} {
		_, err := Decode(json.RawMessage(raw), model.DataTypeNumber)
		assert.True(t, eris.Is(err, ErrMissing), "raw %q", raw)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		raw string
		dt  model.DataType
	}{
		{`{"a":1}`, model.DataTypeNumber},
		{`abc`, model.DataTypeNumber},
		{`"abc"`, model.DataTypeNumber},
		{`true`, model.DataTypeNumber},
		{`"NaN"`, model.DataTypeNumber},
		{`"-Infinity"`, model.DataTypeNumber},
		{`1 2`, model.DataTypeNumber},
		{`1`, model.DataTypeBoolean},
		{`"yes"`, model.DataTypeBoolean},
		{`[1]`, model.DataTypeString},
		{`1`, model.DataType("date")},
	}
	for _, tt := range tests {
		_, err := Decode(json.RawMessage(tt.raw), tt.dt)
		require.Error(t, err, tt.raw)
		assert.True(t, eris.Is(err, ErrMalformed), "raw %q (%s): %v", tt.raw, tt.dt, err)
	}
}

func TestCompare_Numeric(t *testing.T) {
	tests := []struct {
		actual, expected float64
		op               model.Operator
		want             bool
	}{
		{5000, 500, model.OpLt, false},
		{400, 500, model.OpLt, true},
		{500, 500, model.OpLte, true},
		{500, 500, model.OpGt, false},
		{30, 30, model.OpGte, true},
		{15, 30, model.OpGte, false},
		{1, 1, model.OpEq, true},
		{1, 2, model.OpNeq, true},
	}
	for _, tt := range tests {
		got, err := Compare(model.Number(tt.actual), model.Number(tt.expected), model.DataTypeNumber, tt.op)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v %s %v", tt.actual, tt.op, tt.expected)
	}
}

// Equality is exact; 0.1+0.2 is not 0.3 in IEEE-754.
func TestCompare_NumericEqualityIsExact(t *testing.T) {
	a, b := 0.1, 0.2
	got, err := Compare(model.Number(a+b), model.Number(0.3), model.DataTypeNumber, model.OpEq)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = Compare(model.Number(a+b), model.Number(a+b), model.DataTypeNumber, model.OpEq)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCompare_NumberParameterCoercesStringLiteral(t *testing.T) {
	got, err := Compare(model.Number(20), model.String("30"), model.DataTypeNumber, model.OpLt)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = Compare(model.Number(20), model.String("thirty"), model.DataTypeNumber, model.OpLt)
	assert.True(t, eris.Is(err, ErrTypeMismatch))

	_, err = Compare(model.Number(1), model.Bool(true), model.DataTypeNumber, model.OpEq)
	assert.True(t, eris.Is(err, ErrTypeMismatch))

	_, err = Compare(model.Number(20), model.String("inf"), model.DataTypeNumber, model.OpLt)
	assert.True(t, eris.Is(err, ErrTypeMismatch))
}

func TestCompare_Boolean(t *testing.T) {
	got, err := Compare(model.Bool(false), model.Bool(true), model.DataTypeBoolean, model.OpEq)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = Compare(model.Bool(false), model.Bool(true), model.DataTypeBoolean, model.OpNeq)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Compare(model.Bool(true), model.String("true"), model.DataTypeBoolean, model.OpEq)
	require.NoError(t, err)
	assert.True(t, got)

	for _, op := range []model.Operator{model.OpLt, model.OpLte, model.OpGt, model.OpGte} {
		_, err := Compare(model.Bool(true), model.Bool(false), model.DataTypeBoolean, op)
		assert.True(t, eris.Is(err, ErrOrderingOnBoolean), string(op))
	}

	_, err = Compare(model.Bool(true), model.String("maybe"), model.DataTypeBoolean, model.OpEq)
	assert.True(t, eris.Is(err, ErrTypeMismatch))
}

func TestCompare_String(t *testing.T) {
	tests := []struct {
		actual, expected string
		op               model.Operator
		want             bool
	}{
		{"AAA", "AAA", model.OpEq, true},
		{"AAA", "aaa", model.OpEq, false},
		{"AAA", "aaa", model.OpNeq, true},
		{"A", "B", model.OpLt, true},
		{"B", "AA", model.OpGt, true},
		{"Z", "a", model.OpLt, true},
		{"é", "z", model.OpGt, true},
	}
	for _, tt := range tests {
		got, err := Compare(model.String(tt.actual), model.String(tt.expected), model.DataTypeString, tt.op)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q %s %q", tt.actual, tt.op, tt.expected)
	}
}

func TestCompare_StringParameterWithNumberLiteral(t *testing.T) {
	got, err := Compare(model.String("7"), model.Number(7), model.DataTypeString, model.OpEq)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCompare_UnknownOperator(t *testing.T) {
	_, err := Compare(model.Number(1), model.Number(1), model.DataTypeNumber, model.Operator("~="))
	assert.True(t, eris.Is(err, ErrUnknownOperator))
}

func TestEvaluate(t *testing.T) {
	t.Run("passed", func(t *testing.T) {
		r := Evaluate(json.RawMessage(`400`), model.DataTypeNumber, model.OpLt, model.Number(500))
		assert.True(t, r.Passed)
		assert.Equal(t, model.OutcomePassed, r.Outcome)
		require.NotNil(t, r.Actual)
		assert.Equal(t, model.Number(400), *r.Actual)
		assert.NoError(t, r.Err)
	})
	t.Run("failed", func(t *testing.T) {
		r := Evaluate(json.RawMessage(`5000`), model.DataTypeNumber, model.OpLt, model.Number(500))
		assert.False(t, r.Passed)
		assert.Equal(t, model.OutcomeFailed, r.Outcome)
	})
	t.Run("missing", func(t *testing.T) {
		r := Evaluate(json.RawMessage(`null`), model.DataTypeNumber, model.OpLt, model.Number(500))
		assert.False(t, r.Passed)
		assert.Equal(t, model.OutcomeNoData, r.Outcome)
	})
	t.Run("malformed", func(t *testing.T) {
		r := Evaluate(json.RawMessage(`not json`), model.DataTypeNumber, model.OpLt, model.Number(500))
		assert.False(t, r.Passed)
		assert.Equal(t, model.OutcomeMalformed, r.Outcome)
		assert.Nil(t, r.Actual)
	})
	t.Run("invalid fails closed", func(t *testing.T) {
		r := Evaluate(json.RawMessage(`true`), model.DataTypeBoolean, model.OpGt, model.Bool(false))
		assert.False(t, r.Passed)
		assert.Equal(t, model.OutcomeInvalid, r.Outcome)
		assert.True(t, eris.Is(r.Err, ErrOrderingOnBoolean))
	})
}
