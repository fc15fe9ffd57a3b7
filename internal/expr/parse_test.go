package expr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-screen/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want model.Condition
	}{
		{"number", "carbon_emissions < 500", model.NewComparison("CARBON_EMISSIONS", model.OpLt, model.Number(500))},
		{"percent shorthand", "board_diversity_pct >= 30%", model.NewComparison("BOARD_DIVERSITY_PCT", model.OpGte, model.Number(30))},
		{"percent is not a fraction", "X > 10%", model.NewComparison("X", model.OpGt, model.Number(10))},
		{"bool", "has_environmental_policy == true", model.NewComparison("HAS_ENVIRONMENTAL_POLICY", model.OpEq, model.Bool(true))},
		{"bool any case", "flag != FALSE", model.NewComparison("FLAG", model.OpNeq, model.Bool(false))},
		{"single quoted", "rating == 'AAA'", model.NewComparison("RATING", model.OpEq, model.String("AAA"))},
		{"double quoted", `rating == "A B"`, model.NewComparison("RATING", model.OpEq, model.String("A B"))},
		{"quoted number stays string", "code == '10'", model.NewComparison("CODE", model.OpEq, model.String("10"))},
		{"raw string fallback", "country != US", model.NewComparison("COUNTRY", model.OpNeq, model.String("US"))},
		{"negative decimal", "margin > -2.5", model.NewComparison("MARGIN", model.OpGt, model.Number(-2.5))},
		{"no spaces", "score<=7", model.NewComparison("SCORE", model.OpLte, model.Number(7))},
		{"surrounding whitespace", "  score > 7  ", model.NewComparison("SCORE", model.OpGt, model.Number(7))},
		{"nan stays string", "x > nan", model.NewComparison("X", model.OpGt, model.String("nan"))},
		{"inf stays string", "x == inf", model.NewComparison("X", model.OpEq, model.String("inf"))},
		{"negative infinity stays string", "x < -Infinity", model.NewComparison("X", model.OpLt, model.String("-Infinity"))},
		{"nan percent stays string", "x > NaN%", model.NewComparison("X", model.OpGt, model.String("NaN%"))},
		{"multi-line string", "note == 'line1\nline2'", model.NewComparison("NOTE", model.OpEq, model.String("line1\nline2"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"carbon_emissions",
		"carbon_emissions <",
		"carbon_emissions < ",
		"1abc > 5",
		"carbon emissions < 5",
		"x = 5",
		"x <> 5",
		"x === 5",
		"x => 5",
		"x ~ 5",
	} {
		got, ok := Parse(in)
		assert.False(t, ok, in)
		assert.Nil(t, got, in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "CARBON_EMISSIONS < 500", Format(model.NewComparison("CARBON_EMISSIONS", model.OpLt, model.Number(500))))
	assert.Equal(t, "X >= 12.75", Format(model.NewComparison("X", model.OpGte, model.Number(12.75))))
	assert.Equal(t, "FLAG == false", Format(model.NewComparison("FLAG", model.OpEq, model.Bool(false))))
	assert.Equal(t, "RATING != 'AA'", Format(model.NewComparison("RATING", model.OpNeq, model.String("AA"))))
}

func TestFormat_PercentNotRoundTripped(t *testing.T) {
	c, ok := Parse("x > 10%")
	require.True(t, ok)
	assert.Equal(t, "X > 10", Format(*c))
}

func TestParseFormat_RoundTrip(t *testing.T) {
	values := []model.Literal{
		model.Number(0),
		model.Number(500),
		model.Number(-3.25),
		model.Number(1e-7),
		model.Bool(true),
		model.Bool(false),
		model.String("AAA"),
		model.String(""),
		model.String("true"),
		model.String("42"),
		model.String("it's"),
		model.String("two words"),
		model.String("line1\nline2"),
		model.String("nan"),
	}
	for _, op := range model.Operators {
		for _, v := range values {
			c := model.NewComparison("PARAM_1", op, v)
			got, ok := Parse(Format(c))
			require.True(t, ok, Format(c))
			assert.Equal(t, c, *got, Format(c))
		}
	}
}

func TestParse_NumbersAreFinite(t *testing.T) {
	for _, in := range []string{"x > nan", "x == inf", "x >= +Inf", "x < -infinity"} {
		c, ok := Parse(in)
		require.True(t, ok, in)
		assert.Equal(t, model.LiteralString, c.Value.Kind, in)
		_, err := json.Marshal(c)
		assert.NoError(t, err, in)
	}
}
