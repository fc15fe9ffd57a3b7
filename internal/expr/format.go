package expr

import (
	"strings"

	"github.com/sells-group/esg-screen/internal/model"
)

// Format renders a condition as NAME OP VALUE. Strings are single-quoted.
// Parse(Format(c)) reproduces c for upper-case parameter names.
func Format(c model.Condition) string {
	var b strings.Builder
	b.WriteString(c.Parameter)
	b.WriteByte(' ')
	b.WriteString(string(c.Operator))
	b.WriteByte(' ')
	b.WriteString(FormatValue(c.Value))
	return b.String()
}

// FormatValue renders a literal the way Format does.
func FormatValue(l model.Literal) string {
	if l.Kind == model.LiteralString {
		return "'" + l.Str + "'"
	}
	return l.Text()
}
