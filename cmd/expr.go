package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esg-screen/internal/expr"
	"github.com/sells-group/esg-screen/internal/model"
)

var exprCmd = &cobra.Command{
	Use:   "expr",
	Short: "Parse and format rule conditions",
}

var exprParseCmd = &cobra.Command{
	Use:     "parse TEXT",
	Short:   "Parse NAME OP VALUE text into a condition",
	Example: `  esg-screen expr parse "carbon_intensity < 200"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		c, ok := expr.Parse(text)
		if !ok {
			return eris.Errorf("expr parse: %q is not a valid condition (want NAME OP VALUE with OP one of == != < <= > >=)", text)
		}
		out, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return eris.Wrap(err, "expr parse: encode")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var exprFormatCmd = &cobra.Command{
	Use:     "format JSON",
	Short:   "Render a JSON condition as text",
	Example: `  esg-screen expr format '{"parameter":"CARBON_INTENSITY","operator":"<","value":200}'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var c model.Condition
		if err := json.Unmarshal([]byte(args[0]), &c); err != nil {
			return eris.Wrap(err, "expr format: decode condition")
		}
		if _, ok := model.ParseOperator(string(c.Operator)); !ok {
			return eris.Errorf("expr format: unsupported operator %q", c.Operator)
		}
		fmt.Fprintln(cmd.OutOrStdout(), expr.Format(c))
		return nil
	},
}

func init() {
	exprCmd.AddCommand(exprParseCmd, exprFormatCmd)
	rootCmd.AddCommand(exprCmd)
}
