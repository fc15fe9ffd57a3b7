package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esg-screen/internal/model"
)

var parameterCmd = &cobra.Command{
	Use:     "parameter",
	Aliases: []string{"parameters", "param"},
	Short:   "Manage ESG parameter definitions",
}

var parameterAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Define a parameter",
	Example: `  esg-screen parameter add CARBON_INTENSITY --type number --unit tCO2e/USDm
  esg-screen parameter add HAS_CLIMATE_POLICY --type boolean`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		typeName, _ := cmd.Flags().GetString("type")
		unit, _ := cmd.Flags().GetString("unit")
		desc, _ := cmd.Flags().GetString("description")

		dt, err := model.ParseDataType(typeName)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := st.CreateParameter(ctx, model.Parameter{Name: args[0], DataType: dt, Unit: unit, Description: desc})
		if err != nil {
			return eris.Wrap(err, "parameter add")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created parameter %s (%s) %s\n", p.Name, p.DataType, p.ID)
		return nil
	},
}

var parameterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List parameters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		params, err := st.ListParameters(ctx)
		if err != nil {
			return eris.Wrap(err, "parameter list")
		}

		t := newTable(cmd)
		t.AppendHeader(table.Row{"Name", "Type", "Unit", "Description", "ID"})
		for _, p := range params {
			t.AppendRow(table.Row{p.Name, p.DataType, p.Unit, p.Description, p.ID})
		}
		t.Render()
		return nil
	},
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	return t
}

func init() {
	f := parameterAddCmd.Flags()
	f.String("type", "number", "data type: number, boolean or string")
	f.String("unit", "", "unit of measure")
	f.String("description", "", "what the parameter measures")

	parameterCmd.AddCommand(parameterAddCmd, parameterListCmd)
	rootCmd.AddCommand(parameterCmd)
}
