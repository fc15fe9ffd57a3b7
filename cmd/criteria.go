package main

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esg-screen/internal/catalog"
	"github.com/sells-group/esg-screen/internal/expr"
	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/store"
)

var criteriaCmd = &cobra.Command{
	Use:     "criteria",
	Aliases: []string{"criteria-set"},
	Short:   "Manage criteria sets",
}

var criteriaImportCmd = &cobra.Command{
	Use:   "import FILE.yaml",
	Short: "Create a criteria set from a YAML document",
	Long: `Create a criteria set from a YAML document. Every rule is validated
against the parameter catalog before anything is written.

  name: Climate Core
  version: "2024.1"
  effective_date: 2024-01-01
  rules:
    - name: Carbon cap
      when: CARBON_INTENSITY < 200
    - name: Climate policy
      when: HAS_CLIMATE_POLICY == true
      severity: warn`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cs, err := catalog.LoadCriteriaSet(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		created, err := newService(st).CreateCriteriaSet(ctx, *cs)
		if err != nil {
			return eris.Wrap(err, "criteria import")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created criteria set %s %s with %d rules: %s\n",
			created.Name, created.Version, len(created.Rules), created.ID)
		return nil
	},
}

var criteriaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List criteria sets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		var filter store.CriteriaSetFilter
		filter.ClientID, _ = cmd.Flags().GetString("client")
		filter.All, _ = cmd.Flags().GetBool("all")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sets, err := st.ListCriteriaSets(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "criteria list")
		}

		t := newTable(cmd)
		t.AppendHeader(table.Row{"ID", "Name", "Version", "Effective", "Client"})
		for _, cs := range sets {
			client := "global"
			if cs.ClientID != nil {
				client = *cs.ClientID
			}
			t.AppendRow(table.Row{cs.ID, cs.Name, cs.Version, effectiveDate(cs), client})
		}
		t.Render()
		return nil
	},
}

var criteriaShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a criteria set and its rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cs, err := st.GetCriteriaSet(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "criteria show %s", args[0])
		}

		out := cmd.OutOrStdout()
		switch format {
		case "yaml":
			doc, err := catalog.MarshalCriteriaSet(cs)
			if err != nil {
				return err
			}
			_, err = out.Write(doc)
			return err
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cs)
		case "table", "":
		default:
			return eris.Errorf("criteria show: --format must be table, yaml or json (got %q)", format)
		}

		fmt.Fprintf(out, "%s %s (effective %s)\n", cs.Name, cs.Version, effectiveDate(*cs))
		t := newTable(cmd)
		t.AppendHeader(table.Row{"#", "Rule", "Condition", "Severity", "Failure Message"})
		for _, r := range cs.Rules {
			t.AppendRow(table.Row{r.Position + 1, r.Name, expr.Format(r.Expression), r.Severity.String(), r.FailureMessage})
		}
		t.Render()
		return nil
	},
}

func effectiveDate(cs model.CriteriaSet) string {
	if cs.EffectiveDate.IsZero() {
		return "-"
	}
	return cs.EffectiveDate.Format(model.DateLayout)
}

func init() {
	lf := criteriaListCmd.Flags()
	lf.String("client", "", "include the client's sets alongside global ones")
	lf.Bool("all", false, "list every set regardless of client")

	criteriaShowCmd.Flags().String("format", "table", "output format: table, yaml or json")

	criteriaCmd.AddCommand(criteriaImportCmd, criteriaListCmd, criteriaShowCmd)
	rootCmd.AddCommand(criteriaCmd)
}
