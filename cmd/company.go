package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esg-screen/internal/export"
	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/store"
)

var companyCmd = &cobra.Command{
	Use:     "company",
	Aliases: []string{"companies"},
	Short:   "Manage screenable companies",
}

var companyAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := model.Company{Name: args[0]}
		c.ID, _ = cmd.Flags().GetString("id")
		c.Ticker, _ = cmd.Flags().GetString("ticker")
		c.Sector, _ = cmd.Flags().GetString("sector")
		c.Region, _ = cmd.Flags().GetString("region")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		created, err := st.CreateCompany(ctx, c)
		if err != nil {
			return eris.Wrap(err, "company add")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created company %s %s\n", created.Name, created.ID)
		return nil
	},
}

var companyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		var filter store.CompanyFilter
		filter.Sector, _ = cmd.Flags().GetString("sector")
		filter.Region, _ = cmd.Flags().GetString("region")
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		companies, err := st.ListCompanies(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "company list")
		}

		t := newTable(cmd)
		t.AppendHeader(table.Row{"ID", "Name", "Ticker", "Sector", "Region"})
		for _, c := range companies {
			t.AppendRow(table.Row{c.ID, c.Name, c.Ticker, c.Sector, c.Region})
		}
		t.Render()
		return nil
	},
}

var companyValuesCmd = &cobra.Command{
	Use:   "values COMPANY_ID",
	Short: "Show the parameter values in effect for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		asOf, err := dateFlag(cmd, "as-of")
		if err != nil {
			return err
		}
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.CurrentParameterValues(ctx, args[0], asOf)
		if err != nil {
			return eris.Wrapf(err, "company values %s", args[0])
		}
		return export.WriteSnapshot(cmd.OutOrStdout(), snap, format)
	},
}

// dateFlag parses an optional YYYY-MM-DD flag.
func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	t, err := model.ParseDate(s)
	if err != nil {
		return nil, eris.Errorf("--%s must be YYYY-MM-DD (got %q)", name, s)
	}
	return &t, nil
}

// formatFlag reads --format, defaulting to screening.default_format.
func formatFlag(cmd *cobra.Command) (export.Format, error) {
	s, _ := cmd.Flags().GetString("format")
	if s == "" {
		s = cfg.Screening.DefaultFormat
	}
	return export.ParseFormat(s)
}

func init() {
	af := companyAddCmd.Flags()
	af.String("id", "", "company ID (default: generated)")
	af.String("ticker", "", "ticker symbol")
	af.String("sector", "", "sector")
	af.String("region", "", "region")

	lf := companyListCmd.Flags()
	lf.String("sector", "", "filter by sector")
	lf.String("region", "", "filter by region")
	lf.Int("limit", 0, "maximum number of companies (0 = no limit)")

	vf := companyValuesCmd.Flags()
	vf.String("as-of", "", "cutoff date YYYY-MM-DD (default: latest)")
	vf.String("format", "", "output format: table or json")

	companyCmd.AddCommand(companyAddCmd, companyListCmd, companyValuesCmd)
	rootCmd.AddCommand(companyCmd)
}
