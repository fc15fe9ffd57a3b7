package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-screen/internal/catalog"
	"github.com/sells-group/esg-screen/internal/portfolio"
	"github.com/sells-group/esg-screen/internal/store"
)

var portfolioCmd = &cobra.Command{
	Use:     "portfolio",
	Aliases: []string{"portfolios"},
	Short:   "Manage portfolios",
}

var portfolioImportCmd = &cobra.Command{
	Use:   "import FILE.yaml",
	Short: "Create a portfolio from a YAML document",
	Long: `Create a portfolio from a YAML document. Holdings reference companies
by ID or ticker; weights are percentages.

  name: Green Fund
  holdings:
    - company: ACM
      weight: 40
    - company: 1f0c6f1e-...
      weight: 60`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		doc, err := catalog.LoadPortfolio(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		companies, err := st.ListCompanies(ctx, store.CompanyFilter{})
		if err != nil {
			return eris.Wrap(err, "portfolio import: list companies")
		}
		pf, err := doc.ToModel(companies)
		if err != nil {
			return err
		}
		created, err := st.CreatePortfolio(ctx, *pf)
		if err != nil {
			return eris.Wrap(err, "portfolio import")
		}

		zap.L().Info("portfolio imported", zap.String("portfolio_id", created.ID), zap.Stringer("doc", doc))
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created portfolio %s with %d holdings: %s\n", created.Name, len(created.Holdings), created.ID)
		if w := portfolio.CheckWeights(created.Holdings, cfg.Screening.WeightTolerance); w != nil {
			fmt.Fprintf(out, "Warning %s: %s\n", w.Code, w.Message)
		}
		return nil
	},
}

var portfolioShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a portfolio's holdings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		pf, err := st.GetPortfolio(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "portfolio show %s", args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", pf.Name, pf.ID)
		t := newTable(cmd)
		t.AppendHeader(table.Row{"Company", "Ticker", "Weight"})
		for _, h := range pf.Holdings {
			name, ticker := h.CompanyID, ""
			if h.Company != nil {
				name, ticker = h.Company.Name, h.Company.Ticker
			}
			t.AppendRow(table.Row{name, ticker, fmt.Sprintf("%.2f%%", h.Weight)})
		}
		t.AppendFooter(table.Row{"", "Total", fmt.Sprintf("%.2f%%", portfolio.TotalWeight(pf.Holdings))})
		t.Render()
		return nil
	},
}

var portfolioNormalizeCmd = &cobra.Command{
	Use:   "normalize ID",
	Short: "Rescale holding weights to sum to 100%",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		_, msg, err := newService(st).NormalizeWeights(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func init() {
	portfolioCmd.AddCommand(portfolioImportCmd, portfolioShowCmd, portfolioNormalizeCmd)
	rootCmd.AddCommand(portfolioCmd)
}
