package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-screen/internal/export"
	"github.com/sells-group/esg-screen/internal/screen"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen a portfolio or companies against a criteria set",
	Long: `Evaluate every rule of a criteria set against each company's parameter
values in effect on the as-of date (default: latest available). A company
passes when no exclude-severity rule fails; warn and info failures are
recorded but never exclude.

Examples:
  # Preview a portfolio screening without saving it
  esg-screen screen --criteria 3c1e... --portfolio 9f2a...

  # Screen two companies as of quarter end and save the result
  esg-screen screen --criteria 3c1e... --companies c1,c2 --as-of 2024-03-31 --save

  # Screen every European energy company and export to XLSX
  esg-screen screen --criteria 3c1e... --sector Energy --region EU --output energy.xlsx`,
	RunE: runScreen,
}

func init() {
	f := screenCmd.Flags()
	f.String("criteria", "", "criteria set ID (required)")
	f.String("portfolio", "", "portfolio ID to screen")
	f.String("companies", "", "comma-separated company IDs to screen")
	f.String("sector", "", "screen every company in this sector")
	f.String("region", "", "screen every company in this region")
	f.String("as-of", "", "cutoff date YYYY-MM-DD (default: latest)")
	f.Bool("save", false, "persist the result")
	f.Bool("detail", false, "print per-rule results for each failing company")
	f.String("format", "", "output format: table, csv, xlsx or json (default from config or output extension)")
	f.String("output", "", "output file path (default: stdout)")
	_ = screenCmd.MarkFlagRequired("criteria")
	screenCmd.MarkFlagsMutuallyExclusive("portfolio", "companies", "sector")
	screenCmd.MarkFlagsMutuallyExclusive("portfolio", "companies", "region")

	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := screen.Request{}
	req.CriteriaSetID, _ = cmd.Flags().GetString("criteria")
	req.Target.PortfolioID, _ = cmd.Flags().GetString("portfolio")
	req.Target.Sector, _ = cmd.Flags().GetString("sector")
	req.Target.Region, _ = cmd.Flags().GetString("region")
	req.Save, _ = cmd.Flags().GetBool("save")
	if ids, _ := cmd.Flags().GetString("companies"); ids != "" {
		req.Target.CompanyIDs = splitAndTrim(ids)
	}
	var err error
	if req.AsOfDate, err = dateFlag(cmd, "as-of"); err != nil {
		return err
	}
	if err := req.Target.Validate(); err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	format, err := outputFormat(cmd, outputPath)
	if err != nil {
		return err
	}
	if format == export.FormatXLSX && outputPath == "" {
		return eris.New("screen: --output is required for xlsx")
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	res, err := newService(st).Screen(ctx, req)
	if err != nil {
		return err
	}

	w, closeFn, err := openOutput(cmd, outputPath)
	if err != nil {
		return err
	}
	if err := export.WriteResult(w, res, format); err != nil {
		closeFn() //nolint:errcheck
		return err
	}
	if err := closeFn(); err != nil {
		return eris.Wrap(err, "screen: close output")
	}

	if detail, _ := cmd.Flags().GetBool("detail"); detail && format == export.FormatTable && outputPath == "" {
		for _, c := range res.Results {
			if !c.Passed {
				if err := export.WriteRuleDetail(w, c); err != nil {
					return err
				}
			}
		}
	}

	if req.Save {
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved screening result %s\n", res.ID)
	}
	if outputPath != "" {
		zap.L().Info("screening result written", zap.String("path", outputPath), zap.String("format", string(format)))
	}
	return nil
}

// outputFormat resolves --format, then the output file extension, then the
// configured default.
func outputFormat(cmd *cobra.Command, outputPath string) (export.Format, error) {
	if s, _ := cmd.Flags().GetString("format"); s != "" {
		return export.ParseFormat(s)
	}
	def, err := export.ParseFormat(cfg.Screening.DefaultFormat)
	if err != nil {
		return "", err
	}
	return export.FormatForPath(outputPath, def), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
