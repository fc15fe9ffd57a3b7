package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esg-screen/internal/export"
	"github.com/sells-group/esg-screen/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:     "results",
	Aliases: []string{"result"},
	Short:   "Browse stored screening results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List screening results, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		var filter store.ResultFilter
		filter.CriteriaSetID, _ = cmd.Flags().GetString("criteria")
		filter.PortfolioID, _ = cmd.Flags().GetString("portfolio")
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		filter.Offset, _ = cmd.Flags().GetInt("offset")
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		items, err := st.ListScreeningResults(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "results list")
		}
		return export.WriteSummaries(cmd.OutOrStdout(), items, format)
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a stored screening result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		if format == export.FormatXLSX {
			return eris.New("results show: use results export for xlsx")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := st.GetScreeningResult(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "results show %s", args[0])
		}
		return export.WriteResult(cmd.OutOrStdout(), res, format)
	},
}

var resultsExportCmd = &cobra.Command{
	Use:   "export ID",
	Short: "Export a stored screening result to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		outputPath, _ := cmd.Flags().GetString("output")
		format, err := outputFormat(cmd, outputPath)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := st.GetScreeningResult(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "results export %s", args[0])
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
			return eris.Wrap(err, "results export: close output")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s as %s to %s\n", res.ID, format, outputPath)
		return nil
	},
}

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a stored screening result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteScreeningResult(ctx, args[0]); err != nil {
			return eris.Wrapf(err, "results delete %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted screening result %s\n", args[0])
		return nil
	},
}

func init() {
	lf := resultsListCmd.Flags()
	lf.String("criteria", "", "filter by criteria set ID")
	lf.String("portfolio", "", "filter by portfolio ID")
	lf.Int("limit", 0, "maximum number of results (0 = default)")
	lf.Int("offset", 0, "number of results to skip")
	lf.String("format", "", "output format: table, csv or json")

	resultsShowCmd.Flags().String("format", "", "output format: table, csv or json")

	ef := resultsExportCmd.Flags()
	ef.String("output", "", "output file path (required)")
	ef.String("format", "", "output format (default from the output extension)")
	_ = resultsExportCmd.MarkFlagRequired("output")

	resultsCmd.AddCommand(resultsListCmd, resultsShowCmd, resultsExportCmd, resultsDeleteCmd)
	rootCmd.AddCommand(resultsCmd)
}
