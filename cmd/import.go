package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esg-screen/internal/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import data files",
}

var importValuesCmd = &cobra.Command{
	Use:   "values FILE",
	Short: "Import parameter values from a CSV, TSV or XLSX file",
	Long: `Import parameter values in long format: one row per company, parameter
and date. Required columns are company (ID or ticker), parameter and value;
as_of_date and source are optional. Re-importing a (company, parameter, date)
replaces the stored value.`,
	Example: `  esg-screen import values q1.csv --source CDP
  esg-screen import values q1.xlsx --sheet Values --as-of 2024-03-31 --strict`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var opts ingest.Options
		var err error
		if opts.AsOfDate, err = dateFlag(cmd, "as-of"); err != nil {
			return err
		}
		opts.Source, _ = cmd.Flags().GetString("source")
		opts.Strict, _ = cmd.Flags().GetBool("strict")
		opts.BatchSize, _ = cmd.Flags().GetInt("batch-size")
		opts.Sheet.SheetName, _ = cmd.Flags().GetString("sheet")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rep, err := ingest.NewImporter(st).ImportFile(ctx, args[0], opts)
		if rep != nil {
			out := cmd.OutOrStdout()
			for _, rej := range rep.Rejected {
				fmt.Fprintf(out, "line %d: %s\n", rej.Line, rej.Reason)
			}
			fmt.Fprintf(out, "%d rows read, %d written, %d empty, %d rejected\n",
				rep.Rows, rep.Written, rep.Skipped, len(rep.Rejected))
		}
		if err != nil {
			return eris.Wrap(err, "import values")
		}
		return nil
	},
}

func init() {
	f := importValuesCmd.Flags()
	f.String("as-of", "", "as-of date YYYY-MM-DD for rows without one")
	f.String("source", "", "source recorded on rows without one")
	f.Bool("strict", false, "write nothing if any row is rejected")
	f.Int("batch-size", ingest.DefaultBatchSize, "values per database write")
	f.String("sheet", "", "XLSX sheet name (default: first sheet)")

	importCmd.AddCommand(importValuesCmd)
	rootCmd.AddCommand(importCmd)
}
