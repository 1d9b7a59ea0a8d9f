package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bashir0609/surfe-toolkit/internal/enrich"
	"github.com/bashir0609/surfe-toolkit/internal/tabular"
	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

var (
	enrichInput      string
	enrichColumn     string
	enrichDataPoints []string
	enrichOutput     string
	enrichFormat     string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a CSV of company domains",
	Long:  "Reads a CSV, submits the domain column as an enrichment batch, polls the job to completion, and writes the input back out with enriched_<field> columns appended.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnrichment(cmd, "companies")
	},
}

var enrichPeopleCmd = &cobra.Command{
	Use:   "enrich-people",
	Short: "Enrich a CSV of LinkedIn profile URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnrichment(cmd, "people")
	},
}

func runEnrichment(cmd *cobra.Command, kind string) error {
	client, err := newSurfeClient()
	if err != nil {
		return err
	}

	table, err := tabular.ReadCSVFile(enrichInput)
	if err != nil {
		return err
	}
	zap.L().Info("input loaded",
		zap.String("file", enrichInput),
		zap.Int("rows", len(table.Rows)),
	)

	runner := &enrich.Runner{
		Client:       client,
		PollInterval: cfg.Poll.Interval(),
		PollTimeout:  cfg.Poll.Timeout(),
		OnProgress: func(attempt int, status *surfe.EnrichmentStatus) {
			msg := status.Status
			if status.Progress != nil {
				msg = fmt.Sprintf("%s %d/%d", status.Status, status.Progress.Completed, status.Progress.Total)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "poll %d: %s\n", attempt, msg)
		},
	}

	var result *enrich.Result
	switch kind {
	case "companies":
		result, err = runner.EnrichCompanies(cmd.Context(), table, enrichColumn, enrichDataPoints)
	case "people":
		result, err = runner.EnrichPeople(cmd.Context(), table, enrichColumn, enrichDataPoints)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "job %s: submitted %d, skipped %d, returned %d\n",
		result.JobID, result.Submitted, result.Skipped, result.Returned)
	for _, st := range result.Stats {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-18s %d/%d rows\n", st.Key, st.Populated, st.Total)
	}

	return writeTable(table, enrichOutput, enrichFormat)
}

func writeTable(t *tabular.Table, path, format string) error {
	switch strings.ToLower(format) {
	case "csv":
		return t.WriteCSVFile(path)
	case "xlsx":
		return t.WriteXLSXFile(path, "Enriched")
	default:
		return eris.Errorf("unknown output format %q, want csv or xlsx", format)
	}
}

func init() {
	for _, c := range []*cobra.Command{enrichCmd, enrichPeopleCmd} {
		c.Flags().StringVar(&enrichInput, "input", "", "input CSV file (required)")
		c.Flags().StringVar(&enrichColumn, "column", "", "lookup column name (required)")
		c.Flags().StringSliceVar(&enrichDataPoints, "datapoints", nil, "data points to request (default all)")
		c.Flags().StringVar(&enrichOutput, "output", "enriched.csv", "output file")
		c.Flags().StringVar(&enrichFormat, "format", "csv", "output format: csv or xlsx")
		c.MarkFlagRequired("input")
		c.MarkFlagRequired("column")
		rootCmd.AddCommand(c)
	}
}
