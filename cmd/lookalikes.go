package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bashir0609/surfe-toolkit/internal/enrich"
)

var (
	lookalikeCountry string
	lookalikeOutput  string
	lookalikeFormat  string
)

var lookalikesCmd = &cobra.Command{
	Use:   "lookalikes <domain>",
	Short: "Find organizations similar to a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain := enrich.CleanDomain(args[0])
		if domain == "" {
			return fmt.Errorf("%q is not a valid company domain", args[0])
		}

		client, err := newSurfeClient()
		if err != nil {
			return err
		}

		resp, err := client.CompanyLookalikes(cmd.Context(), domain, lookalikeCountry)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "found %d lookalikes for %s\n", len(resp.Organizations), domain)
		if len(resp.Organizations) == 0 {
			return nil
		}
		return writeTable(entityTable(resp.Organizations), lookalikeOutput, lookalikeFormat)
	},
}

func init() {
	lookalikesCmd.Flags().StringVar(&lookalikeCountry, "country", "", "restrict lookalikes to a country")
	lookalikesCmd.Flags().StringVar(&lookalikeOutput, "output", "lookalikes.csv", "output file")
	lookalikesCmd.Flags().StringVar(&lookalikeFormat, "format", "csv", "output format: csv or xlsx")
	rootCmd.AddCommand(lookalikesCmd)
}
