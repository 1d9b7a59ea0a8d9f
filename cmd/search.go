package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bashir0609/surfe-toolkit/internal/enrich"
	"github.com/bashir0609/surfe-toolkit/internal/search"
	"github.com/bashir0609/surfe-toolkit/internal/tabular"
	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

var (
	searchIndustries []string
	searchCountries  []string
	searchPageSize   int
	searchMax        int
	searchSizes      []string
	searchPages      int
	searchOutput     string
	searchFormat     string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search companies by industry and country",
	Long:  "Pages through company search results with continuation tokens. Loads --pages pages (0 loads until the cap or exhaustion), optionally filters by employee size ranges, and exports the results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(searchIndustries) == 0 && len(searchCountries) == 0 {
			return fmt.Errorf("at least one of --industry or --country is required")
		}

		client, err := newSurfeClient()
		if err != nil {
			return err
		}

		max := searchMax
		if max == 0 {
			max = cfg.Search.MaxResults
		}
		pageSize := searchPageSize
		if pageSize == 0 {
			pageSize = cfg.Search.PageSize
		}

		var opts []search.Option
		if max > 0 {
			opts = append(opts, search.WithMaxResults(max))
		}
		sess := search.NewCompanySession(client, surfe.CompanyFilters{
			Industries: searchIndustries,
			Countries:  searchCountries,
		}, pageSize, opts...)

		if searchPages > 0 {
			for i := 0; i < searchPages && !sess.Done(); i++ {
				n, err := sess.LoadMore(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "page %d: %d companies (total %d)\n", i+1, n, sess.TotalLoaded())
			}
		} else {
			if err := sess.Run(cmd.Context()); err != nil {
				return err
			}
		}

		results := sess.Results()
		if len(searchSizes) > 0 {
			results = sess.FilterBySize(searchSizes)
			zap.L().Info("size filter applied",
				zap.Strings("ranges", searchSizes),
				zap.Int("matched", len(results)),
				zap.Int("loaded", sess.TotalLoaded()),
			)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d companies, exporting %d\n", sess.TotalLoaded(), len(results))
		if len(results) == 0 {
			return nil
		}

		table := entityTable(results)
		return writeTable(table, searchOutput, searchFormat)
	},
}

func entityTable(entities []surfe.Entity) *tabular.Table {
	rows := make([]map[string]any, len(entities))
	for i, e := range entities {
		rows[i] = e
	}
	return tabular.FromEntities(rows, enrich.FormatValue)
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchIndustries, "industry", nil, "industry filter (repeatable)")
	searchCmd.Flags().StringSliceVar(&searchCountries, "country", nil, "country filter (repeatable)")
	searchCmd.Flags().IntVar(&searchPageSize, "page-size", 0, "results per page (default from config)")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "stop after this many results (default from config)")
	searchCmd.Flags().StringSliceVar(&searchSizes, "size", nil, "employee size ranges to keep, e.g. 11-50 (repeatable)")
	searchCmd.Flags().IntVar(&searchPages, "pages", 0, "number of pages to load (0 loads all)")
	searchCmd.Flags().StringVar(&searchOutput, "output", "companies.csv", "output file")
	searchCmd.Flags().StringVar(&searchFormat, "format", "csv", "output format: csv or xlsx")
	rootCmd.AddCommand(searchCmd)
}
