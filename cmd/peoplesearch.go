package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

var (
	peopleName    string
	peopleCompany string
	peopleTitle   string
	peopleCountry string
	peopleLimit   int
	peopleOutput  string
	peopleFormat  string
)

var peopleSearchCmd = &cobra.Command{
	Use:   "people-search",
	Short: "Search people by name, company, title or country",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := surfe.PeopleQuery{
			Name:           peopleName,
			CurrentCompany: peopleCompany,
			Title:          peopleTitle,
			Country:        peopleCountry,
		}
		if query.Empty() {
			return fmt.Errorf("at least one of --name, --company, --title or --country is required")
		}

		client, err := newSurfeClient()
		if err != nil {
			return err
		}

		resp, err := client.SearchPeople(cmd.Context(), surfe.PeopleSearchRequest{
			Query: query,
			Limit: peopleLimit,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "found %d people\n", len(resp.People))
		if len(resp.People) == 0 {
			return nil
		}
		return writeTable(entityTable(resp.People), peopleOutput, peopleFormat)
	},
}

func init() {
	peopleSearchCmd.Flags().StringVar(&peopleName, "name", "", "person name")
	peopleSearchCmd.Flags().StringVar(&peopleCompany, "company", "", "current company")
	peopleSearchCmd.Flags().StringVar(&peopleTitle, "title", "", "job title")
	peopleSearchCmd.Flags().StringVar(&peopleCountry, "country", "", "country")
	peopleSearchCmd.Flags().IntVar(&peopleLimit, "limit", 10, "maximum results")
	peopleSearchCmd.Flags().StringVar(&peopleOutput, "output", "people.csv", "output file")
	peopleSearchCmd.Flags().StringVar(&peopleFormat, "format", "csv", "output format: csv or xlsx")
	rootCmd.AddCommand(peopleSearchCmd)
}
