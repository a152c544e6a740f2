package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ad-scout/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the ads library and classify the results",
	Long:  "Scrapes every country x keyword pair, keeps relevant ads, classifies them into winner/potential tiers and stores the search.",
	Example: `  ad-scout search --keywords "curso de ingles" --countries CL,PE
  ad-scout search --target target.yaml --source simulated --json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		target, err := targetFromFlags(cmd)
		if err != nil {
			return err
		}
		if source, _ := cmd.Flags().GetString("source"); source != "" {
			cfg.Search.Source = source
			target.DataSource = model.DataSource(source)
		}

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		s, err := env.runSearch(ctx, target)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		formatSearch(os.Stdout, s)
		return nil
	},
}

// targetFromFlags builds a SearchTarget from --target and the inline flags.
// Inline flags override the file.
func targetFromFlags(cmd *cobra.Command) (model.SearchTarget, error) {
	var target model.SearchTarget
	if path, _ := cmd.Flags().GetString("target"); path != "" {
		t, err := model.LoadTarget(path)
		if err != nil {
			return target, err
		}
		target = t
	}

	if kw, _ := cmd.Flags().GetStringSlice("keywords"); len(kw) > 0 {
		target.Keywords = kw
	}
	if sel, _ := cmd.Flags().GetStringSlice("selected"); len(sel) > 0 {
		target.SelectedKeywords = sel
	}
	if countries, _ := cmd.Flags().GetStringSlice("countries"); len(countries) > 0 {
		target.Countries = make([]string, len(countries))
		for i, c := range countries {
			target.Countries[i] = strings.ToUpper(strings.TrimSpace(c))
		}
	}
	if n, _ := cmd.Flags().GetInt("result-cap"); n > 0 {
		target.ResultCap = n
	}

	if len(target.Keywords) == 0 && len(target.SelectedKeywords) == 0 {
		return target, eris.New("search: --keywords or --target is required")
	}
	return target, nil
}

// formatSearch writes a summary and the classified ads to w.
func formatSearch(out io.Writer, s *model.Search) {
	_, _ = fmt.Fprintf(out, "Search %s: %s\n", s.ID, s.Status)
	_, _ = fmt.Fprintf(out, "Ads: %d  Winners: %d  Potential: %d\n\n", s.TotalResults, s.WinnersCount, s.PotentialCount)
	formatAds(out, s.Ads)
}

// formatAds writes a tabular list of ads to w.
func formatAds(out io.Writer, ads []model.AdRecord) {
	if len(ads) == 0 {
		_, _ = fmt.Fprintln(out, "No ads found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIER\tPAGE\tCOUNTRY\tDAYS\tADS\tCONTACT\tKEYWORD")
	_, _ = fmt.Fprintln(w, "----\t----\t-------\t----\t---\t-------\t-------")
	for _, ad := range ads {
		contact := ""
		if ad.HasContactSignal {
			contact = "yes"
			if ad.ContactPhone != "" {
				contact = ad.ContactPhone
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			ad.Tier(),
			truncate(ad.PageName, 30),
			ad.CountryCode,
			ad.DaysRunning,
			ad.AdsCount,
			contact,
			ad.SearchKeyword,
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("keywords", nil, "keywords to search (comma separated)")
	cmd.Flags().StringSlice("selected", nil, "subset of keywords to scrape instead of --keywords")
	cmd.Flags().StringSlice("countries", nil, "ISO country codes (comma separated)")
	cmd.Flags().String("target", "", "YAML file with a full search target")
	cmd.Flags().String("source", "", "data source: apify or simulated (default from config)")
	cmd.Flags().Int("result-cap", 0, "max ads to keep (default from config)")
	cmd.Flags().Bool("json", false, "print the stored search as JSON")
}

func init() {
	addSearchFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}
