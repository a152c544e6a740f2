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
	"github.com/sells-group/ad-scout/internal/store"
)

var searchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "Inspect stored searches",
	Long:  "Commands for listing, viewing, and summarizing stored searches.",
}

// -- searches list --

var searchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored searches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		searches, err := st.ListSearches(ctx, store.SearchFilter{
			Status: model.SearchStatus(status),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return eris.Wrap(err, "searches list")
		}

		if len(searches) == 0 {
			fmt.Fprintln(os.Stderr, "No searches found.")
			return nil
		}

		formatSearchesList(os.Stdout, searches)
		return nil
	},
}

// -- searches show --

var searchesShowCmd = &cobra.Command{
	Use:   "show <search-id>",
	Short: "Show a stored search with its ads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		s, err := st.GetSearch(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "searches show")
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

// -- searches stats --

var searchesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate search statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "searches stats")
		}
		formatStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	searchesListCmd.Flags().String("status", "", "filter by status (pending, processing, completed, failed)")
	searchesListCmd.Flags().Int("limit", 50, "max number of searches to display")
	searchesListCmd.Flags().Int("offset", 0, "number of searches to skip")

	searchesShowCmd.Flags().Bool("json", false, "print the search as JSON")

	searchesCmd.AddCommand(searchesListCmd)
	searchesCmd.AddCommand(searchesShowCmd)
	searchesCmd.AddCommand(searchesStatsCmd)
	rootCmd.AddCommand(searchesCmd)
}

// formatSearchesList writes a tabular list of searches to w.
func formatSearchesList(out io.Writer, searches []model.Search) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKEYWORDS\tCOUNTRIES\tSTATUS\tADS\tWINNERS\tPOTENTIAL\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t---------\t------\t---\t-------\t---------\t-------")

	for _, s := range searches {
		keywords := s.Target.EffectiveKeywords()
		if len(keywords) == 0 {
			keywords = s.Target.Keywords
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			truncateID(s.ID),
			truncate(strings.Join(keywords, ","), 30),
			strings.Join(s.Target.Countries, ","),
			s.Status,
			s.TotalResults,
			s.WinnersCount,
			s.PotentialCount,
			s.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatStats writes aggregate stats to w.
func formatStats(out io.Writer, s *model.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Searches:\t%d\n", s.TotalSearches)
	_, _ = fmt.Fprintf(w, "  Completed:\t%d\n", s.CompletedSearches)
	_, _ = fmt.Fprintf(w, "Ads found:\t%d\n", s.TotalAds)
	_, _ = fmt.Fprintf(w, "  Winners:\t%d\n", s.WinnersCount)
	_, _ = fmt.Fprintf(w, "  Potential:\t%d\n", s.PotentialCount)
	_, _ = fmt.Fprintf(w, "  With contact:\t%d\n", s.WithContact)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
