package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var apifyCmd = &cobra.Command{
	Use:   "apify",
	Short: "Apify account utilities",
}

var apifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that the configured token can reach the scraper actor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("apify"); err != nil {
			return err
		}

		scraper, err := buildApifyScraper(cfg.Apify)
		if err != nil {
			return err
		}

		actor, err := scraper.TestConnection(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "apify test")
		}
		fmt.Printf("Connected: actor %s/%s (%s)\n", actor.Username, actor.Name, actor.ID)
		return nil
	},
}

func init() {
	apifyCmd.AddCommand(apifyTestCmd)
	rootCmd.AddCommand(apifyCmd)
}
