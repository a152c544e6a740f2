package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/ad-scout/internal/copywriter"
)

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Generate new sales copy from an existing ad",
	Example: `  ad-scout clone --page "Cursos Online" --text "Aprende inglés en 30 días" --country CL --price 19.9`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		req := copywriter.Request{}
		req.AdID, _ = cmd.Flags().GetString("ad-id")
		req.PageName, _ = cmd.Flags().GetString("page")
		req.AdText, _ = cmd.Flags().GetString("text")
		req.Country, _ = cmd.Flags().GetString("country")
		req.Price, _ = cmd.Flags().GetFloat64("price")
		if err := req.Validate(); err != nil {
			return err
		}

		env, err := initEnv(ctx, "clone")
		if err != nil {
			return err
		}
		defer env.Close()

		clone, err := env.cloneAd(ctx, req)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(clone)
		}
		fmt.Println(clone.Copy)
		return nil
	},
}

func init() {
	cloneCmd.Flags().String("ad-id", "", "id of the stored ad being cloned (optional)")
	cloneCmd.Flags().String("page", "", "page or brand name")
	cloneCmd.Flags().String("text", "", "original ad text")
	cloneCmd.Flags().String("country", "", "target country code")
	cloneCmd.Flags().Float64("price", 0, "offer price")
	cloneCmd.Flags().Bool("json", false, "print the stored clone as JSON")
	rootCmd.AddCommand(cloneCmd)
}
