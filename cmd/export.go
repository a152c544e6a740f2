package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ad-scout/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <search-id>",
	Short: "Export a stored search as CSV, XLSX or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

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
			return eris.Wrap(err, "export")
		}

		path, _ := cmd.Flags().GetString("output")
		if path == "-" {
			return export.Write(os.Stdout, format, s)
		}
		if path == "" {
			path = export.Filename(s.ID, format, time.Now())
		}

		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", path)
		}
		if err := export.Write(f, format, s); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "export: close %s", path)
		}

		zap.L().Info("export written",
			zap.String("search_id", s.ID),
			zap.String("path", path),
			zap.Int("ads", len(s.Ads)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "csv", "output format: csv, xlsx or json")
	exportCmd.Flags().StringP("output", "o", "", "output file (default ads_search_<id>_<date>.<format>, - for stdout)")
	rootCmd.AddCommand(exportCmd)
}
