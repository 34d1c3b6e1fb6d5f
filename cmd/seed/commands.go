package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/atmx/market-data/internal/config"
	"github.com/atmx/market-data/internal/importer"
	"github.com/atmx/market-data/internal/market"
	"github.com/atmx/market-data/internal/model"
	"github.com/atmx/market-data/internal/store"
)

// seeder holds what every subcommand shares once PersistentPreRunE ran.
type seeder struct {
	cfg      *config.Config
	registry *market.Registry
	open     func(context.Context, *config.Config, []string) (store.Store, func(), error)
	store    store.Store
	close    func()
}

func newSeeder() *seeder {
	return &seeder{registry: market.MustDefault(), open: store.Open}
}

// execute runs the command line and releases the store whether or not the
// command succeeded.
func execute(ctx context.Context, s *seeder, args []string) error {
	cmd := newRootCmd(s)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	s.Close()
	return err
}

// Close releases the store connection. Safe to call more than once.
func (s *seeder) Close() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
}

func newRootCmd(s *seeder) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Import historical daily bars into the market data store",
		Long: `seed fills the daily collections from upstream providers.
Yahoo Finance CSV exports go to <collection>_yahoo and Alpha Vantage
TIME_SERIES_DAILY data goes to <collection>. Dates already stored are skipped.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAndValidate()
			if err != nil {
				return err
			}
			st, closeFn, err := s.open(cmd.Context(), cfg, s.registry.Collections())
			if err != nil {
				return err
			}
			s.cfg, s.store, s.close = cfg, st, closeFn
			return nil
		},
	}

	rootCmd.AddCommand(newYahooCmd(s))
	rootCmd.AddCommand(newAlphaVantageCmd(s))
	rootCmd.AddCommand(newAllCmd(s))

	return rootCmd
}

// newYahooCmd creates the yahoo command
func newYahooCmd(s *seeder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yahoo [COLLECTION|SYMBOL]",
		Short: "Import a Yahoo Finance CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.registry.Resolve(args[0])
			if err != nil {
				return err
			}
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				file = m.Collection + ".csv"
			}
			_, err = s.importYahoo(cmd.Context(), m, file)
			return err
		},
	}
	cmd.Flags().String("file", "", "CSV file path (default <collection>.csv)")
	return cmd
}

// newAlphaVantageCmd creates the alphavantage command
func newAlphaVantageCmd(s *seeder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alphavantage [COLLECTION|SYMBOL]",
		Short: "Import the full Alpha Vantage daily series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.registry.Resolve(args[0])
			if err != nil {
				return err
			}
			symbol, _ := cmd.Flags().GetString("symbol")
			_, err = s.importAlphaVantage(cmd.Context(), m, symbol)
			return err
		},
	}
	cmd.Flags().String("symbol", "", "Alpha Vantage ticker (default per market)")
	return cmd
}

// newAllCmd creates the all command
func newAllCmd(s *seeder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Import every market from both sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			skipAV, _ := cmd.Flags().GetBool("skip-alphavantage")
			for _, m := range s.registry.Markets() {
				if _, err := s.importYahoo(cmd.Context(), m, filepath.Join(dir, m.Collection+".csv")); err != nil {
					return err
				}
			}
			if skipAV {
				return nil
			}
			for _, m := range s.registry.Markets() {
				if _, err := s.importAlphaVantage(cmd.Context(), m, ""); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().String("dir", ".", "Directory holding <collection>.csv files")
	cmd.Flags().Bool("skip-alphavantage", false, "Only import the Yahoo CSV files")
	return cmd
}

func (s *seeder) importYahoo(ctx context.Context, m model.Market, path string) (importer.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return importer.Summary{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	recs, err := importer.ParseYahooCSV(f)
	if err != nil {
		return importer.Summary{}, fmt.Errorf("%s: %w", path, err)
	}
	return importer.Import(ctx, s.store, store.PhysicalCollection(m.Collection, true), recs)
}

func (s *seeder) importAlphaVantage(ctx context.Context, m model.Market, symbol string) (importer.Summary, error) {
	if symbol == "" {
		symbol = importer.AlphaVantageSymbols[m.Collection]
	}
	av := s.cfg.AlphaVantage
	client := importer.NewAlphaVantageClient(av.BaseURL, av.APIKey, av.Timeout)
	recs, err := client.DailySeries(ctx, symbol)
	if err != nil {
		return importer.Summary{}, err
	}
	return importer.Import(ctx, s.store, store.PhysicalCollection(m.Collection, false), recs)
}
