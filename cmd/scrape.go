package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mspro-labs/loadmore/internal/browser"
	"mspro-labs/loadmore/internal/config"
	"mspro-labs/loadmore/internal/db"
	"mspro-labs/loadmore/internal/exporter"
	"mspro-labs/loadmore/internal/logx"
	"mspro-labs/loadmore/internal/scraper"
)

var scrapeFlags struct {
	configPath string
	outputDir  string
	dbPath     string
	only       []string
	headful    bool
}

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape every configured category into its CSV file",
	Long: `Opens one browser session, expands each category page by clicking "load more"
until the control runs out, extracts every product card and writes one CSV per
category. With --db (or DB_PATH) the products are also upserted into SQLite.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd)
	},
}

func init() {
	f := scrapeCmd.Flags()
	f.StringVar(&scrapeFlags.configPath, "config", "", "site config YAML (default $CONFIG_PATH or config.yaml)")
	f.StringVarP(&scrapeFlags.outputDir, "out", "o", "", "directory for the CSV files (default $OUTPUT_DIR or .)")
	f.StringVar(&scrapeFlags.dbPath, "db", "", "also save products to this SQLite file (default $DB_PATH)")
	f.StringSliceVar(&scrapeFlags.only, "only", nil, "scrape only these categories, e.g. --only laptops,touch")
	f.BoolVar(&scrapeFlags.headful, "headful", false, "show the browser window")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command) error {
	log := logx.Component("scrape")

	// 1. Load Config
	configPath := pick(scrapeFlags.configPath, appCfg.ConfigPath)
	siteCfg, err := config.LoadSiteConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load site config: %w", err)
	}
	targets, err := siteCfg.Filter(scrapeFlags.only)
	if err != nil {
		return err
	}

	// 2. Sinks
	sinks := []scraper.Sink{exporter.CSVSink{
		Dir: pick(scrapeFlags.outputDir, appCfg.OutputDir),
		Log: logx.Component("exporter"),
	}}
	if dbPath := pick(scrapeFlags.dbPath, appCfg.DBPath); dbPath != "" {
		database, err := db.Connect(dbPath)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		defer database.Close()
		sinks = append(sinks, db.Sink{DB: database})
	}

	// 3. Launch Browser
	log.Info().Msg("Launching browser...")
	session, err := browser.Launch(appCfg.Headless && !scrapeFlags.headful)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	// 4. Run Scraper
	summaries, err := scraper.Run(cmd.Context(), session, siteCfg, targets, sinks, logx.Logger())
	if err != nil {
		return fmt.Errorf("scraping failed: %w", err)
	}

	total := 0
	for _, s := range summaries {
		total += s.Products
	}
	log.Info().Int("targets", len(summaries)).Int("products", total).Msg("Scraper finished successfully.")
	return nil
}

// pick prefers an explicit flag value over the environment.
func pick(flag, env string) string {
	if flag != "" {
		return flag
	}
	return env
}
