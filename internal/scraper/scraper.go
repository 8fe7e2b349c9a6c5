package scraper

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"mspro-labs/loadmore/internal/browser"
	"mspro-labs/loadmore/internal/config"
	"mspro-labs/loadmore/internal/models"
)

// Sink persists the products of one target.
type Sink interface {
	Save(ctx context.Context, target config.Target, products []models.Product) error
}

// Summary describes what one target produced.
type Summary struct {
	Target      config.Target
	URL         string
	Clicks      int
	Termination Termination
	Products    int
	Skipped     int
}

// Run orchestrates the entire scraping process for each target in turn:
// load, extract, then hand the products to every sink. The first failure
// aborts the run.
func Run(ctx context.Context, session browser.Session, cfg *config.SiteConfig, targets []config.Target, sinks []Sink, log zerolog.Logger) ([]Summary, error) {
	loader := NewLoader(session, cfg, log.With().Str("component", "loader").Logger())
	extractor := NewExtractor(cfg, log.With().Str("component", "extractor").Logger())

	summaries := make([]Summary, 0, len(targets))
	for _, target := range targets {
		url, err := cfg.URL(target)
		if err != nil {
			return summaries, err
		}

		page, err := loader.Load(ctx, url)
		if err != nil {
			return summaries, fmt.Errorf("failed to load %s: %w", target.Name, err)
		}

		log.Info().Str("target", target.Name).Msg("Parsing HTML content...")
		products, skipped, err := extractor.Extract(page.HTML)
		if err != nil {
			return summaries, fmt.Errorf("failed to parse %s: %w", target.Name, err)
		}

		for _, sink := range sinks {
			if err := sink.Save(ctx, target, products); err != nil {
				return summaries, fmt.Errorf("failed to save %s: %w", target.Name, err)
			}
		}

		s := Summary{
			Target:      target,
			URL:         url,
			Clicks:      page.Clicks,
			Termination: page.Termination,
			Products:    len(products),
			Skipped:     skipped,
		}
		log.Info().
			Str("target", target.Name).
			Int("clicks", s.Clicks).
			Str("termination", string(s.Termination)).
			Int("products", s.Products).
			Int("skipped", s.Skipped).
			Msg("Target done")
		summaries = append(summaries, s)
	}
	return summaries, nil
}
