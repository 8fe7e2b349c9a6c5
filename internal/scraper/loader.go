package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"mspro-labs/loadmore/internal/browser"
	"mspro-labs/loadmore/internal/config"
)

// State is a step of the load-more loop.
type State int

const (
	StateAwaitingControl State = iota
	StateControlVisibleEnabled
	StateClickIntercepted
	StateControlDisabledOrAbsent
)

func (s State) String() string {
	switch s {
	case StateAwaitingControl:
		return "AWAITING_CONTROL"
	case StateControlVisibleEnabled:
		return "CONTROL_VISIBLE_ENABLED"
	case StateClickIntercepted:
		return "CLICK_INTERCEPTED"
	case StateControlDisabledOrAbsent:
		return "CONTROL_DISABLED_OR_ABSENT"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Termination says why the loop reached CONTROL_DISABLED_OR_ABSENT.
type Termination string

const (
	TerminatedAbsent     Termination = "control_absent"
	TerminatedDisabled   Termination = "control_disabled"
	TerminatedNoNewItems Termination = "no_new_items"
)

// LoadResult is the fully expanded page.
type LoadResult struct {
	HTML        string
	Clicks      int
	Termination Termination
}

// NeverFound reports whether the page had no usable control at all, as
// opposed to one that was clicked until it ran out.
func (r LoadResult) NeverFound() bool {
	return r.Clicks == 0 && r.Termination == TerminatedAbsent
}

// Loader drives a browser session through a listing page, clicking the
// load-more control until the page stops growing.
type Loader struct {
	session browser.Session
	sel     config.Selectors
	pg      config.Pagination
	log     zerolog.Logger

	sleep          func(context.Context, time.Duration) error
	consentHandled bool
}

func NewLoader(session browser.Session, cfg *config.SiteConfig, log zerolog.Logger) *Loader {
	return &Loader{
		session: session,
		sel:     cfg.Selectors,
		pg:      cfg.Pagination,
		log:     log,
		sleep:   sleepCtx,
	}
}

// Load navigates to url and expands it. The cookie banner is handled on the
// first call only, since consent persists for the session.
func (l *Loader) Load(ctx context.Context, url string) (LoadResult, error) {
	log := l.log.With().Str("url", url).Logger()

	log.Info().Msg("Navigating...")
	navCtx, cancel := context.WithTimeout(ctx, l.pg.NavigationTimeout)
	err := l.session.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return LoadResult{}, err
	}

	if !l.consentHandled {
		l.acceptConsent(ctx, log)
		l.consentHandled = true
	}

	res, err := l.expand(ctx, log)
	if err != nil {
		return LoadResult{}, err
	}

	htmlCtx, cancel := context.WithTimeout(ctx, l.pg.NavigationTimeout)
	res.HTML, err = l.session.HTML(htmlCtx)
	cancel()
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to read page markup: %w", err)
	}
	return res, nil
}

func (l *Loader) acceptConsent(ctx context.Context, log zerolog.Logger) {
	sel := l.sel.CookieButton
	if sel == "" {
		return
	}
	log.Debug().Str("selector", sel).Msg("Looking for cookie button")
	el, err := l.session.WaitVisible(ctx, sel, l.pg.ConsentTimeout)
	if err != nil {
		log.Info().Err(err).Msg("Cookie button not found (ignoring)")
		return
	}
	if err := el.Click(); err != nil {
		log.Warn().Err(err).Msg("Cookie button click failed (ignoring)")
	}
}

func (l *Loader) expand(ctx context.Context, log zerolog.Logger) (LoadResult, error) {
	var (
		res      LoadResult
		control  browser.Element
		attempts int
		bo       = l.clickBackOff()
		state    = StateAwaitingControl
	)

	for {
		switch state {
		case StateAwaitingControl:
			el, err := l.session.WaitVisible(ctx, l.sel.LoadMore, l.pg.ControlTimeout)
			if isGone(err) {
				if res.Clicks == 0 {
					log.Warn().Msg("'Load more' control not found")
				} else {
					log.Info().Int("clicks", res.Clicks).Msg("'Load more' control is gone")
				}
				res.Termination = TerminatedAbsent
				state = StateControlDisabledOrAbsent
				continue
			}
			if err != nil {
				return res, fmt.Errorf("failed waiting for load-more control: %w", err)
			}
			disabled, err := el.Disabled()
			if err != nil {
				return res, fmt.Errorf("failed to read load-more state: %w", err)
			}
			if disabled {
				log.Info().Int("clicks", res.Clicks).Msg("'Load more' control is no longer available")
				res.Termination = TerminatedDisabled
				state = StateControlDisabledOrAbsent
				continue
			}
			control = el
			state = StateControlVisibleEnabled

		case StateControlVisibleEnabled:
			countCtx, cancel := context.WithTimeout(ctx, l.pg.ControlTimeout)
			before, err := l.session.Count(countCtx, l.sel.ProductCard)
			cancel()
			if err != nil {
				return res, fmt.Errorf("failed to count product cards: %w", err)
			}
			err = control.ScrollIntoView()
			if err == nil {
				err = control.Click()
			}
			if errors.Is(err, browser.ErrClickIntercepted) {
				state = StateClickIntercepted
				continue
			}
			if err != nil {
				return res, fmt.Errorf("failed to click load-more control: %w", err)
			}
			res.Clicks++
			attempts = 0
			bo.Reset()

			if err := l.sleep(ctx, l.pg.ClickPause); err != nil {
				return res, err
			}
			err = l.session.WaitCountAbove(ctx, l.sel.ProductCard, before, l.pg.NewItemsTimeout)
			if isGone(err) {
				log.Info().Int("clicks", res.Clicks).Int("cards", before).Msg("No new products appeared")
				res.Termination = TerminatedNoNewItems
				state = StateControlDisabledOrAbsent
				continue
			}
			if err != nil {
				return res, fmt.Errorf("failed waiting for new products: %w", err)
			}
			log.Debug().Int("clicks", res.Clicks).Msg("Loaded more products")
			state = StateAwaitingControl

		case StateClickIntercepted:
			attempts++
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				return res, fmt.Errorf("%w after %d attempts", ErrClickRetriesExhausted, attempts)
			}
			log.Warn().Int("attempt", attempts).Dur("backoff", wait).Msg("Failed to click the 'Load more' control. Retrying.")
			if err := l.sleep(ctx, wait); err != nil {
				return res, err
			}
			state = StateAwaitingControl

		case StateControlDisabledOrAbsent:
			return res, nil
		}
	}
}

func (l *Loader) clickBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = l.pg.RetryBackoff
	exp.MaxInterval = l.pg.MaxRetryBackoff
	exp.MaxElapsedTime = 0
	bo := backoff.WithMaxRetries(exp, uint64(l.pg.MaxInterceptRetries))
	bo.Reset()
	return bo
}

// isGone covers every "nothing more to load" signal.
func isGone(err error) bool {
	return errors.Is(err, browser.ErrTimeout) || errors.Is(err, browser.ErrNotFound)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
