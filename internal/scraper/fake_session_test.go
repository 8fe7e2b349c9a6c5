package scraper

import (
	"context"
	"strings"
	"time"

	"mspro-labs/loadmore/internal/browser"
	"mspro-labs/loadmore/internal/config"
)

// fakeSession simulates the demo shop: every successful load-more click
// appends cardsPerClick cards until the control is disabled or hidden.
type fakeSession struct {
	sel config.Selectors

	consentPresent bool
	controlMissing bool
	disableAfter   int // control reports disabled after this many clicks; <0 never
	hideAfter      int // control disappears after this many clicks; <0 never
	intercepts     int // clicks to intercept before one goes through
	noGrowth       bool
	navigateErr    error

	cards         int
	cardsPerClick int
	clicks        int
	consentClicks int
	navigated     []string
	waits         []string
	unbounded     []string // calls made without a deadline
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		sel:           config.DefaultSiteConfig().Selectors,
		disableAfter:  -1,
		hideAfter:     -1,
		cards:         6,
		cardsPerClick: 3,
	}
}

func (s *fakeSession) checkDeadline(ctx context.Context, call string) {
	if _, ok := ctx.Deadline(); !ok {
		s.unbounded = append(s.unbounded, call)
	}
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.checkDeadline(ctx, "Navigate")
	s.navigated = append(s.navigated, url)
	return s.navigateErr
}

func (s *fakeSession) WaitVisible(_ context.Context, selector string, _ time.Duration) (browser.Element, error) {
	s.waits = append(s.waits, selector)
	switch selector {
	case s.sel.CookieButton:
		if !s.consentPresent {
			return nil, browser.ErrTimeout
		}
		return &fakeElement{s: s, consent: true}, nil
	case s.sel.LoadMore:
		if s.controlMissing || (s.hideAfter >= 0 && s.clicks >= s.hideAfter) {
			return nil, browser.ErrTimeout
		}
		return &fakeElement{s: s}, nil
	}
	return nil, browser.ErrNotFound
}

func (s *fakeSession) Count(ctx context.Context, _ string) (int, error) {
	s.checkDeadline(ctx, "Count")
	return s.cards, nil
}

func (s *fakeSession) WaitCountAbove(_ context.Context, _ string, n int, _ time.Duration) error {
	if s.cards > n {
		return nil
	}
	return browser.ErrTimeout
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	s.checkDeadline(ctx, "HTML")
	cards := make([]string, s.cards)
	for i := range cards {
		cards[i] = productCard("Item", "Item description", "$10.50", "2 reviews", 3, 2)
	}
	return listingPage(strings.Join(cards, "\n")), nil
}

type fakeElement struct {
	s       *fakeSession
	consent bool
}

func (e *fakeElement) Disabled() (bool, error) {
	return !e.consent && e.s.disableAfter >= 0 && e.s.clicks >= e.s.disableAfter, nil
}

func (e *fakeElement) ScrollIntoView() error { return nil }

func (e *fakeElement) Click() error {
	if e.consent {
		e.s.consentClicks++
		return nil
	}
	if e.s.intercepts > 0 {
		e.s.intercepts--
		return browser.ErrClickIntercepted
	}
	e.s.clicks++
	if !e.s.noGrowth {
		e.s.cards += e.s.cardsPerClick
	}
	return nil
}
