package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RodSession is a Session backed by a single stealth tab in a launched
// Chromium. Close must be called to release the browser process.
type RodSession struct {
	browser *rod.Browser
	page    *rod.Page
}

// Launch starts a browser and opens the tab every navigation reuses.
func Launch(headless bool) (*RodSession, error) {
	l := launcher.New().Headless(headless).NoSandbox(true)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &RodSession{browser: browser, page: page}, nil
}

// Close tears down the tab and the browser.
func (s *RodSession) Close() error {
	if s.page != nil {
		_ = s.page.Close()
	}
	return s.browser.Close()
}

func (s *RodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, mapErr(err))
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, mapErr(err))
	}
	return nil
}

func (s *RodSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := s.page.Context(wctx).Element(selector)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, mapErr(err)
	}
	return &rodElement{el: el.Context(ctx), mouse: s.page.Mouse}, nil
}

func (s *RodSession) Count(ctx context.Context, selector string) (int, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, mapErr(err)
	}
	return len(els), nil
}

func (s *RodSession) WaitCountAbove(ctx context.Context, selector string, n int, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return mapErr(s.page.Context(wctx).WaitElementsMoreThan(selector, n))
}

func (s *RodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", mapErr(err)
	}
	return html, nil
}

// node is the part of *rod.Element the session uses.
type node interface {
	Eval(js string, params ...interface{}) (*proto.RuntimeRemoteObject, error)
	ScrollIntoView() error
	Interactable() (*proto.Point, error)
}

// pointer is the part of *rod.Mouse the session uses.
type pointer interface {
	MoveTo(p proto.Point) error
	Click(button proto.InputMouseButton, clickCount int) error
}

type rodElement struct {
	el    node
	mouse pointer
}

// Disabled treats the disabled property, a "disabled" class and
// aria-disabled alike, since the control is usually an anchor.
func (e *rodElement) Disabled() (bool, error) {
	res, err := e.el.Eval(`function() {
		return !!this.disabled ||
			this.classList.contains('disabled') ||
			this.getAttribute('aria-disabled') === 'true'
	}`)
	if err != nil {
		return false, mapErr(err)
	}
	return res.Value.Bool(), nil
}

func (e *rodElement) ScrollIntoView() error {
	return mapErr(e.el.ScrollIntoView())
}

// Click checks interactability once and clicks at the returned point.
// rod's Element.Click waits for an overlay to go away with no deadline,
// so a covered control is reported as ErrClickIntercepted instead and the
// caller decides whether to retry.
func (e *rodElement) Click() error {
	pt, err := e.el.Interactable()
	if err != nil {
		return mapErr(err)
	}
	if err := e.mouse.MoveTo(*pt); err != nil {
		return mapErr(err)
	}
	return mapErr(e.mouse.Click(proto.InputMouseButtonLeft, 1))
}

// mapErr translates rod failures into the package sentinels, keeping the
// original error in the chain.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	// covered, pointer-events:none and invisible shapes all unwrap to
	// NotInteractableError.
	var (
		notInteractable *rod.NotInteractableError
		notFound        *rod.ElementNotFoundError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &notInteractable):
		return fmt.Errorf("%w: %w", ErrClickIntercepted, err)
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
