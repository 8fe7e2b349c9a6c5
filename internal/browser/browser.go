// Package browser is the page-automation collaborator the scraper drives.
// Session is all the loader needs; RodSession backs it with a headless
// Chromium controlled through go-rod.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout means a bounded wait expired before its condition held.
	ErrTimeout = errors.New("browser: wait timed out")
	// ErrNotFound means no element matched the selector.
	ErrNotFound = errors.New("browser: element not found")
	// ErrClickIntercepted means another element (usually an overlay)
	// would have received the click.
	ErrClickIntercepted = errors.New("browser: click intercepted")
)

// Session is one browser tab, reused across navigations.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitVisible waits up to timeout for selector to match a visible element.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// Count returns how many elements currently match selector.
	Count(ctx context.Context, selector string) (int, error)
	// WaitCountAbove waits up to timeout for more than n elements to match.
	WaitCountAbove(ctx context.Context, selector string, n int, timeout time.Duration) error
	// HTML returns the fully rendered markup of the current page.
	HTML(ctx context.Context) (string, error)
}

// Element is a handle on a located DOM node.
type Element interface {
	Disabled() (bool, error)
	ScrollIntoView() error
	// Click moves the pointer onto the element and clicks it.
	Click() error
}
