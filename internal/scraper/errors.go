package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrSelectorMiss means a required sub-element of a product card was absent.
	ErrSelectorMiss = errors.New("selector matched nothing")
	// ErrParse means a field was present but its text could not be parsed.
	ErrParse = errors.New("unparsable field")
	// ErrClickRetriesExhausted means the load-more control stayed covered
	// for every allowed retry.
	ErrClickRetriesExhausted = errors.New("load-more click kept being intercepted")
)

// CardError reports which card and field failed extraction.
type CardError struct {
	Index int
	Field string
	Err   error
}

func (e *CardError) Error() string {
	return fmt.Sprintf("product card %d: field %q: %v", e.Index, e.Field, e.Err)
}

func (e *CardError) Unwrap() error {
	return e.Err
}
