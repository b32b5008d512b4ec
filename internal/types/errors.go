package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrMissingPrice     = errors.New("price cannot be empty")
	ErrEmptyListing     = errors.New("listing has no entries")
	ErrRobotsDisallowed = errors.New("blocked by robots.txt")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrSinkClosed       = errors.New("export sink is closed")
	ErrBodyTooLarge     = errors.New("response body exceeds size limit")
	ErrUnknownStrategy  = errors.New("unknown disambiguation strategy")
)

// FetchError wraps errors that occur while retrieving a page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur while reading listing or product markup.
type ParseError struct {
	URL     string
	Pattern string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("parse error for %s (pattern=%q): %v", e.URL, e.Pattern, e.Err)
	}
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur while writing export records.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ItemError reports a per-product failure. It never aborts sibling items.
type ItemError struct {
	URL   string
	Stage string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s failed at stage %q: %v", e.URL, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
