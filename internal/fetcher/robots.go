package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/IshaanNene/capexport/internal/types"
)

// RobotsAgent is the user-agent token matched against robots.txt groups.
const RobotsAgent = "capexport"

// RobotsFetcher refuses URLs disallowed by the host's robots.txt.
type RobotsFetcher struct {
	next   Fetcher
	logger *slog.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

// NewRobotsFetcher wraps next with a robots.txt gate.
func NewRobotsFetcher(next Fetcher, logger *slog.Logger) *RobotsFetcher {
	return &RobotsFetcher{
		next:   next,
		logger: logger.With("component", "robots"),
		groups: make(map[string]*robotstxt.Group),
	}
}

// Fetch implements Fetcher.
func (r *RobotsFetcher) Fetch(ctx context.Context, rawURL string) (*types.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("%w: %q", types.ErrInvalidURL, rawURL)}
	}

	group := r.group(ctx, u)
	if group != nil && !group.Test(u.EscapedPath()) {
		return nil, &types.FetchError{URL: rawURL, Err: types.ErrRobotsDisallowed}
	}
	return r.next.Fetch(ctx, rawURL)
}

// Close closes the wrapped fetcher.
func (r *RobotsFetcher) Close() error {
	return r.next.Close()
}

// group returns the cached robots group for u's host, fetching it on first use.
// A nil group allows everything.
func (r *RobotsFetcher) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	origin := u.Scheme + "://" + u.Host

	r.mu.Lock()
	group, ok := r.groups[origin]
	r.mu.Unlock()
	if ok {
		return group
	}

	group = r.load(ctx, origin)

	r.mu.Lock()
	r.groups[origin] = group
	r.mu.Unlock()
	return group
}

func (r *RobotsFetcher) load(ctx context.Context, origin string) *robotstxt.Group {
	robotsURL := origin + "/robots.txt"

	var data *robotstxt.RobotsData
	page, err := r.next.Fetch(ctx, robotsURL)
	if err != nil {
		var fetchErr *types.FetchError
		if !errors.As(err, &fetchErr) || fetchErr.StatusCode == 0 {
			r.logger.Debug("robots.txt unavailable, allowing all", "origin", origin, "error", err)
			return nil
		}
		data, err = robotstxt.FromStatusAndBytes(fetchErr.StatusCode, nil)
	} else {
		data, err = robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
	}
	if err != nil {
		r.logger.Warn("robots.txt unparseable, allowing all", "origin", origin, "error", err)
		return nil
	}
	return data.FindGroup(RobotsAgent)
}
