package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rickgao/ledgerwatch/internal/model"
)

// QueryEvents fetches a single page of events matching the filter, most
// recent first. This is a snapshot query, not a history crawl: the
// endpoint keeps no cursor, so overlapping pages across calls are
// expected and left to the caller to deduplicate.
func (c *Client) QueryEvents(ctx context.Context, filter model.Filter, limit int) ([]model.Event, error) {
	query := filter.QueryValues()
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	query.Set("order", "desc")

	var resp EventsResponse
	if err := c.get(ctx, "/events/query", query, &resp); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]model.Event, len(resp.Events))
	for i, e := range resp.Events {
		events[i] = e.ToEvent()
	}
	return events, nil
}
