package inventoryapi

import (
	"context"
	"net/url"
	"strings"

	"github.com/heartmarshall/stockroom/internal/domain"
)

// ListItems returns every item known to the collaborator.
func (c *Client) ListItems(ctx context.Context) ([]domain.Item, error) {
	var raw []apiItem
	if err := c.get(ctx, "/items", nil, &raw); err != nil {
		return nil, err
	}
	items := make([]domain.Item, 0, len(raw))
	for _, a := range raw {
		items = append(items, mapItem(a))
	}
	return items, nil
}

// Suggest returns up to ten items whose name contains q. A blank query
// returns nothing without a request.
func (c *Client) Suggest(ctx context.Context, q string) ([]domain.ItemSuggestion, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}

	var raw []apiSuggestion
	if err := c.get(ctx, "/suggestions", url.Values{"q": {q}}, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.ItemSuggestion, 0, len(raw))
	for _, a := range raw {
		out = append(out, domain.ItemSuggestion{ID: a.ID, Name: a.Name, SKU: a.SKU})
	}
	return out, nil
}
