package inventoryapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/heartmarshall/stockroom/internal/domain"
)

// ListStocks returns the current stock list as the server orders it.
func (c *Client) ListStocks(ctx context.Context) ([]domain.StockLine, error) {
	var raw []apiStock
	if err := c.get(ctx, "/stocks", nil, &raw); err != nil {
		return nil, err
	}
	lines := make([]domain.StockLine, 0, len(raw))
	for _, a := range raw {
		lines = append(lines, mapStock(a))
	}
	return lines, nil
}

// UpdateStockShelf sets the shelf location and note of a stock row. Blank
// values clear the field.
func (c *Client) UpdateStockShelf(ctx context.Context, stockID int64, location, note *string) error {
	body := map[string]any{
		"shelf_location":      blankToNil(location),
		"shelf_location_note": blankToNil(note),
	}
	return c.send(ctx, http.MethodPatch, fmt.Sprintf("/stocks/%d", stockID), body, nil)
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
