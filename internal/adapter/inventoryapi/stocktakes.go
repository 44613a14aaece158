package inventoryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/internal/domain"
)

func linePatchBody(p domain.LinePatch) map[string]any {
	b := make(map[string]any, 2)
	if p.SetCount {
		if p.Count == nil {
			b["counted_quantity"] = nil
		} else {
			b["counted_quantity"] = json.Number(p.Count.String())
		}
	}
	if p.SetNote {
		if p.Note == nil {
			b["note"] = nil
		} else {
			b["note"] = *p.Note
		}
	}
	return b
}

// ListStocktakes returns every stocktake session, without lines.
func (c *Client) ListStocktakes(ctx context.Context) ([]domain.StocktakeSession, error) {
	var raw []apiStocktake
	if err := c.get(ctx, "/stocktakes", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.StocktakeSession, 0, len(raw))
	for _, a := range raw {
		out = append(out, mapSession(a))
	}
	return out, nil
}

// GetStocktake returns a session with all of its lines.
func (c *Client) GetStocktake(ctx context.Context, id uuid.UUID) (*domain.Stocktake, error) {
	var raw apiStocktake
	if err := c.get(ctx, fmt.Sprintf("/stocktakes/%s", id), nil, &raw); err != nil {
		return nil, err
	}
	return mapStocktake(raw), nil
}

// PatchStocktakeLine updates the counted quantity and/or note of a line.
func (c *Client) PatchStocktakeLine(ctx context.Context, lineID int64, patch domain.LinePatch) error {
	if patch.IsEmpty() {
		return nil
	}
	return c.send(ctx, http.MethodPatch, fmt.Sprintf("/stocktakes/lines/%d", lineID), linePatchBody(patch), nil)
}

// ConfirmStocktake applies the session's counts to stock and closes it.
func (c *Client) ConfirmStocktake(ctx context.Context, id uuid.UUID) error {
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/stocktakes/%s/confirm", id), nil, nil); err != nil {
		return err
	}
	c.log.InfoContext(ctx, "stocktake confirmed", slog.String("stocktake_id", id.String()))
	return nil
}
