package stocktake

import (
	"context"
	"fmt"
	"slices"

	"github.com/heartmarshall/stockroom/internal/domain"
)

type sessionLister interface {
	ListStocktakes(ctx context.Context) ([]domain.StocktakeSession, error)
}

// ListSessions returns all sessions with open ones first. Within each group
// the server's order is kept.
func ListSessions(ctx context.Context, lister sessionLister) ([]domain.StocktakeSession, error) {
	sessions, err := lister.ListStocktakes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stocktakes: %w", err)
	}
	slices.SortStableFunc(sessions, func(a, b domain.StocktakeSession) int {
		switch {
		case a.IsCompleted() == b.IsCompleted():
			return 0
		case a.IsCompleted():
			return 1
		default:
			return -1
		}
	})
	return sessions, nil
}
