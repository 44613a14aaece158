// Package ledger pages through the global transaction feed.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/heartmarshall/stockroom/internal/domain"
)

var (
	ErrNoNextPage = errors.New("already on the last page")
	ErrNoPrevPage = errors.New("already on the first page")
)

// DefaultPageSize is used when the feed is created with a non-positive size.
const DefaultPageSize = 50

type transactionLister interface {
	ListTransactions(ctx context.Context, limit, offset int) (*domain.TransactionPage, error)
}

// View is one loaded feed page with its descriptor.
type View struct {
	Items []domain.Transaction
	Meta  domain.PageMeta
	Page  Page
}

// Feed owns the paging state of the global feed. Loads are serialized; a
// failed load leaves the previous page and offset in place.
type Feed struct {
	lister transactionLister
	log    *slog.Logger

	mu     sync.Mutex
	limit  int
	offset int
	last   *View
}

// NewFeed creates a Feed that requests pageSize entries per page.
func NewFeed(logger *slog.Logger, lister transactionLister, pageSize int) *Feed {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Feed{
		lister: lister,
		log:    logger.With("service", "ledger"),
		limit:  pageSize,
	}
}

// Load fetches the page at the current offset.
func (f *Feed) Load(ctx context.Context) (*View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadAt(ctx, f.offset)
}

// Next moves one page forward. It returns ErrNoNextPage without a request
// when the current page is the last one.
func (f *Feed) Next(ctx context.Context) (*View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last == nil || !f.last.Page.HasNext {
		return nil, ErrNoNextPage
	}
	return f.loadAt(ctx, f.offset+f.limit)
}

// Prev moves one page back. It returns ErrNoPrevPage without a request on
// the first page.
func (f *Feed) Prev(ctx context.Context) (*View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last == nil || !f.last.Page.HasPrev {
		return nil, ErrNoPrevPage
	}
	return f.loadAt(ctx, max(f.offset-f.limit, 0))
}

// Reset returns to the newest page.
func (f *Feed) Reset(ctx context.Context) (*View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadAt(ctx, 0)
}

// Current returns the last loaded page, or nil before the first load.
func (f *Feed) Current() *View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// loadAt requests the page at offset. Callers must hold mu.
func (f *Feed) loadAt(ctx context.Context, offset int) (*View, error) {
	page, err := f.lister.ListTransactions(ctx, f.limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger.Feed: %w", err)
	}

	meta := page.Meta
	if meta.Limit <= 0 {
		meta.Limit = f.limit
	}
	view := &View{Items: page.Items, Meta: meta, Page: Describe(meta)}

	f.limit = meta.Limit
	f.offset = max(meta.Offset, 0)
	f.last = view

	f.log.DebugContext(ctx, "feed page loaded",
		slog.Int("page", view.Page.Number),
		slog.Int("total_pages", view.Page.TotalPages),
		slog.Int("total", meta.Total),
	)
	return view, nil
}
