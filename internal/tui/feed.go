package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/heartmarshall/stockroom/internal/service/ledger"
)

type feedMsg struct {
	view *ledger.View
	err  error
}

func (m *Model) loadFeed(op func(context.Context) (*ledger.View, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		v, err := op(ctx)
		return feedMsg{view: v, err: err}
	}
}

func (m *Model) updateFeed(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "n", "right", "pgdown":
		return m.loadFeed(m.deps.Feed.Next)
	case "p", "left", "pgup":
		return m.loadFeed(m.deps.Feed.Prev)
	case "R", "ctrl+r":
		return m.loadFeed(m.deps.Feed.Reset)
	}
	return nil
}

func (m *Model) handleFeedResult(msg feedMsg) {
	switch {
	case errors.Is(msg.err, ledger.ErrNoNextPage), errors.Is(msg.err, ledger.ErrNoPrevPage):
		m.setStatus(msg.err.Error())
	case msg.err != nil:
		m.feedErr = msg.err
		m.setError(msg.err)
	default:
		m.feed = msg.view
		m.feedErr = nil
	}
}

func (m *Model) viewFeed() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %s %s %s %s",
		fit("When", 16), fit("Type", 11), fit("Change", 12), fit("Item", 28), "Reason")))

	if m.feed == nil {
		if m.feedErr != nil {
			b.WriteString("\n" + errorStyle.Render("Could not load the ledger."))
		} else {
			b.WriteString("\n" + faintStyle.Render("Loading…"))
		}
		return b.String()
	}
	if len(m.feed.Items) == 0 {
		b.WriteString("\n" + faintStyle.Render("No transactions yet."))
	}
	for _, t := range m.feed.Items {
		item := deref(t.ItemName)
		if sku := deref(t.ItemSKU); sku != "" {
			item += " [" + sku + "]"
		}
		b.WriteString(fmt.Sprintf("\n%s %s %s %s %s",
			fit(formatTime(t.CreatedAt), 16),
			fit(txnLabel(t), 11),
			fit(formatQty(t.Delta, deref(t.ItemUnit)), 12),
			fit(item, 28),
			deref(t.Reason)))
	}

	p := m.feed.Page
	nav := fmt.Sprintf("Page %d of %d · %d transactions", p.Number, p.TotalPages, m.feed.Meta.Total)
	if p.HasPrev {
		nav = "← " + nav
	}
	if p.HasNext {
		nav += " →"
	}
	b.WriteString("\n\n" + faintStyle.Render(nav))
	return b.String()
}
