package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi"
	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/selection"
	"github.com/heartmarshall/stockroom/internal/service/txnform"
)

type stocksMsg struct{ err error }

type itemsMsg struct {
	items []domain.Item
	err   error
}

type historyMsg struct{ err error }

type txnMsg struct {
	txn *domain.Transaction
	err error
}

type shelfMsg struct{ err error }

type reverseMsg struct {
	txn *domain.Transaction
	err error
}

type suggestMsg struct {
	query string
	items []domain.ItemSuggestion
	err   error
}

// historyRows is how many history entries the panel shows.
const historyRows = 10

func (m *Model) refreshStocks() tea.Cmd {
	sel, ctx := m.deps.Selection, m.ctx
	return func() tea.Msg {
		return stocksMsg{err: sel.Refresh(ctx)}
	}
}

func (m *Model) loadItems() tea.Cmd {
	api, ctx := m.deps.API, m.ctx
	return func() tea.Msg {
		items, err := api.ListItems(ctx)
		return itemsMsg{items: items, err: err}
	}
}

func (m *Model) loadHistory() tea.Cmd {
	sel, ctx := m.deps.Selection, m.ctx
	return func() tea.Msg {
		_, err := sel.LoadHistory(ctx)
		return historyMsg{err: err}
	}
}

// sortedLines returns the stock list in shelf order.
func (m *Model) sortedLines(st selection.State) []domain.StockLine {
	lines := slices.Clone(st.Lines)
	m.sorter.SortStockLines(lines)
	return lines
}

func (m *Model) updateStocks(msg tea.KeyMsg) tea.Cmd {
	st := m.deps.Selection.Snapshot()
	lines := m.sortedLines(st)
	key := msg.String()

	if cur, ok := moveCursor(key, m.stockCursor, len(lines)); ok {
		m.stockCursor = cur
		return nil
	}

	switch key {
	case "enter":
		if len(lines) == 0 {
			return nil
		}
		return m.selectItem(lines[clamp(m.stockCursor, len(lines))].ItemID)
	case "esc":
		m.deps.Selection.Clear()
		m.setStatus("")
		return nil
	case "R", "ctrl+r":
		m.setStatus("Refreshing…")
		return m.refreshStocks()
	case "r", "i", "a":
		if st.Selected == nil {
			m.setError(txnform.ErrNoSelection)
			return nil
		}
		m.txnKind = map[string]txnform.Kind{"r": txnform.Receipt, "i": txnform.Issue, "a": txnform.Adjustment}[key]
		draft := st.Form
		if draft.Type != m.txnKind {
			draft = selection.Draft{Type: m.txnKind}
		}
		m.prompt = fmt.Sprintf("%s · on hand %s", st.Selected.Name, formatQty(st.Selected.Quantity, st.Selected.Unit))
		m.openModal(modalTxn,
			newInput("Quantity", draft.Quantity, 20),
			newInput("Reason (optional)", draft.Reason, 200))
		return nil
	case "s":
		if st.Selected == nil {
			m.setError(txnform.ErrNoSelection)
			return nil
		}
		m.prompt = st.Selected.Name
		m.openModal(modalShelf,
			newInput("Shelf location", deref(st.Selected.ShelfLocation), 64),
			newInput("Shelf note", deref(st.Selected.ShelfLocationNote), 200))
		return nil
	case "u":
		if st.Selected == nil || !st.HistoryReady {
			m.setError(selection.ErrNothingSelected)
			return nil
		}
		idx := slices.IndexFunc(st.History, func(t domain.Transaction) bool { return !t.IsReversal() })
		if idx < 0 {
			m.setStatus("Nothing to reverse")
			return nil
		}
		t := st.History[idx]
		m.reverse = &t
		m.prompt = fmt.Sprintf("Reverse %s %s from %s?", t.Type, formatDelta(t.Delta), formatTime(t.CreatedAt))
		m.openModal(modalReverse)
		return nil
	case "/":
		m.suggestions = nil
		m.suggestCursor = 0
		m.openModal(modalSearch, newInput("Item name", "", 100))
		return nil
	}
	return nil
}

func (m *Model) selectItem(itemID uuid.UUID) tea.Cmd {
	if _, err := m.deps.Selection.Select(itemID); err != nil {
		m.setError(err)
		return nil
	}
	lines := m.sortedLines(m.deps.Selection.Snapshot())
	if i := slices.IndexFunc(lines, func(l domain.StockLine) bool { return l.ItemID == itemID }); i >= 0 {
		m.stockCursor = i
	}
	m.setStatus("")
	return m.loadHistory()
}

func (m *Model) updateStockModal(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		if m.modal == modalTxn {
			m.deps.Selection.SetDraft(m.draft())
		}
		m.closeModal()
		return nil
	case "tab", "shift+tab":
		m.cycleFocus()
		return nil
	case "enter":
		if m.modal == modalShelf {
			return m.saveShelf()
		}
		return m.submitTxn()
	}
	return m.updateInput(msg)
}

func (m *Model) draft() selection.Draft {
	return selection.Draft{Type: m.txnKind, Quantity: m.inputValue(0), Reason: m.inputValue(1)}
}

func (m *Model) submitTxn() tea.Cmd {
	if m.saving || m.deps.Selection.Snapshot().Submitting {
		return nil
	}
	d := m.draft()
	m.deps.Selection.SetDraft(d)
	in := txnform.FormInput{Type: d.Type, RawQuantity: d.Quantity, Reason: d.Reason}
	if _, err := txnform.Validate(withSelection(in, m.deps.Selection.Snapshot())); err != nil {
		m.setError(err)
		return nil
	}
	m.saving = true
	m.setStatus("Saving…")
	sel, ctx := m.deps.Selection, m.ctx
	return func() tea.Msg {
		txn, err := sel.Submit(ctx, in)
		return txnMsg{txn: txn, err: err}
	}
}

func withSelection(in txnform.FormInput, st selection.State) txnform.FormInput {
	if st.Selected != nil {
		id := st.Selected.ItemID
		in.ItemID = &id
	}
	return in
}

func (m *Model) saveShelf() tea.Cmd {
	if m.saving {
		return nil
	}
	loc, note := m.inputValue(0), m.inputValue(1)
	m.saving = true
	m.setStatus("Saving…")
	sel, ctx := m.deps.Selection, m.ctx
	return func() tea.Msg {
		return shelfMsg{err: sel.UpdateShelf(ctx, loc, note)}
	}
}

func (m *Model) updateReverseModal(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "enter":
		t := m.reverse
		m.closeModal()
		if t == nil {
			return nil
		}
		m.setStatus("Reversing…")
		sel, ctx := m.deps.Selection, m.ctx
		return func() tea.Msg {
			txn, err := sel.Reverse(ctx, t.ID)
			return reverseMsg{txn: txn, err: err}
		}
	case "n", "esc":
		m.closeModal()
	}
	return nil
}

func (m *Model) updateSearchModal(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closeModal()
		return nil
	case "up", "down":
		if cur, ok := moveCursor(msg.String(), m.suggestCursor, len(m.suggestions)); ok {
			m.suggestCursor = cur
		}
		return nil
	case "enter":
		if len(m.suggestions) == 0 {
			return nil
		}
		id := m.suggestions[clamp(m.suggestCursor, len(m.suggestions))].ID
		m.closeModal()
		return m.selectItem(id)
	}

	before := m.inputValue(0)
	cmd := m.updateInput(msg)
	q := m.inputValue(0)
	if q == before {
		return cmd
	}
	api, ctx := m.deps.API, m.ctx
	return tea.Batch(cmd, func() tea.Msg {
		items, err := api.Suggest(ctx, q)
		return suggestMsg{query: q, items: items, err: err}
	})
}

func (m *Model) viewSearch() string {
	var b strings.Builder
	if len(m.inputs) > 0 {
		b.WriteString(m.inputs[0].View())
	}
	for i, s := range m.suggestions {
		line := s.Name
		if sku := deref(s.SKU); sku != "" {
			line += "  " + faintStyle.Render(sku)
		}
		if i == m.suggestCursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString("\n" + line)
	}
	if len(m.suggestions) == 0 && strings.TrimSpace(m.inputValue(0)) != "" {
		b.WriteString("\n" + faintStyle.Render("no matches"))
	}
	return b.String()
}

func (m *Model) handleStocksResult(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case stocksMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return nil
		}
		if m.status == "Refreshing…" {
			m.setStatus("")
		}
		m.stockCursor = clamp(m.stockCursor, len(m.deps.Selection.Snapshot().Lines))

	case itemsMsg:
		if msg.err != nil {
			m.log.WarnContext(m.ctx, "item catalog unavailable")
			return nil
		}
		for _, it := range msg.items {
			m.items[it.ID] = it
		}

	case historyMsg:
		m.setError(msg.err)

	case txnMsg:
		m.saving = false
		if msg.err != nil {
			m.setError(msg.err)
			return nil
		}
		m.closeModal()
		m.setStatus(m.deps.Selection.Snapshot().Notice)

	case shelfMsg:
		m.saving = false
		if msg.err != nil {
			m.setError(msg.err)
			return nil
		}
		m.closeModal()
		m.setStatus(m.deps.Selection.Snapshot().Notice)

	case reverseMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return nil
		}
		m.setStatus(m.deps.Selection.Snapshot().Notice)

	case suggestMsg:
		if m.modal != modalSearch || msg.query != m.inputValue(0) {
			return nil
		}
		if msg.err != nil {
			m.setError(msg.err)
			return nil
		}
		m.suggestions = msg.items
		m.suggestCursor = 0
	}
	return nil
}

func (m *Model) viewStocks() string {
	st := m.deps.Selection.Snapshot()
	lines := m.sortedLines(st)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %s %s %s",
		fit("Shelf", 14), fit("Item", 28), fit("SKU", 12), fit("On hand", 14))))
	if len(lines) == 0 {
		b.WriteString("\n" + faintStyle.Render("No stock loaded."))
	}
	for i, l := range lines {
		row := fmt.Sprintf("%s %s %s %s",
			fit(deref(l.ShelfLocation), 14), fit(l.Name, 28), fit(deref(l.SKU), 12), fit(formatQty(l.Quantity, l.Unit), 14))
		switch {
		case i == m.stockCursor:
			row = cursorStyle.Render(row)
		case st.Selected != nil && st.Selected.ItemID == l.ItemID:
			row = selectedStyle.Render(row)
		}
		b.WriteString("\n" + row)
	}

	list := b.String()
	if !st.PanelVisible || st.Selected == nil {
		return list
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", m.viewPanel(st))
}

func (m *Model) viewPanel(st selection.State) string {
	sel := st.Selected
	var b strings.Builder
	b.WriteString(titleStyle.Render(sel.Name))
	if sku := deref(sel.SKU); sku != "" {
		b.WriteString("  " + faintStyle.Render(sku))
	}
	b.WriteString(fmt.Sprintf("\nOn hand: %s", formatQty(sel.Quantity, sel.Unit)))
	b.WriteString("\nShelf: " + shelfLabel(sel.ShelfLocation, sel.ShelfLocationNote))
	if it, ok := m.items[sel.ItemID]; ok {
		if c := deref(it.Category); c != "" {
			b.WriteString("\nCategory: " + c)
		}
		if mf := deref(it.Manufacturer); mf != "" {
			b.WriteString("\nManufacturer: " + mf)
		}
	}

	b.WriteString("\n\n" + headerStyle.Render("Recent transactions"))
	switch {
	case !st.HistoryReady:
		b.WriteString("\n" + faintStyle.Render("loading…"))
	case len(st.History) == 0:
		b.WriteString("\n" + faintStyle.Render("none"))
	}
	for i, t := range st.History {
		if i == historyRows {
			break
		}
		b.WriteString(fmt.Sprintf("\n%s %s %s %s",
			formatTime(t.CreatedAt), fit(txnLabel(t), 11), fit(formatDelta(t.Delta), 10), deref(t.Reason)))
	}

	switch {
	case st.Submitting:
		b.WriteString("\n\n" + faintStyle.Render("Submitting…"))
	case st.Err != nil:
		b.WriteString("\n\n" + errorStyle.Render(inventoryapi.UserMessage(st.Err)))
	case st.Notice != "":
		b.WriteString("\n\n" + noticeStyle.Render(st.Notice))
	}
	return panelStyle.Render(b.String())
}
