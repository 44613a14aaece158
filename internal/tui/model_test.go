package tui

import (
	"context"
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi"
	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi/inventoryapitest"
	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/ledger"
	"github.com/heartmarshall/stockroom/internal/service/selection"
	"github.com/heartmarshall/stockroom/internal/service/stocktake"
)

type harness struct {
	srv    *inventoryapitest.Server
	client *inventoryapi.Client
	m      *Model
}

func newHarness(t *testing.T, pageSize int, seed func(*inventoryapitest.Store) uuid.UUID) *harness {
	t.Helper()

	srv := inventoryapitest.NewServer()
	t.Cleanup(srv.Close)
	open := uuid.Nil
	if seed != nil {
		open = seed(srv.Store)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := inventoryapi.NewClientWithURL(srv.BaseURL(), log)
	m, err := New(context.Background(), Deps{
		API:           client,
		Selection:     selection.NewController(log, client, 20),
		Feed:          ledger.NewFeed(log, client, pageSize),
		Stocktake:     stocktake.Options{Policy: stocktake.PolicyPrefill},
		Logger:        log,
		OpenStocktake: open,
	})
	require.NoError(t, err)

	h := &harness{srv: srv, client: client, m: m}
	h.run(t, m.Init())
	return h
}

// run executes cmd and every command its messages produce, feeding each
// message back into the model.
func (h *harness) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 500, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := h.m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func (h *harness) press(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, cmd := h.m.Update(keyMsg(k))
		h.run(t, cmd)
	}
}

func (h *harness) typeText(t *testing.T, s string) {
	t.Helper()
	for _, r := range s {
		_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		h.run(t, cmd)
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func twoItems(washers, anchors *uuid.UUID) func(*inventoryapitest.Store) uuid.UUID {
	return func(s *inventoryapitest.Store) uuid.UUID {
		*washers, _ = s.AddItem(inventoryapitest.ItemSpec{Name: "Washers", Quantity: decimal.NewFromInt(10), ShelfLocation: "A1"})
		*anchors, _ = s.AddItem(inventoryapitest.ItemSpec{Name: "Anchors", Quantity: decimal.NewFromInt(3), ShelfLocation: "B1"})
		return uuid.Nil
	}
}

func TestModel_ReceiptFromPanel(t *testing.T) {
	t.Parallel()

	var washers, anchors uuid.UUID
	h := newHarness(t, 50, twoItems(&washers, &anchors))

	view := h.m.View()
	assert.Contains(t, view, "Washers")
	assert.Contains(t, view, "Anchors")

	h.press(t, "enter")
	st := h.m.deps.Selection.Snapshot()
	require.NotNil(t, st.Selected)
	assert.Equal(t, washers, st.Selected.ItemID, "A1 sorts first")
	assert.True(t, st.HistoryReady)

	h.press(t, "r")
	require.Equal(t, modalTxn, h.m.modal)
	h.typeText(t, "5")
	h.press(t, "tab")
	h.typeText(t, "delivery")
	h.press(t, "enter")

	assert.Equal(t, modalNone, h.m.modal)
	assert.Contains(t, h.m.status, "RECEIPT +5 pcs recorded")
	assert.False(t, h.m.statusErr)

	st = h.m.deps.Selection.Snapshot()
	require.NotNil(t, st.Selected)
	assert.True(t, st.Selected.Quantity.Equal(decimal.NewFromInt(15)))
	require.NotEmpty(t, st.History)
	assert.Equal(t, domain.TxnTypeReceipt, st.History[0].Type)
	assert.Contains(t, h.m.View(), "15 pcs")
}

func TestModel_EnterWhileSavingIsIgnored(t *testing.T) {
	t.Parallel()

	var washers, anchors uuid.UUID
	h := newHarness(t, 50, twoItems(&washers, &anchors))

	h.press(t, "enter", "r")
	h.typeText(t, "5")

	_, first := h.m.Update(keyMsg("enter"))
	require.NotNil(t, first)

	// The first request completes but its result has not reached the model.
	res := first()
	assert.Equal(t, 1, h.srv.Store.TransactionCount())
	assert.Equal(t, modalTxn, h.m.modal)

	_, second := h.m.Update(keyMsg("enter"))
	assert.Nil(t, second)

	_, next := h.m.Update(res)
	h.run(t, next)

	assert.Equal(t, modalNone, h.m.modal)
	assert.Equal(t, 1, h.srv.Store.TransactionCount())
	qty, ok := h.srv.Store.Quantity(washers)
	require.True(t, ok)
	assert.True(t, qty.Equal(decimal.NewFromInt(15)), "got %s", qty)
	assert.False(t, h.m.saving)
}

func TestModel_InvalidQuantityStaysInForm(t *testing.T) {
	t.Parallel()

	var washers, anchors uuid.UUID
	h := newHarness(t, 50, twoItems(&washers, &anchors))

	h.press(t, "enter", "i")
	h.typeText(t, "-3")
	h.press(t, "enter")

	assert.Equal(t, modalTxn, h.m.modal)
	assert.True(t, h.m.statusErr)
	assert.Equal(t, "quantity must be greater than zero", h.m.status)
	assert.Zero(t, h.srv.Store.TransactionCount())
}

func TestModel_ServerRejectionIsShown(t *testing.T) {
	t.Parallel()

	var washers, anchors uuid.UUID
	h := newHarness(t, 50, twoItems(&washers, &anchors))

	h.press(t, "enter", "i")
	h.typeText(t, "50")
	h.press(t, "enter")

	assert.Equal(t, modalTxn, h.m.modal, "form kept for correction")
	assert.Contains(t, h.m.status, "Insufficient stock")
	qty, _ := h.srv.Store.Quantity(washers)
	assert.True(t, qty.Equal(decimal.NewFromInt(10)))
}

func TestModel_ActionsNeedSelection(t *testing.T) {
	t.Parallel()

	var washers, anchors uuid.UUID
	h := newHarness(t, 50, twoItems(&washers, &anchors))

	h.press(t, "a")
	assert.Equal(t, modalNone, h.m.modal)
	assert.Equal(t, "select an item first", h.m.status)

	h.press(t, "down", "enter", "esc")
	assert.Nil(t, h.m.deps.Selection.Snapshot().Selected)
	assert.False(t, h.m.deps.Selection.Snapshot().PanelVisible)
}

func TestModel_ReverseLatest(t *testing.T) {
	t.Parallel()

	var washers, anchors uuid.UUID
	h := newHarness(t, 50, twoItems(&washers, &anchors))
	_, err := h.client.PostIssue(context.Background(), washers, decimal.NewFromInt(4), nil)
	require.NoError(t, err)

	h.press(t, "enter", "u")
	require.Equal(t, modalReverse, h.m.modal)
	assert.Contains(t, h.m.prompt, "ISSUE -4")
	h.press(t, "y")

	qty, _ := h.srv.Store.Quantity(washers)
	assert.True(t, qty.Equal(decimal.NewFromInt(10)))
	assert.False(t, h.m.statusErr)
}

func TestModel_SearchSelectsItem(t *testing.T) {
	t.Parallel()

	var washers, anchors uuid.UUID
	h := newHarness(t, 50, twoItems(&washers, &anchors))

	h.press(t, "/")
	h.typeText(t, "anch")
	require.Len(t, h.m.suggestions, 1)
	h.press(t, "enter")

	st := h.m.deps.Selection.Snapshot()
	require.NotNil(t, st.Selected)
	assert.Equal(t, anchors, st.Selected.ItemID)
	assert.Equal(t, 1, h.m.stockCursor)
}

func TestModel_FeedPaging(t *testing.T) {
	t.Parallel()

	var washers, anchors uuid.UUID
	h := newHarness(t, 2, twoItems(&washers, &anchors))
	for i := 1; i <= 3; i++ {
		_, err := h.client.PostReceipt(context.Background(), washers, decimal.NewFromInt(int64(i)), nil)
		require.NoError(t, err)
	}

	h.press(t, "2")
	assert.Contains(t, h.m.View(), "Page 1 of 2")
	h.press(t, "n")
	assert.Contains(t, h.m.View(), "Page 2 of 2")
	h.press(t, "n")
	assert.Equal(t, ledger.ErrNoNextPage.Error(), h.m.status)
	h.press(t, "p")
	assert.Contains(t, h.m.View(), "Page 1 of 2")
}

func TestModel_StocktakeCountAndConfirm(t *testing.T) {
	t.Parallel()

	var bolts uuid.UUID
	h := newHarness(t, 50, func(s *inventoryapitest.Store) uuid.UUID {
		bolts, _ = s.AddItem(inventoryapitest.ItemSpec{Name: "Bolts", Quantity: decimal.NewFromInt(10), ShelfLocation: "A1"})
		s.AddItem(inventoryapitest.ItemSpec{Name: "Nuts", Quantity: decimal.NewFromInt(4), ShelfLocation: "A2"})
		return s.StartStocktake("Spring")
	})

	require.Equal(t, screenSheet, h.m.screen)
	require.NotNil(t, h.m.sheet)
	assert.Contains(t, h.m.View(), "Spring")

	h.press(t, "enter")
	require.Equal(t, modalCount, h.m.modal)
	assert.Equal(t, "10", h.m.inputValue(0), "prefilled with expected")
	h.press(t, "backspace", "backspace")
	h.typeText(t, "8")
	h.press(t, "enter")

	require.NotNil(t, h.m.sheet)
	assert.Equal(t, 1, h.m.sheet.Session.DiffCount)
	assert.True(t, h.m.sheet.Rows[0].Highlight)

	h.press(t, "c")
	require.Equal(t, modalConfirm, h.m.modal)
	assert.Contains(t, h.m.prompt, "Type 1")
	h.typeText(t, "1")
	h.press(t, "enter")

	assert.Equal(t, "Stocktake confirmed", h.m.status)
	assert.True(t, h.m.sheet.Session.IsCompleted())
	qty, _ := h.srv.Store.Quantity(bolts)
	assert.True(t, qty.Equal(decimal.NewFromInt(8)))

	h.press(t, "e")
	assert.Equal(t, modalNone, h.m.modal)
	assert.True(t, h.m.statusErr)
}

func TestModel_BlankCountReseeds(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 50, func(s *inventoryapitest.Store) uuid.UUID {
		s.AddItem(inventoryapitest.ItemSpec{Name: "Bolts", Quantity: decimal.NewFromInt(10)})
		return s.StartStocktake("Spring")
	})

	h.press(t, "enter", "backspace", "backspace", "enter")
	assert.Equal(t, "count must not be blank", h.m.status)
	assert.Equal(t, "10", h.m.sheet.Rows[0].Input)
}

func TestModel_SessionsList(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 50, func(s *inventoryapitest.Store) uuid.UUID {
		s.AddItem(inventoryapitest.ItemSpec{Name: "Bolts", Quantity: decimal.NewFromInt(1)})
		s.StartStocktake("First")
		return uuid.Nil
	})

	h.press(t, "3")
	require.Len(t, h.m.sessions, 1)
	assert.Contains(t, h.m.View(), "First")

	h.press(t, "enter")
	assert.Equal(t, screenSheet, h.m.screen)
	require.NotNil(t, h.m.sheet)
	assert.Equal(t, "First", h.m.sheet.Session.Title)

	h.press(t, "esc")
	assert.Equal(t, screenSessions, h.m.screen)
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "+5", formatDelta(decimal.NewFromInt(5)))
	assert.Equal(t, "-2.5", formatDelta(decimal.RequireFromString("-2.5")))
	assert.Equal(t, "0", formatDelta(decimal.Zero))
	assert.Equal(t, "12.5 l", formatQty(decimal.RequireFromString("12.50"), "l"))
	assert.Equal(t, "abc  ", fit("abc", 5))
	assert.Equal(t, 4, len([]rune(fit("abcdef", 4))))
	assert.Equal(t, "A2 (top tray)", shelfLabel(ptr("A2"), ptr("top tray")))
	assert.Equal(t, "-", shelfLabel(nil, nil))
}

func ptr(s string) *string { return &s }
