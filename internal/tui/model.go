// Package tui is the terminal front end. It renders state owned by the
// service controllers and turns key presses into their operations; network
// calls run as tea.Cmds so the screen stays responsive.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi"
	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/ledger"
	"github.com/heartmarshall/stockroom/internal/service/selection"
	"github.com/heartmarshall/stockroom/internal/service/stocktake"
	"github.com/heartmarshall/stockroom/internal/service/txnform"
	"github.com/heartmarshall/stockroom/internal/shelforder"
)

type screen int

const (
	screenStocks screen = iota
	screenFeed
	screenSessions
	screenSheet
)

var screenNames = []string{"1 Stock", "2 Ledger", "3 Stocktakes"}

type modalKind int

const (
	modalNone modalKind = iota
	modalTxn
	modalShelf
	modalReverse
	modalSearch
	modalCount
	modalNote
	modalConfirm
)

// API is the part of the inventory client the screens call directly.
type API interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	Suggest(ctx context.Context, q string) ([]domain.ItemSuggestion, error)
	ListStocktakes(ctx context.Context) ([]domain.StocktakeSession, error)
	GetStocktake(ctx context.Context, id uuid.UUID) (*domain.Stocktake, error)
	PatchStocktakeLine(ctx context.Context, lineID int64, patch domain.LinePatch) error
	ConfirmStocktake(ctx context.Context, id uuid.UUID) error
}

// Deps are the collaborators of the Model.
type Deps struct {
	API       API
	Selection *selection.Controller
	Feed      *ledger.Feed
	Stocktake stocktake.Options
	Logger    *slog.Logger
	// OpenStocktake opens that session's reconciliation screen at start.
	OpenStocktake uuid.UUID
}

// Model is the root bubbletea model.
type Model struct {
	ctx    context.Context
	deps   Deps
	log    *slog.Logger
	sorter *shelforder.Sorter

	width  int
	height int
	screen screen

	modal    modalKind
	inputs   []textinput.Model
	focus    int
	txnKind  txnform.Kind
	modalFor int64
	reverse  *domain.Transaction
	prompt   string
	// saving is set from the moment a form is sent until its result
	// message arrives; Enter is ignored meanwhile.
	saving bool

	// stocks
	stockCursor   int
	items         map[uuid.UUID]domain.Item
	suggestions   []domain.ItemSuggestion
	suggestCursor int

	// ledger feed
	feed    *ledger.View
	feedErr error

	// stocktakes
	sessions      []domain.StocktakeSession
	sessionCursor int
	sessionsErr   error
	view          *stocktake.View
	sheet         *stocktake.Sheet
	sheetCursor   int

	status    string
	statusErr bool
}

// New creates the root model.
func New(ctx context.Context, deps Deps) (*Model, error) {
	locale := deps.Stocktake.Locale
	if locale == "" {
		locale = "en"
	}
	sorter, err := shelforder.NewSorter(locale)
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	m := &Model{
		ctx:    ctx,
		deps:   deps,
		log:    deps.Logger.With("component", "tui"),
		sorter: sorter,
		screen: screenStocks,
		items:  make(map[uuid.UUID]domain.Item),
	}
	if deps.OpenStocktake != uuid.Nil {
		v, err := stocktake.NewView(deps.Logger, deps.API, deps.OpenStocktake, deps.Stocktake)
		if err != nil {
			return nil, fmt.Errorf("tui: %w", err)
		}
		m.view = v
		m.screen = screenSheet
	}
	return m, nil
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, deps Deps) error {
	m, err := New(ctx, deps)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshStocks(), m.loadItems()}
	if m.view != nil {
		cmds = append(cmds, m.loadSheet(m.view))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.modal != modalNone {
			return m, m.updateModal(msg)
		}
		if cmd, ok := m.globalKey(msg); ok {
			return m, cmd
		}
		switch m.screen {
		case screenStocks:
			return m, m.updateStocks(msg)
		case screenFeed:
			return m, m.updateFeed(msg)
		case screenSessions:
			return m, m.updateSessions(msg)
		case screenSheet:
			return m, m.updateSheet(msg)
		}
		return m, nil
	}

	return m, m.handleResult(msg)
}

func (m *Model) globalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		return tea.Quit, true
	case "1":
		m.screen = screenStocks
		return nil, true
	case "2":
		m.screen = screenFeed
		if m.feed == nil {
			return m.loadFeed(m.deps.Feed.Load), true
		}
		return nil, true
	case "3":
		m.screen = screenSessions
		return m.loadSessions(), true
	}
	return nil, false
}

func (m *Model) updateModal(msg tea.KeyMsg) tea.Cmd {
	switch m.modal {
	case modalTxn, modalShelf:
		return m.updateStockModal(msg)
	case modalReverse:
		return m.updateReverseModal(msg)
	case modalSearch:
		return m.updateSearchModal(msg)
	case modalCount, modalNote, modalConfirm:
		return m.updateSheetModal(msg)
	}
	return nil
}

func (m *Model) handleResult(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case stocksMsg, itemsMsg, historyMsg, txnMsg, shelfMsg, reverseMsg, suggestMsg:
		return m.handleStocksResult(msg)
	case feedMsg:
		m.handleFeedResult(msg)
	case sessionsMsg, sheetMsg, noteMsg:
		return m.handleSheetResult(msg)
	}
	if len(m.inputs) > 0 {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenStocks:
		body = m.viewStocks()
	case screenFeed:
		body = m.viewFeed()
	case screenSessions:
		body = m.viewSessions()
	case screenSheet:
		body = m.viewSheet()
	}
	if m.modal != modalNone {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", m.viewModal())
	}
	return strings.Join([]string{m.viewTabs(), body, m.footer()}, "\n\n")
}

func (m *Model) viewTabs() string {
	active := int(m.screen)
	if m.screen == screenSheet {
		active = int(screenSessions)
	}
	tabs := make([]string, len(screenNames))
	for i, name := range screenNames {
		if i == active {
			tabs[i] = activeTab.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) footer() string {
	return m.minibuffer() + "\n" + faintStyle.Render(m.keyHelp())
}

func (m *Model) keyHelp() string {
	switch m.modal {
	case modalTxn, modalShelf, modalCount, modalNote:
		return "tab: next field  enter: save  esc: cancel"
	case modalReverse:
		return "y/enter: reverse  n/esc: cancel"
	case modalSearch:
		return "type to search  ↑/↓: choose  enter: select  esc: cancel"
	case modalConfirm:
		return "type the number of differing lines  enter: confirm  esc: cancel"
	}
	switch m.screen {
	case screenStocks:
		return "↑/↓: move  enter: select  esc: clear  r/i/a: receipt/issue/adjust  s: shelf  u: reverse  /: search  R: refresh  q: quit"
	case screenFeed:
		return "n/→: next page  p/←: previous page  R: first page  q: quit"
	case screenSessions:
		return "↑/↓: move  enter: open  R: refresh  q: quit"
	case screenSheet:
		return "↑/↓: move  enter/e: count  n: note  c: confirm  R: reload  esc: back  q: quit"
	}
	return ""
}

func (m *Model) minibuffer() string {
	w := m.width
	if w <= 0 {
		w = 80
	}
	txt := strings.TrimSpace(strings.ReplaceAll(m.status, "\n", " "))
	if txt == "" {
		txt = " "
	}
	if xansi.StringWidth(txt) > w-2 {
		txt = xansi.Truncate(txt, w-2, "…")
	}
	style := minibufferStyle.Width(w)
	if m.statusErr {
		style = style.Foreground(lipgloss.Color("203"))
	}
	return style.Render(txt)
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

// setError shows err in the minibuffer. Stale selection results are dropped
// silently.
func (m *Model) setError(err error) {
	if err == nil || errors.Is(err, selection.ErrStaleSelection) {
		return
	}
	m.status = inventoryapi.UserMessage(err)
	m.statusErr = true
}

func (m *Model) viewModal() string {
	var title string
	switch m.modal {
	case modalTxn:
		title = "New " + m.txnKind.String()
	case modalShelf:
		title = "Shelf location"
	case modalReverse:
		return modalStyle.Render(titleStyle.Render("Reverse transaction") + "\n\n" + m.prompt)
	case modalSearch:
		return modalStyle.Render(titleStyle.Render("Find item") + "\n\n" + m.viewSearch())
	case modalCount:
		title = "Counted quantity"
	case modalNote:
		title = "Line note"
	case modalConfirm:
		title = "Confirm stocktake"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	if m.prompt != "" {
		b.WriteString("\n\n" + m.prompt)
	}
	for _, in := range m.inputs {
		b.WriteString("\n\n" + in.View())
	}
	return modalStyle.Render(b.String())
}

// openModal replaces the active inputs. The first input takes focus.
func (m *Model) openModal(kind modalKind, inputs ...textinput.Model) {
	m.modal = kind
	m.inputs = inputs
	m.focus = 0
	for i := range m.inputs {
		if i == 0 {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *Model) closeModal() {
	m.modal = modalNone
	m.inputs = nil
	m.focus = 0
	m.prompt = ""
	m.reverse = nil
	m.modalFor = 0
}

func (m *Model) cycleFocus() {
	if len(m.inputs) < 2 {
		return
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + 1) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

// updateInput forwards a key to the focused input.
func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

func (m *Model) inputValue(i int) string {
	if i >= len(m.inputs) {
		return ""
	}
	return m.inputs[i].Value()
}

func newInput(placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 40
	in.Prompt = "› "
	in.Cursor.SetMode(cursor.CursorStatic)
	in.SetValue(value)
	return in
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func moveCursor(key string, cur, n int) (int, bool) {
	switch key {
	case "up", "k":
		return clamp(cur-1, n), true
	case "down", "j":
		return clamp(cur+1, n), true
	case "home", "g":
		return 0, true
	case "end", "G":
		return clamp(n-1, n), true
	}
	return cur, false
}
