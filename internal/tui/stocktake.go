package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/stocktake"
)

type sessionsMsg struct {
	sessions []domain.StocktakeSession
	err      error
}

// sheetMsg carries a reloaded sheet. Results for a view that is no longer
// open are ignored. A sheet may accompany an error when the view reloaded
// after rejecting an edit.
type sheetMsg struct {
	view   *stocktake.View
	sheet  *stocktake.Sheet
	err    error
	notice string
}

type noteMsg struct {
	view *stocktake.View
	err  error
}

func (m *Model) loadSessions() tea.Cmd {
	api, ctx := m.deps.API, m.ctx
	return func() tea.Msg {
		sessions, err := stocktake.ListSessions(ctx, api)
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func (m *Model) loadSheet(v *stocktake.View) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		sheet, err := v.Load(ctx)
		return sheetMsg{view: v, sheet: sheet, err: err}
	}
}

func (m *Model) updateSessions(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if cur, ok := moveCursor(key, m.sessionCursor, len(m.sessions)); ok {
		m.sessionCursor = cur
		return nil
	}
	switch key {
	case "R", "ctrl+r":
		return m.loadSessions()
	case "enter":
		if len(m.sessions) == 0 {
			return nil
		}
		s := m.sessions[clamp(m.sessionCursor, len(m.sessions))]
		v, err := stocktake.NewView(m.deps.Logger, m.deps.API, s.ID, m.deps.Stocktake)
		if err != nil {
			m.setError(err)
			return nil
		}
		m.view = v
		m.sheet = nil
		m.sheetCursor = 0
		m.screen = screenSheet
		m.setStatus("")
		return m.loadSheet(v)
	}
	return nil
}

func (m *Model) updateSheet(msg tea.KeyMsg) tea.Cmd {
	if m.view == nil {
		m.screen = screenSessions
		return nil
	}
	key := msg.String()
	rows := 0
	if m.sheet != nil {
		rows = len(m.sheet.Rows)
	}
	if cur, ok := moveCursor(key, m.sheetCursor, rows); ok {
		m.sheetCursor = cur
		return nil
	}

	switch key {
	case "esc", "backspace":
		m.screen = screenSessions
		return m.loadSessions()
	case "R", "ctrl+r":
		return m.loadSheet(m.view)
	}

	if m.sheet == nil || rows == 0 {
		return nil
	}
	row := m.sheet.Rows[clamp(m.sheetCursor, rows)]

	switch key {
	case "enter", "e", "n", "c":
		if !m.sheet.Editable {
			m.setError(stocktake.ErrSessionCompleted)
			return nil
		}
	default:
		return nil
	}

	switch key {
	case "enter", "e":
		m.modalFor = row.Line.ID
		m.prompt = fmt.Sprintf("%s · expected %s", row.Line.Name, formatQty(row.Line.Expected, row.Line.Unit))
		m.openModal(modalCount, newInput("Count", row.Input, 20))
	case "n":
		m.modalFor = row.Line.ID
		m.prompt = row.Line.Name
		m.openModal(modalNote, newInput("Note", deref(row.Line.Note), 200))
	case "c":
		prompt, err := m.view.ConfirmPrompt()
		if err != nil {
			m.setError(err)
			return nil
		}
		m.prompt = prompt
		m.openModal(modalConfirm, newInput("Number of differing lines", "", 6))
	}
	return nil
}

func (m *Model) updateSheetModal(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closeModal()
		return nil
	case "enter":
	default:
		return m.updateInput(msg)
	}

	v, ctx := m.view, m.ctx
	lineID, value := m.modalFor, m.inputValue(0)

	switch m.modal {
	case modalCount:
		m.closeModal()
		m.setStatus("Saving count…")
		return func() tea.Msg {
			sheet, err := v.EditCount(ctx, lineID, value)
			return sheetMsg{view: v, sheet: sheet, err: err, notice: "Count saved"}
		}
	case modalNote:
		m.closeModal()
		return func() tea.Msg {
			return noteMsg{view: v, err: v.EditNote(ctx, lineID, value)}
		}
	case modalConfirm:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			m.setError(stocktake.ErrAcknowledgementMismatch)
			return nil
		}
		m.closeModal()
		m.setStatus("Applying counts…")
		return func() tea.Msg {
			sheet, err := v.Confirm(ctx, n)
			return sheetMsg{view: v, sheet: sheet, err: err, notice: "Stocktake confirmed"}
		}
	}
	return nil
}

func (m *Model) handleSheetResult(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case sessionsMsg:
		m.sessionsErr = msg.err
		if msg.err != nil {
			m.setError(msg.err)
			return nil
		}
		m.sessions = msg.sessions
		m.sessionCursor = clamp(m.sessionCursor, len(m.sessions))

	case sheetMsg:
		if msg.view != m.view {
			return nil
		}
		if msg.sheet != nil {
			m.sheet = msg.sheet
			m.sheetCursor = clamp(m.sheetCursor, len(m.sheet.Rows))
		}
		if msg.err != nil {
			m.setError(msg.err)
			if errors.Is(msg.err, domain.ErrCompleted) {
				return m.loadSheet(m.view)
			}
			return nil
		}
		m.setStatus(msg.notice)

	case noteMsg:
		if msg.view != m.view {
			return nil
		}
		if msg.err != nil {
			m.setError(msg.err)
			return nil
		}
		m.sheet = m.view.Sheet()
		m.setStatus("Note saved")
	}
	return nil
}

func (m *Model) viewSessions() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %s %s %s",
		fit("Stocktake", 30), fit("Status", 10), fit("Lines", 6), fit("Differences", 12))))
	if len(m.sessions) == 0 {
		msg := "No stocktakes."
		if m.sessionsErr != nil {
			msg = "Could not load stocktakes."
		}
		b.WriteString("\n" + faintStyle.Render(msg))
	}
	for i, s := range m.sessions {
		row := fmt.Sprintf("%s %s %s %s",
			fit(s.Title, 30), fit(s.Status(), 10), fit(strconv.Itoa(s.LinesCount), 6), fit(strconv.Itoa(s.DiffCount), 12))
		if i == m.sessionCursor {
			row = cursorStyle.Render(row)
		}
		b.WriteString("\n" + row)
	}
	return b.String()
}

func (m *Model) viewSheet() string {
	if m.sheet == nil {
		return faintStyle.Render("Loading stocktake…")
	}
	s := m.sheet.Session

	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Title))
	b.WriteString(fmt.Sprintf("  %s · %d lines · %d differ", s.Status(), s.LinesCount, s.DiffCount))
	if s.IsCompleted() {
		b.WriteString(faintStyle.Render("  (read only)"))
	}
	b.WriteString("\n\n" + headerStyle.Render(fmt.Sprintf("%s %s %s %s %s",
		fit("Shelf", 14), fit("Item", 26), fit("Expected", 12), fit("Counted", 12), "Note")))

	for i, r := range m.sheet.Rows {
		l := r.Line
		row := fmt.Sprintf("%s %s %s %s %s",
			fit(deref(l.ShelfLocation), 14), fit(l.Name, 26), fit(formatQty(l.Expected, l.Unit), 12), fit(r.Input, 12), deref(l.Note))
		switch {
		case i == m.sheetCursor:
			row = cursorStyle.Render(row)
		case r.Highlight:
			row = diffStyle.Render(row)
		}
		b.WriteString("\n" + row)
	}
	return b.String()
}
