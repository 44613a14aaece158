// Package inventoryapitest serves the inventory collaborator API for tests
// and local development. State lives in a Backend: the in-memory Store here,
// or the postgres adapter for a persistent development server.
package inventoryapitest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stock struct {
	ID                int64
	ItemID            uuid.UUID
	Quantity          decimal.Decimal
	ShelfLocation     *string
	ShelfLocationNote *string
	UpdatedAt         time.Time
}

type session struct {
	ID          uuid.UUID
	Title       string
	StartedAt   time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	LineIDs     []int64
}

type line struct {
	ID                int64
	StocktakeID       uuid.UUID
	ItemID            uuid.UUID
	Expected          decimal.Decimal
	Counted           *decimal.Decimal
	ShelfLocation     *string
	ShelfLocationNote *string
	Note              *string
}

// Store is the in-memory Backend. All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	items      map[uuid.UUID]*Item
	itemOrder  []uuid.UUID
	stocks     map[int64]*stock
	stockByID  map[uuid.UUID]int64
	txns       []*Txn
	stocktakes map[uuid.UUID]*session
	stOrder    []uuid.UUID
	lines      map[int64]*line

	nextStockID int64
	nextLineID  int64

	clock time.Time
}

var _ Backend = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		items:       make(map[uuid.UUID]*Item),
		stocks:      make(map[int64]*stock),
		stockByID:   make(map[uuid.UUID]int64),
		stocktakes:  make(map[uuid.UUID]*session),
		lines:       make(map[int64]*line),
		nextStockID: 1,
		nextLineID:  1,
		clock:       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so that newest-first ordering
// is deterministic. Callers must hold mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// AddItem creates an item with its stock row and returns both ids.
func (s *Store) AddItem(spec ItemSpec) (uuid.UUID, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit := spec.Unit
	if unit == "" {
		unit = DefaultUnit
	}
	it := &Item{ID: uuid.New(), SKU: optional(spec.SKU), Name: spec.Name, Unit: unit}
	s.items[it.ID] = it
	s.itemOrder = append(s.itemOrder, it.ID)

	st := &stock{
		ID:                s.nextStockID,
		ItemID:            it.ID,
		Quantity:          spec.Quantity,
		ShelfLocation:     optional(spec.ShelfLocation),
		ShelfLocationNote: optional(spec.ShelfNote),
		UpdatedAt:         s.tick(),
	}
	s.nextStockID++
	s.stocks[st.ID] = st
	s.stockByID[it.ID] = st.ID
	return it.ID, st.ID
}

// CreateItem implements Backend.
func (s *Store) CreateItem(_ context.Context, spec ItemSpec) (uuid.UUID, error) {
	id, _ := s.AddItem(spec)
	return id, nil
}

// RemoveItem deletes an item and its stock row, as if removed by another client.
func (s *Store) RemoveItem(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	s.itemOrder = slices.DeleteFunc(s.itemOrder, func(v uuid.UUID) bool { return v == id })
	if sid, ok := s.stockByID[id]; ok {
		delete(s.stocks, sid)
		delete(s.stockByID, id)
	}
}

// SetQuantity overwrites an item's on-hand quantity without a ledger entry.
func (s *Store) SetQuantity(id uuid.UUID, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.stockFor(id); st != nil {
		st.Quantity = qty
		st.UpdatedAt = s.tick()
	}
}

// Quantity returns an item's on-hand quantity.
func (s *Store) Quantity(id uuid.UUID) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stockFor(id)
	if st == nil {
		return decimal.Zero, false
	}
	return st.Quantity, true
}

// StartStocktake opens a session with one line per current stock row,
// expecting the current quantity. Counts start empty.
func (s *Store) StartStocktake(title string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	st := &session{ID: uuid.New(), Title: title, StartedAt: now, CreatedAt: now}
	for _, itemID := range s.itemOrder {
		stk := s.stockFor(itemID)
		if stk == nil {
			continue
		}
		l := &line{
			ID:                s.nextLineID,
			StocktakeID:       st.ID,
			ItemID:            itemID,
			Expected:          stk.Quantity,
			ShelfLocation:     stk.ShelfLocation,
			ShelfLocationNote: stk.ShelfLocationNote,
		}
		s.nextLineID++
		s.lines[l.ID] = l
		st.LineIDs = append(st.LineIDs, l.ID)
	}
	s.stocktakes[st.ID] = st
	s.stOrder = append(s.stOrder, st.ID)
	return st.ID
}

// OpenStocktake implements Backend.
func (s *Store) OpenStocktake(_ context.Context, title string) (uuid.UUID, error) {
	return s.StartStocktake(title), nil
}

// LineIDFor returns the line id of itemID within a session.
func (s *Store) LineIDFor(stocktakeID, itemID uuid.UUID) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stocktakes[stocktakeID]
	if !ok {
		return 0, false
	}
	for _, id := range st.LineIDs {
		if s.lines[id].ItemID == itemID {
			return id, true
		}
	}
	return 0, false
}

// Counted returns the recorded count of a line.
func (s *Store) Counted(lineID int64) (*decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[lineID]
	if !ok {
		return nil, false
	}
	if l.Counted == nil {
		return nil, true
	}
	v := *l.Counted
	return &v, true
}

// TransactionCount returns the number of ledger entries.
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

// Counts summarises the store.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Counts{Items: len(s.items), Transactions: len(s.txns), Stocktakes: len(s.stocktakes)}
	for _, st := range s.stocktakes {
		if st.CompletedAt == nil {
			c.Open++
		}
	}
	return c
}

// Summary implements Backend.
func (s *Store) Summary(context.Context) (Counts, error) {
	return s.Counts(), nil
}

// ListItems implements Backend.
func (s *Store) ListItems(context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, 0, len(s.itemOrder))
	for i := len(s.itemOrder) - 1; i >= 0; i-- {
		out = append(out, *s.items[s.itemOrder[i]])
	}
	return out, nil
}

// SearchItems implements Backend.
func (s *Store) SearchItems(_ context.Context, q string, limit int) ([]Item, error) {
	q = strings.ToLower(q)

	s.mu.Lock()
	out := []Item{}
	for _, id := range s.itemOrder {
		it := s.items[id]
		if strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, *it)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListStocks implements Backend.
func (s *Store) ListStocks(context.Context) ([]StockRow, error) {
	s.mu.Lock()
	out := make([]StockRow, 0, len(s.stocks))
	for _, st := range s.stocks {
		it, ok := s.items[st.ItemID]
		if !ok {
			continue
		}
		out = append(out, StockRow{
			ID:                st.ID,
			Item:              *it,
			Quantity:          st.Quantity,
			ShelfLocation:     st.ShelfLocation,
			ShelfLocationNote: st.ShelfLocationNote,
			UpdatedAt:         st.UpdatedAt,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Item.Name != out[j].Item.Name {
			return out[i].Item.Name < out[j].Item.Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateShelf implements Backend.
func (s *Store) UpdateShelf(_ context.Context, stockID int64, p ShelfPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stocks[stockID]
	if !ok {
		return ErrStockNotFound
	}
	if p.SetLocation {
		st.ShelfLocation = p.Location
	}
	if p.SetNote {
		st.ShelfLocationNote = p.Note
	}
	st.UpdatedAt = s.tick()
	return nil
}

// ItemTransactions implements Backend.
func (s *Store) ItemTransactions(_ context.Context, itemID uuid.UUID, limit int) ([]Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return nil, ErrItemNotFound
	}
	all := s.newestFirst(&itemID)
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]Txn, 0, len(all))
	for _, t := range all {
		out = append(out, *t)
	}
	return out, nil
}

// ListTransactions implements Backend.
func (s *Store) ListTransactions(_ context.Context, limit, offset int) ([]Txn, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.newestFirst(nil)
	total := len(all)
	out := []Txn{}
	if offset >= total {
		return out, total, nil
	}
	for _, t := range all[offset:min(offset+limit, total)] {
		v := *t
		if it, ok := s.items[t.ItemID]; ok {
			cp := *it
			v.Item = &cp
		}
		out = append(out, v)
	}
	return out, total, nil
}

// PostDelta implements Backend.
func (s *Store) PostDelta(_ context.Context, itemID uuid.UUID, delta decimal.Decimal, typ string, reason *string) (*Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.applyDelta(itemID, delta, typ, reason, nil)
	if err != nil {
		return nil, err
	}
	v := *t
	return &v, nil
}

// Reverse implements Backend.
func (s *Store) Reverse(_ context.Context, id uuid.UUID) (*Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orig *Txn
	for _, t := range s.txns {
		if t.ID == id {
			orig = t
		}
		if t.ReversesID != nil && *t.ReversesID == id {
			return nil, ErrAlreadyReversed
		}
	}
	if orig == nil {
		return nil, ErrTxnNotFound
	}
	reason := ReversalReason(id)
	t, err := s.applyDelta(orig.ItemID, orig.Delta.Neg(), "REVERSAL", &reason, &id)
	if err != nil {
		return nil, err
	}
	v := *t
	return &v, nil
}

// ListStocktakes implements Backend.
func (s *Store) ListStocktakes(context.Context) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.stOrder))
	for i := len(s.stOrder) - 1; i >= 0; i-- {
		sess, _ := s.sessionOut(s.stocktakes[s.stOrder[i]])
		out = append(out, sess)
	}
	return out, nil
}

// GetStocktake implements Backend.
func (s *Store) GetStocktake(_ context.Context, id uuid.UUID) (*Session, []Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stocktakes[id]
	if !ok {
		return nil, nil, ErrStocktakeNotFound
	}
	sess, lines := s.sessionOut(st)
	return &sess, lines, nil
}

// PatchLine implements Backend.
func (s *Store) PatchLine(_ context.Context, id int64, p LinePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[id]
	if !ok {
		return ErrLineNotFound
	}
	if s.stocktakes[l.StocktakeID].CompletedAt != nil {
		return ErrStocktakeClosed
	}
	if p.SetCount {
		l.Counted = p.Count
	}
	if p.SetNote {
		l.Note = p.Note
	}
	return nil
}

// ConfirmStocktake implements Backend.
func (s *Store) ConfirmStocktake(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stocktakes[id]
	if !ok {
		return ErrStocktakeNotFound
	}
	if st.CompletedAt != nil {
		return ErrStocktakeClosed
	}
	reason := StocktakeReason(st.Title)
	for _, lid := range st.LineIDs {
		l := s.lines[lid]
		if l.Counted == nil {
			continue
		}
		stk := s.stockFor(l.ItemID)
		if stk == nil {
			continue
		}
		delta := l.Counted.Sub(stk.Quantity)
		if delta.IsZero() {
			continue
		}
		if _, err := s.applyDelta(l.ItemID, delta, "STOCKTAKE", &reason, nil); err != nil {
			return err
		}
	}
	now := s.tick()
	st.CompletedAt = &now
	return nil
}

func (s *Store) stockFor(itemID uuid.UUID) *stock {
	sid, ok := s.stockByID[itemID]
	if !ok {
		return nil
	}
	return s.stocks[sid]
}

// applyDelta changes stock and appends a ledger entry. Callers must hold mu.
func (s *Store) applyDelta(itemID uuid.UUID, delta decimal.Decimal, typ string, reason *string, reverses *uuid.UUID) (*Txn, error) {
	if _, ok := s.items[itemID]; !ok {
		return nil, ErrItemNotFound
	}
	st := s.stockFor(itemID)
	if st == nil {
		return nil, ErrStockNotFound
	}
	next := st.Quantity.Add(delta)
	if next.IsNegative() {
		return nil, InsufficientStock(st.Quantity, delta.Neg())
	}

	now := s.tick()
	st.Quantity = next
	st.UpdatedAt = now

	t := &Txn{
		ID:         uuid.New(),
		ItemID:     itemID,
		Delta:      delta,
		Type:       typ,
		Reason:     reason,
		ReversesID: reverses,
		CreatedAt:  now,
	}
	s.txns = append(s.txns, t)
	return t, nil
}

// newestFirst returns ledger entries, optionally for one item, newest first.
// Callers must hold mu.
func (s *Store) newestFirst(itemID *uuid.UUID) []*Txn {
	out := make([]*Txn, 0, len(s.txns))
	for i := len(s.txns) - 1; i >= 0; i-- {
		if itemID == nil || s.txns[i].ItemID == *itemID {
			out = append(out, s.txns[i])
		}
	}
	return out
}

// sessionOut builds a session header and its lines, skipping lines whose
// item is gone. Callers must hold mu.
func (s *Store) sessionOut(st *session) (Session, []Line) {
	sess := Session{
		ID:          st.ID,
		Title:       st.Title,
		StartedAt:   st.StartedAt,
		CompletedAt: st.CompletedAt,
		CreatedAt:   st.CreatedAt,
	}
	lines := make([]Line, 0, len(st.LineIDs))
	for _, id := range st.LineIDs {
		l := s.lines[id]
		it, ok := s.items[l.ItemID]
		if !ok {
			continue
		}
		out := Line{
			ID:                l.ID,
			Item:              *it,
			Expected:          l.Expected,
			ShelfLocation:     l.ShelfLocation,
			ShelfLocationNote: l.ShelfLocationNote,
			Note:              l.Note,
		}
		if l.Counted != nil {
			c := *l.Counted
			out.Counted = &c
		}
		if out.IsDiff() {
			sess.DiffCount++
		}
		lines = append(lines, out)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Item.Name < lines[j].Item.Name })
	sess.LinesCount = len(lines)
	return sess, lines
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
