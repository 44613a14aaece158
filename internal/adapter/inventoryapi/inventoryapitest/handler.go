package inventoryapitest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Prefix is the path prefix every route is mounted under.
const Prefix = "/api"

const suggestionLimit = 10

type fault struct {
	status int
	msg    string
}

// API serves the collaborator routes over a Backend.
type API struct {
	backend Backend
	mux     *http.ServeMux

	mu        sync.Mutex
	faults    map[string][]fault
	calls     map[string]int
	onRequest func(*http.Request)
}

// NewAPI creates the route handler for backend.
func NewAPI(backend Backend) *API {
	a := &API{
		backend: backend,
		mux:     http.NewServeMux(),
		faults:  make(map[string][]fault),
		calls:   make(map[string]int),
	}

	a.mux.HandleFunc("GET "+Prefix+"/items", a.listItems)
	a.mux.HandleFunc("GET "+Prefix+"/suggestions", a.suggestions)
	a.mux.HandleFunc("GET "+Prefix+"/stocks", a.listStocks)
	a.mux.HandleFunc("PATCH "+Prefix+"/stocks/{id}", a.updateStock)
	a.mux.HandleFunc("GET "+Prefix+"/items/{id}/transactions", a.itemTransactions)
	a.mux.HandleFunc("POST "+Prefix+"/items/{id}/receipts", a.postQuantity("RECEIPT", 1))
	a.mux.HandleFunc("POST "+Prefix+"/items/{id}/issues", a.postQuantity("ISSUE", -1))
	a.mux.HandleFunc("POST "+Prefix+"/items/{id}/adjustments", a.postAdjustment)
	a.mux.HandleFunc("GET "+Prefix+"/transactions", a.listTransactions)
	a.mux.HandleFunc("POST "+Prefix+"/transactions/{id}/reverse", a.reverse)
	a.mux.HandleFunc("GET "+Prefix+"/stocktakes", a.listStocktakes)
	a.mux.HandleFunc("GET "+Prefix+"/stocktakes/{id}", a.getStocktake)
	a.mux.HandleFunc("PATCH "+Prefix+"/stocktakes/lines/{id}", a.patchLine)
	a.mux.HandleFunc("POST "+Prefix+"/stocktakes/{id}/confirm", a.confirm)
	return a
}

// FailNext makes the next request matching method and path (without the
// prefix) fail with status and an error body. Faults queue up per route.
func (a *API) FailNext(method, path string, status int, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := method + " " + path
	a.faults[key] = append(a.faults[key], fault{status: status, msg: msg})
}

// OnRequest installs a hook that runs before every request is handled.
// Tests use it to hold requests in flight.
func (a *API) OnRequest(fn func(*http.Request)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onRequest = fn
}

// Calls returns how many requests reached method and path (without the prefix).
func (a *API) Calls(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method+" "+path]
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, Prefix)

	a.mu.Lock()
	a.calls[key]++
	hook := a.onRequest
	var f *fault
	if q := a.faults[key]; len(q) > 0 {
		f = &q[0]
		a.faults[key] = q[1:]
	}
	a.mu.Unlock()

	if hook != nil {
		hook(r)
	}
	if f != nil {
		writeError(w, f.status, f.msg)
		return
	}
	a.mux.ServeHTTP(w, r)
}

// ---------------------------------------------------------------------------
// Wire shapes
// ---------------------------------------------------------------------------

type itemOut struct {
	ID   uuid.UUID `json:"id"`
	SKU  *string   `json:"sku"`
	Name string    `json:"name"`
	Unit string    `json:"unit"`
}

type stockOut struct {
	ID                int64       `json:"id"`
	ItemID            uuid.UUID   `json:"item_id"`
	SKU               *string     `json:"sku"`
	Name              string      `json:"name"`
	Unit              string      `json:"unit"`
	Quantity          json.Number `json:"quantity"`
	ShelfLocation     *string     `json:"shelf_location"`
	ShelfLocationNote *string     `json:"shelf_location_note"`
	UpdatedAt         string      `json:"updated_at"`
}

type txnOut struct {
	TransactionID         uuid.UUID   `json:"transaction_id"`
	ItemID                uuid.UUID   `json:"item_id"`
	ItemName              *string     `json:"item_name,omitempty"`
	ItemSKU               *string     `json:"item_sku,omitempty"`
	ItemUnit              *string     `json:"item_unit,omitempty"`
	DeltaQuantity         json.Number `json:"delta_quantity"`
	TxnType               string      `json:"txn_type"`
	Reason                *string     `json:"reason"`
	ReversesTransactionID *uuid.UUID  `json:"reverses_transaction_id"`
	CreatedAt             string      `json:"created_at"`
}

type stocktakeOut struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	StartedAt   *string   `json:"started_at"`
	CompletedAt *string   `json:"completed_at"`
	CreatedAt   *string   `json:"created_at"`
	LinesCount  int       `json:"lines_count"`
	DiffCount   int       `json:"diff_count"`
	Lines       []lineOut `json:"lines,omitempty"`
}

type lineOut struct {
	ID                int64        `json:"id"`
	ItemID            uuid.UUID    `json:"item_id"`
	SKU               *string      `json:"sku"`
	Name              string       `json:"name"`
	Unit              string       `json:"unit"`
	ExpectedQuantity  json.Number  `json:"expected_quantity"`
	CountedQuantity   *json.Number `json:"counted_quantity"`
	ShelfLocation     *string      `json:"shelf_location"`
	ShelfLocationNote *string      `json:"shelf_location_note"`
	Note              *string      `json:"note"`
	IsDiff            bool         `json:"is_diff"`
}

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

// isoformat renders timestamps without a zone, as the collaborator does.
func isoformat(t time.Time) string { return t.UTC().Format("2006-01-02T15:04:05.000000") }

func isoPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := isoformat(*t)
	return &s
}

func txnOutOf(t Txn) txnOut {
	out := txnOut{
		TransactionID:         t.ID,
		ItemID:                t.ItemID,
		DeltaQuantity:         number(t.Delta),
		TxnType:               t.Type,
		Reason:                t.Reason,
		ReversesTransactionID: t.ReversesID,
		CreatedAt:             isoformat(t.CreatedAt),
	}
	if t.Item != nil {
		out.ItemName, out.ItemSKU, out.ItemUnit = &t.Item.Name, t.Item.SKU, &t.Item.Unit
	}
	return out
}

func stocktakeOutOf(s Session, lines []Line) stocktakeOut {
	out := stocktakeOut{
		ID:          s.ID,
		Title:       s.Title,
		StartedAt:   isoPtr(&s.StartedAt),
		CompletedAt: isoPtr(s.CompletedAt),
		CreatedAt:   isoPtr(&s.CreatedAt),
		LinesCount:  s.LinesCount,
		DiffCount:   s.DiffCount,
	}
	if lines == nil {
		return out
	}
	out.Lines = make([]lineOut, 0, len(lines))
	for _, l := range lines {
		lo := lineOut{
			ID:                l.ID,
			ItemID:            l.Item.ID,
			SKU:               l.Item.SKU,
			Name:              l.Item.Name,
			Unit:              l.Item.Unit,
			ExpectedQuantity:  number(l.Expected),
			ShelfLocation:     l.ShelfLocation,
			ShelfLocationNote: l.ShelfLocationNote,
			Note:              l.Note,
			IsDiff:            l.IsDiff(),
		}
		if l.Counted != nil {
			n := number(*l.Counted)
			lo.CountedQuantity = &n
		}
		out.Lines = append(out.Lines, lo)
	}
	return out
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (a *API) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.backend.ListItems(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	out := make([]itemOut, 0, len(items))
	for _, it := range items {
		out = append(out, itemOut{ID: it.ID, SKU: it.SKU, Name: it.Name, Unit: it.Unit})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) suggestions(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	out := []itemOut{}
	if q == "" {
		writeJSON(w, http.StatusOK, out)
		return
	}

	items, err := a.backend.SearchItems(r.Context(), q, suggestionLimit)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	for _, it := range items {
		out = append(out, itemOut{ID: it.ID, SKU: it.SKU, Name: it.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) listStocks(w http.ResponseWriter, r *http.Request) {
	rows, err := a.backend.ListStocks(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	out := make([]stockOut, 0, len(rows))
	for _, st := range rows {
		out = append(out, stockOut{
			ID:                st.ID,
			ItemID:            st.Item.ID,
			SKU:               st.Item.SKU,
			Name:              st.Item.Name,
			Unit:              st.Item.Unit,
			Quantity:          number(st.Quantity),
			ShelfLocation:     st.ShelfLocation,
			ShelfLocationNote: st.ShelfLocationNote,
			UpdatedAt:         isoformat(st.UpdatedAt),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) updateStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Stock not found")
		return
	}
	var body map[string]*string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var p ShelfPatch
	p.Location, p.SetLocation = body["shelf_location"]
	p.Note, p.SetNote = body["shelf_location_note"]
	if err := a.backend.UpdateShelf(r.Context(), id, p); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) itemTransactions(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	limit := clampInt(r.URL.Query().Get("limit"), 20, 1, 100)

	txns, err := a.backend.ItemTransactions(r.Context(), itemID, limit)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	out := make([]txnOut, 0, len(txns))
	for _, t := range txns {
		t.Item = nil
		out = append(out, txnOutOf(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(r.URL.Query().Get("limit"), 50, 1, 100)
	offset := clampInt(r.URL.Query().Get("offset"), 0, 0, 1<<31-1)

	page, total, err := a.backend.ListTransactions(r.Context(), limit, offset)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	items := make([]txnOut, 0, len(page))
	for _, t := range page {
		items = append(items, txnOutOf(t))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"meta": map[string]any{
			"total":    total,
			"limit":    limit,
			"offset":   offset,
			"count":    len(items),
			"has_next": offset+limit < total,
			"has_prev": offset > 0,
		},
	})
}

type quantityRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Reason   *string          `json:"reason"`
}

type adjustmentRequest struct {
	Delta  *decimal.Decimal `json:"delta"`
	Reason *string          `json:"reason"`
}

func (a *API) postQuantity(typ string, sign int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "Item not found")
			return
		}
		var req quantityRequest
		if err := decodeStrict(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Quantity == nil || !req.Quantity.IsPositive() {
			writeError(w, http.StatusBadRequest, "Quantity must be positive")
			return
		}
		a.record(w, r, itemID, req.Quantity.Mul(decimal.NewFromInt(sign)), typ, req.Reason)
	}
}

func (a *API) postAdjustment(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	var req adjustmentRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Delta == nil || req.Delta.IsZero() {
		writeError(w, http.StatusBadRequest, "Delta cannot be zero")
		return
	}
	a.record(w, r, itemID, *req.Delta, "ADJUST", req.Reason)
}

func (a *API) record(w http.ResponseWriter, r *http.Request, itemID uuid.UUID, delta decimal.Decimal, typ string, reason *string) {
	t, err := a.backend.PostDelta(r.Context(), itemID, delta, typ, reason)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	t.Item = nil
	writeJSON(w, http.StatusCreated, txnOutOf(*t))
}

func (a *API) reverse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	t, err := a.backend.Reverse(r.Context(), id)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	t.Item = nil
	writeJSON(w, http.StatusCreated, txnOutOf(*t))
}

func (a *API) listStocktakes(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.backend.ListStocktakes(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	out := make([]stocktakeOut, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, stocktakeOutOf(s, nil))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getStocktake(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Stocktake not found")
		return
	}
	sess, lines, err := a.backend.GetStocktake(r.Context(), id)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if lines == nil {
		lines = []Line{}
	}
	writeJSON(w, http.StatusOK, stocktakeOutOf(*sess, lines))
}

func (a *API) patchLine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Line not found")
		return
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var p LinePatch
	if raw, ok := body["counted_quantity"]; ok {
		p.SetCount = true
		if !isNull(raw) {
			var d decimal.Decimal
			if err := json.Unmarshal(raw, &d); err != nil {
				writeError(w, http.StatusBadRequest, "counted_quantity must be a number")
				return
			}
			if d.IsNegative() {
				writeError(w, http.StatusBadRequest, "counted_quantity must not be negative")
				return
			}
			p.Count = &d
		}
	}
	if raw, ok := body["note"]; ok {
		p.SetNote = true
		if !isNull(raw) {
			var note string
			if err := json.Unmarshal(raw, &note); err != nil {
				writeError(w, http.StatusBadRequest, "note must be a string")
				return
			}
			p.Note = &note
		}
	}

	if err := a.backend.PatchLine(r.Context(), id, p); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Stocktake not found")
		return
	}
	if err := a.backend.ConfirmStocktake(r.Context(), id); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeBackendError reports a StatusError as-is. Anything else is a storage
// failure and becomes a 500.
func writeBackendError(w http.ResponseWriter, err error) {
	var se *StatusError
	if errors.As(err, &se) {
		writeError(w, se.Status, se.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func clampInt(raw string, def, lo, hi int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n == 0 {
		n = def
	}
	return max(lo, min(hi, n))
}
