// Package stocktake reconciles one counting session: it loads the session,
// orders its lines by shelf, saves counts and notes, and confirms the result.
package stocktake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/txnform"
	"github.com/heartmarshall/stockroom/internal/shelforder"
)

// Count errors match domain.ErrValidation when returned from View methods.
var (
	ErrBlankCount              = errors.New("count must not be blank")
	ErrNegativeCount           = errors.New("count must not be negative")
	ErrInvalidCount            = errors.New("count must be a number with at most 3 decimals")
	ErrAcknowledgementMismatch = errors.New("typed number does not match the number of differing lines")
)

var (
	ErrSessionCompleted = fmt.Errorf("stocktake is completed: %w", domain.ErrCompleted)
	ErrNotLoaded        = errors.New("stocktake is not loaded")
	ErrUnknownLine      = fmt.Errorf("line is not part of this stocktake: %w", domain.ErrNotFound)
)

const countField = "counted_quantity"

type stocktakeClient interface {
	GetStocktake(ctx context.Context, id uuid.UUID) (*domain.Stocktake, error)
	PatchStocktakeLine(ctx context.Context, lineID int64, patch domain.LinePatch) error
	ConfirmStocktake(ctx context.Context, id uuid.UUID) error
}

// Row is a line prepared for display.
type Row struct {
	Line domain.StocktakeLine
	// Input seeds the count editor.
	Input     string
	Highlight bool
}

// Sheet is the rendered state of a session.
type Sheet struct {
	Session  domain.StocktakeSession
	Rows     []Row
	Editable bool
}

// Row returns the row for lineID.
func (s *Sheet) Row(lineID int64) (Row, bool) {
	for _, r := range s.Rows {
		if r.Line.ID == lineID {
			return r, true
		}
	}
	return Row{}, false
}

// View is the reconciliation screen state for one stocktake. Methods are
// safe for concurrent use. Edits to the same line are serialized; edits to
// different lines run in parallel and Confirm waits for all of them.
type View struct {
	id          uuid.UUID
	client      stocktakeClient
	log         *slog.Logger
	sorter      *shelforder.Sorter
	policy      CountPolicy
	maxParallel int

	loads singleflight.Group
	// editMu is held shared by line edits and exclusively by Confirm.
	editMu sync.RWMutex

	mu          sync.Mutex
	current     *domain.Stocktake
	loadedEpoch uint64
	// epoch advances after every successful mutation so that later loads
	// never join a fetch that started before the write.
	epoch     uint64
	lineLocks map[int64]*sync.Mutex
}

// NewView creates a view for the stocktake id. Nothing is fetched until Load.
func NewView(logger *slog.Logger, client stocktakeClient, id uuid.UUID, opts Options) (*View, error) {
	policy, err := ParseCountPolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	locale := opts.Locale
	if locale == "" {
		locale = "en"
	}
	sorter, err := shelforder.NewSorter(locale)
	if err != nil {
		return nil, fmt.Errorf("stocktake: %w", err)
	}
	maxParallel := opts.MaxParallelEdits
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallelEdits
	}

	return &View{
		id:          id,
		client:      client,
		log:         logger.With("service", "stocktake", slog.String("stocktake_id", id.String())),
		sorter:      sorter,
		policy:      policy,
		maxParallel: maxParallel,
		lineLocks:   make(map[int64]*sync.Mutex),
	}, nil
}

// ID returns the stocktake id.
func (v *View) ID() uuid.UUID { return v.id }

// Policy returns the count policy in effect.
func (v *View) Policy() CountPolicy { return v.policy }

// Load fetches the session and its lines. Concurrent calls share one request.
// The shared request outlives a caller that gives up, so one cancelled caller
// does not fail the others; it is still bounded by the client's timeout.
func (v *View) Load(ctx context.Context) (*Sheet, error) {
	v.mu.Lock()
	epoch := v.epoch
	v.mu.Unlock()

	ch := v.loads.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		st, err := v.client.GetStocktake(fctx, v.id)
		if err != nil {
			return nil, err
		}
		v.sorter.SortStocktakeLines(st.Lines)

		v.mu.Lock()
		if v.current == nil || epoch >= v.loadedEpoch {
			v.current = st
			v.loadedEpoch = epoch
		}
		v.mu.Unlock()

		v.log.DebugContext(fctx, "stocktake loaded",
			slog.Int("lines", st.LinesCount),
			slog.Int("diffs", st.DiffCount))
		return st, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load stocktake: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load stocktake: %w", res.Err)
		}
		return v.sheet(res.Val.(*domain.Stocktake)), nil
	}
}

func (v *View) seed(l domain.StocktakeLine) string {
	switch {
	case l.Counted != nil:
		return l.Counted.String()
	case v.policy == PolicyPrefill:
		return l.Expected.String()
	default:
		return ""
	}
}

// EditCount saves one line's count and reloads the session. Under
// PolicyPrefill a blank value is rejected and the view is reloaded so the
// input can be re-seeded; the reloaded sheet is returned with the error.
func (v *View) EditCount(ctx context.Context, lineID int64, raw string) (*Sheet, error) {
	if err := v.guard(lineID); err != nil {
		return nil, err
	}
	count, err := v.parseCount(raw)
	if err != nil {
		return v.rejectCount(ctx, err)
	}

	v.editMu.RLock()
	defer v.editMu.RUnlock()
	unlock := v.lockLine(lineID)
	defer unlock()

	if err := v.guard(lineID); err != nil {
		return nil, err
	}
	if err := v.client.PatchStocktakeLine(ctx, lineID, domain.LinePatch{SetCount: true, Count: count}); err != nil {
		return nil, fmt.Errorf("save count: %w", err)
	}
	v.advance()

	attrs := []any{slog.Int64("line_id", lineID)}
	if count != nil {
		attrs = append(attrs, slog.String("count", count.String()))
	}
	v.log.InfoContext(ctx, "count saved", attrs...)

	return v.Load(ctx)
}

// EditNote saves one line's note. A blank note clears it. The session is not
// reloaded; only the cached note changes.
func (v *View) EditNote(ctx context.Context, lineID int64, note string) error {
	if err := v.guard(lineID); err != nil {
		return err
	}

	v.editMu.RLock()
	defer v.editMu.RUnlock()
	unlock := v.lockLine(lineID)
	defer unlock()

	if err := v.guard(lineID); err != nil {
		return err
	}
	n := normalizeNote(note)
	if err := v.client.PatchStocktakeLine(ctx, lineID, domain.LinePatch{SetNote: true, Note: n}); err != nil {
		return fmt.Errorf("save note: %w", err)
	}

	// Loaded sessions are shared with Load callers, so swap in a copy.
	v.mu.Lock()
	if v.current != nil {
		next := *v.current
		next.Lines = slices.Clone(v.current.Lines)
		for i := range next.Lines {
			if next.Lines[i].ID == lineID {
				next.Lines[i].Note = n
			}
		}
		v.current = &next
	}
	v.mu.Unlock()
	return nil
}

// rejectCount returns a count validation error. A blank count under
// PolicyPrefill also reloads the session so inputs are re-seeded, and the
// reloaded sheet comes back with the error.
func (v *View) rejectCount(ctx context.Context, err error) (*Sheet, error) {
	if !errors.Is(err, ErrBlankCount) {
		return nil, err
	}
	sheet, lerr := v.Load(ctx)
	if lerr != nil {
		return nil, errors.Join(err, lerr)
	}
	return sheet, err
}

// ApplyCounts saves several counts in parallel and reloads once. All values
// are validated before any request is sent; a blank value is handled as in
// EditCount.
func (v *View) ApplyCounts(ctx context.Context, counts map[int64]string) (*Sheet, error) {
	if err := v.guard(0); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	parsed := make(map[int64]*decimal.Decimal, len(ids))
	for _, id := range ids {
		if err := v.guard(id); err != nil {
			return nil, fmt.Errorf("line %d: %w", id, err)
		}
		d, err := v.parseCount(counts[id])
		if err != nil {
			return v.rejectCount(ctx, fmt.Errorf("line %d: %w", id, err))
		}
		parsed[id] = d
	}
	if len(ids) == 0 {
		return v.Sheet(), nil
	}

	v.editMu.RLock()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxParallel)
	for _, id := range ids {
		g.Go(func() error {
			unlock := v.lockLine(id)
			defer unlock()
			patch := domain.LinePatch{SetCount: true, Count: parsed[id]}
			if err := v.client.PatchStocktakeLine(gctx, id, patch); err != nil {
				return fmt.Errorf("save count for line %d: %w", id, err)
			}
			return nil
		})
	}
	err := g.Wait()
	v.editMu.RUnlock()

	// Some patches may have landed even if one failed.
	v.advance()
	v.log.InfoContext(ctx, "counts applied", slog.Int("lines", len(ids)))

	sheet, lerr := v.Load(ctx)
	if err != nil {
		return sheet, err
	}
	return sheet, lerr
}

// ConfirmPrompt returns the acknowledgement text shown before Confirm.
func (v *View) ConfirmPrompt() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.current == nil {
		return "", ErrNotLoaded
	}
	if v.current.IsCompleted() {
		return "", ErrSessionCompleted
	}
	s := v.current.StocktakeSession
	return fmt.Sprintf("Confirm stocktake %q? %d of %d lines differ from expected stock. Type %d to apply the counts.",
		s.Title, s.DiffCount, s.LinesCount, s.DiffCount), nil
}

// Confirm applies the counts to stock. acknowledgedDiffs must equal the
// current number of differing lines. Pending line edits finish first.
func (v *View) Confirm(ctx context.Context, acknowledgedDiffs int) (*Sheet, error) {
	if err := v.checkAck(acknowledgedDiffs); err != nil {
		return nil, err
	}

	v.editMu.Lock()
	defer v.editMu.Unlock()

	// Edits that finished while waiting may have changed the diff count.
	if err := v.checkAck(acknowledgedDiffs); err != nil {
		return nil, err
	}
	if err := v.client.ConfirmStocktake(ctx, v.id); err != nil {
		return nil, fmt.Errorf("confirm stocktake: %w", err)
	}
	v.advance()
	v.log.InfoContext(ctx, "stocktake confirmed", slog.Int("diffs", acknowledgedDiffs))

	return v.Load(ctx)
}

func (v *View) checkAck(ack int) error {
	if err := v.guard(0); err != nil {
		return err
	}
	v.mu.Lock()
	want := v.current.DiffCount
	v.mu.Unlock()
	if ack != want {
		return domain.NewRuleError("acknowledgement", ErrAcknowledgementMismatch)
	}
	return nil
}

// guard checks that the session is loaded and open. A non-zero lineID must
// also belong to the session.
func (v *View) guard(lineID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.current == nil {
		return ErrNotLoaded
	}
	if v.current.IsCompleted() {
		return ErrSessionCompleted
	}
	if lineID != 0 {
		if _, ok := v.current.Line(lineID); !ok {
			return ErrUnknownLine
		}
	}
	return nil
}

// parseCount returns nil for a blank value under PolicyBlank.
func (v *View) parseCount(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if v.policy == PolicyBlank {
			return nil, nil
		}
		return nil, domain.NewRuleError(countField, ErrBlankCount)
	}
	d, err := txnform.ParseQuantity(raw)
	if err != nil {
		return nil, domain.NewRuleError(countField, ErrInvalidCount)
	}
	if d.IsNegative() {
		return nil, domain.NewRuleError(countField, ErrNegativeCount)
	}
	return &d, nil
}

func (v *View) lockLine(id int64) func() {
	v.mu.Lock()
	m, ok := v.lineLocks[id]
	if !ok {
		m = &sync.Mutex{}
		v.lineLocks[id] = m
	}
	v.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (v *View) advance() {
	v.mu.Lock()
	v.epoch++
	v.mu.Unlock()
}

func normalizeNote(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
