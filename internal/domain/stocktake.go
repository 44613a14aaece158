package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StocktakeSession summarizes one counting session. A nil CompletedAt means
// the session is open; once set, the session is terminal.
type StocktakeSession struct {
	ID          uuid.UUID
	Title       string
	LinesCount  int
	DiffCount   int
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   *time.Time
}

// IsCompleted returns true once the session has been confirmed.
func (s *StocktakeSession) IsCompleted() bool {
	return s.CompletedAt != nil
}

// Status returns a display label for the session state.
func (s *StocktakeSession) Status() string {
	if s.IsCompleted() {
		return "Completed"
	}
	return "Open"
}

// StocktakeLine is one item's expected and counted quantity within a session.
// IsDiff is computed by the server and trusted as given.
type StocktakeLine struct {
	ID                int64
	StocktakeID       uuid.UUID
	ItemID            uuid.UUID
	Name              string
	SKU               *string
	Unit              string
	ShelfLocation     *string
	ShelfLocationNote *string
	Expected          decimal.Decimal
	Counted           *decimal.Decimal
	Note              *string
	IsDiff            bool
}

// IsCounted reports whether a physical count has been recorded.
func (l *StocktakeLine) IsCounted() bool {
	return l.Counted != nil
}

// Stocktake is a session together with all of its lines.
type Stocktake struct {
	StocktakeSession
	Lines []StocktakeLine
}

// Line returns the line with the given id, or false.
func (s *Stocktake) Line(id int64) (StocktakeLine, bool) {
	for _, l := range s.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return StocktakeLine{}, false
}

// LinePatch is a partial update of a stocktake line. Unset fields are left
// untouched by the server.
type LinePatch struct {
	// SetCount sends the counted quantity; a nil Count clears it.
	SetCount bool
	Count    *decimal.Decimal

	// SetNote sends the note; a nil Note clears it.
	SetNote bool
	Note    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p LinePatch) IsEmpty() bool {
	return !p.SetCount && !p.SetNote
}
