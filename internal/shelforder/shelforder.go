// Package shelforder turns free-form shelf locations into sort keys so that
// stocktake sheets follow the physical walk through the storeroom
// (A1, A2, A10, B1, ...) instead of plain string order.
package shelforder

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/heartmarshall/stockroom/internal/domain"
)

// emptyPrefix sorts after every lower-case ASCII letter run.
const emptyPrefix = "~"

// Key is the parsed, comparable form of a shelf location.
type Key struct {
	Prefix string
	Number uint64
	Suffix string
	// Empty marks an absent or blank location; such keys sort last.
	Empty bool
}

// String renders the key for debugging and test failure output.
func (k Key) String() string {
	if k.Empty {
		return "(none)"
	}
	return fmt.Sprintf("(%q, %d, %q)", k.Prefix, k.Number, k.Suffix)
}

// Parse builds a Key from an optional shelf location.
func Parse(raw *string) Key {
	if raw == nil {
		return ParseString("")
	}
	return ParseString(*raw)
}

// ParseString splits a location into a leading letter run, a digit run and
// the trailing remainder. Whitespace between the parts is ignored.
func ParseString(raw string) Key {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Key{Prefix: emptyPrefix, Empty: true}
	}

	i := 0
	for i < len(s) && isASCIILetter(s[i]) {
		i++
	}
	prefix := strings.ToLower(s[:i])

	rest := strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	j := 0
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}

	return Key{
		Prefix: prefix,
		Number: parseDigits(rest[:j]),
		Suffix: strings.ToLower(strings.TrimSpace(rest[j:])),
	}
}

// CompareKeys orders by prefix, then number, then suffix. Empty keys come last.
func CompareKeys(a, b Key) int {
	if a.Empty != b.Empty {
		if a.Empty {
			return 1
		}
		return -1
	}
	if c := strings.Compare(a.Prefix, b.Prefix); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Number, b.Number); c != 0 {
		return c
	}
	return strings.Compare(a.Suffix, b.Suffix)
}

// Sorter orders records by shelf key and breaks ties by name using the
// collation rules of a locale.
type Sorter struct {
	tag language.Tag
}

// NewSorter creates a Sorter for a BCP-47 locale such as "en" or "de-DE".
func NewSorter(locale string) (*Sorter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("shelforder: parse locale %q: %w", locale, err)
	}
	return &Sorter{tag: tag}, nil
}

// Sort orders items in place. The sort is stable, so records equal on every
// component keep their incoming order.
func Sort[T any](s *Sorter, items []T, shelf func(T) *string, name func(T) string) {
	type keyed struct {
		key  Key
		name string
		item T
	}

	// A collator is not safe for concurrent use, so each call gets its own.
	col := collate.New(s.tag)

	tmp := make([]keyed, len(items))
	for i, it := range items {
		tmp[i] = keyed{key: Parse(shelf(it)), name: name(it), item: it}
	}

	slices.SortStableFunc(tmp, func(a, b keyed) int {
		if c := CompareKeys(a.key, b.key); c != 0 {
			return c
		}
		if c := col.CompareString(a.name, b.name); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})

	for i := range tmp {
		items[i] = tmp[i].item
	}
}

// SortStocktakeLines orders stocktake lines for counting.
func (s *Sorter) SortStocktakeLines(lines []domain.StocktakeLine) {
	Sort(s, lines,
		func(l domain.StocktakeLine) *string { return l.ShelfLocation },
		func(l domain.StocktakeLine) string { return l.Name },
	)
}

// SortStockLines orders stock lines the same way.
func (s *Sorter) SortStockLines(lines []domain.StockLine) {
	Sort(s, lines,
		func(l domain.StockLine) *string { return l.ShelfLocation },
		func(l domain.StockLine) string { return l.Name },
	)
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// parseDigits interprets a run of ASCII digits, saturating on overflow.
func parseDigits(digits string) uint64 {
	var n uint64
	for i := 0; i < len(digits); i++ {
		d := uint64(digits[i] - '0')
		if n > (math.MaxUint64-d)/10 {
			return math.MaxUint64
		}
		n = n*10 + d
	}
	return n
}
