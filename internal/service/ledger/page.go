package ledger

import "github.com/heartmarshall/stockroom/internal/domain"

// Page describes where a feed page sits and which paging controls apply.
type Page struct {
	Number     int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// Describe derives the page descriptor from the server's paging metadata.
// An empty feed is page 1 of 1 with both directions disabled.
func Describe(meta domain.PageMeta) Page {
	if meta.Total <= 0 || meta.Limit <= 0 {
		return Page{Number: 1, TotalPages: 1}
	}
	offset := max(meta.Offset, 0)

	number := offset/meta.Limit + 1
	return Page{
		Number:     number,
		TotalPages: (meta.Total + meta.Limit - 1) / meta.Limit,
		HasNext:    offset+meta.Limit < meta.Total,
		HasPrev:    number > 1,
	}
}
