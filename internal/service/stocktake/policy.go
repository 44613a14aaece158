package stocktake

import (
	"fmt"
	"strings"
)

// CountPolicy decides how a line's count input is seeded and what a blank
// edit means.
type CountPolicy string

const (
	// PolicyPrefill seeds the input with the counted value, falling back to
	// the expected value. A blank edit is rejected.
	PolicyPrefill CountPolicy = "prefill"
	// PolicyBlank seeds the input with the counted value only. A blank edit
	// clears the count.
	PolicyBlank CountPolicy = "blank"
)

// DefaultMaxParallelEdits bounds ApplyCounts when Options leaves it unset.
const DefaultMaxParallelEdits = 4

// ParseCountPolicy accepts "prefill" or "blank", case-insensitively.
// An empty string selects PolicyPrefill.
func ParseCountPolicy(s string) (CountPolicy, error) {
	switch p := CountPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyPrefill, nil
	case PolicyPrefill, PolicyBlank:
		return p, nil
	default:
		return "", fmt.Errorf("stocktake: unknown count policy %q", s)
	}
}

// Options configures a View.
type Options struct {
	Policy           CountPolicy
	Locale           string
	MaxParallelEdits int
}
