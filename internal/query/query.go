// Package query derives filtered views of a location set. Every function is
// pure: the input set is never modified and relative order is kept.
package query

import (
	"strings"

	"golang.org/x/text/cases"

	"umkm-map/internal/models"
)

// Sentinel category values meaning "no category filter".
const (
	CategoryAll     = "all"
	CategoryAllIndo = "Semua"
)

// Params is the filter state chosen in the presentation layer.
type Params struct {
	Category string
	Search   string
}

// IsAllCategories reports whether category is one of the "all" sentinels.
func IsAllCategories(category string) bool {
	return strings.EqualFold(category, CategoryAll) || strings.EqualFold(category, CategoryAllIndo)
}

// FilterByCategory keeps records whose category equals category under case
// folding. The "all" sentinels return set unchanged.
func FilterByCategory(set *models.LocationSet, category string) *models.LocationSet {
	if IsAllCategories(category) {
		return set
	}
	fold := cases.Fold()
	want := fold.String(category)
	return set.Where(func(r models.LocationRecord) bool {
		return fold.String(r.Category) == want
	})
}

// SearchByName keeps records whose name contains substring under case
// folding. An empty substring returns set unchanged; an empty name never
// matches.
func SearchByName(set *models.LocationSet, substring string) *models.LocationSet {
	if substring == "" {
		return set
	}
	fold := cases.Fold()
	needle := fold.String(substring)
	return set.Where(func(r models.LocationRecord) bool {
		if r.Name == "" {
			return false
		}
		return strings.Contains(fold.String(r.Name), needle)
	})
}

// Apply filters by category then searches by name.
func Apply(set *models.LocationSet, p Params) *models.LocationSet {
	return SearchByName(FilterByCategory(set, p.Category), p.Search)
}

// CategoryCount is the number of records carrying one category label.
type CategoryCount struct {
	Category string `json:"type"`
	Count    int    `json:"count"`
}

// CountByCategory tallies records per category in first-seen order.
func CountByCategory(set *models.LocationSet) []CategoryCount {
	var out []CategoryCount
	idx := make(map[string]int)
	for _, r := range set.Records() {
		i, ok := idx[r.Category]
		if !ok {
			i = len(out)
			idx[r.Category] = i
			out = append(out, CategoryCount{Category: r.Category})
		}
		out[i].Count++
	}
	return out
}
