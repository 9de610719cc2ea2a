// Package view runs one full recomputation pass for the presentation layer:
// filter, search, then optional clustering.
package view

import (
	"strings"

	"go.uber.org/zap"

	"umkm-map/internal/grouping"
	"umkm-map/internal/models"
	"umkm-map/internal/query"
	"umkm-map/internal/spatial"
)

// NoResultsNotice is shown when filtering leaves nothing to display.
const NoResultsNotice = "Tidak ada lokasi yang cocok dengan filter/pencarian."

// Params are the user-selected controls.
type Params struct {
	// Category selects one category; blank selects all of them.
	Category string
	Search   string
	Cluster  bool
	K        int
}

// Clusterer is satisfied by *grouping.Engine.
type Clusterer interface {
	Cluster(set *models.LocationSet, k int) (*grouping.Result, error)
}

// Marker is a record with map-ready extras.
type Marker struct {
	models.LocationRecord
	Geohash string `json:"geohash"`
}

// View is the structured result handed to the presentation layer.
type View struct {
	// Set is the filtered set, annotated with clusters when clustering ran.
	Set       *models.LocationSet   `json:"-"`
	Markers   []Marker              `json:"records"`
	Total     int                   `json:"total"`
	Counts    []query.CategoryCount `json:"counts"`
	Clustered bool                  `json:"clustered"`
	Result    *grouping.Result      `json:"clustering,omitempty"`
	Bounds    *spatial.Rect         `json:"bounds,omitempty"`
	Notice    string                `json:"notice,omitempty"`
	Warnings  []string              `json:"warnings,omitempty"`
}

// Build derives the view of set for p. A clustering failure never fails the
// build: the view falls back to unclustered records and carries a warning.
func Build(set *models.LocationSet, p Params, c Clusterer) View {
	category := strings.TrimSpace(p.Category)
	if category == "" {
		category = query.CategoryAllIndo
	}
	filtered := query.Apply(set, query.Params{Category: category, Search: p.Search})
	v := View{
		Set:    filtered,
		Total:  set.Len(),
		Counts: query.CountByCategory(filtered),
	}

	if filtered.Len() == 0 {
		v.Notice = NoResultsNotice
	}

	if p.Cluster && filtered.Len() > 0 {
		clustered, res, err := cluster(filtered, p.K, c)
		if err != nil {
			zap.L().Warn("view: clustering failed, showing unclustered map",
				zap.Int("k", p.K),
				zap.Int("records", filtered.Len()),
				zap.Error(err),
			)
			v.Warnings = append(v.Warnings, err.Error())
		} else {
			v.Set = clustered
			v.Result = res
			v.Clustered = true
		}
	}

	if r, ok := spatial.Bounds(v.Set); ok {
		v.Bounds = &r
	}
	v.Markers = make([]Marker, 0, v.Set.Len())
	for _, r := range v.Set.Records() {
		v.Markers = append(v.Markers, Marker{LocationRecord: r, Geohash: spatial.Geohash(r.Loc.Lat, r.Loc.Lon)})
	}
	return v
}

func cluster(set *models.LocationSet, k int, c Clusterer) (*models.LocationSet, *grouping.Result, error) {
	res, err := c.Cluster(set, k)
	if err != nil {
		return nil, nil, err
	}
	clustered, err := grouping.Apply(set, res)
	if err != nil {
		return nil, nil, &grouping.ClusteringError{K: k, Reason: err.Error()}
	}
	return clustered, res, nil
}
