package models

import "github.com/rotisserie/eris"

// Recognized categories. Category is open text; these two only drive UI
// defaults and the manual-entry form.
const (
	CategoryBusiness = "UMKM"
	CategoryCampus   = "Kampus"
)

type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// LocationRecord is one named point of interest.
type LocationRecord struct {
	Name        string     `json:"name"`
	Category    string     `json:"type"`
	Loc         Coordinate `json:"location"`
	Description string     `json:"description"`
	// Cluster is nil until grouping has run against the owning set.
	Cluster *int `json:"cluster,omitempty"`
}

// ClusterID returns the assigned cluster and whether one is set.
func (r LocationRecord) ClusterID() (int, bool) {
	if r.Cluster == nil {
		return 0, false
	}
	return *r.Cluster, true
}

// WithCluster returns a copy of r assigned to cluster id.
func (r LocationRecord) WithCluster(id int) LocationRecord {
	r.Cluster = &id
	return r
}

// WithoutCluster returns a copy of r with no cluster assignment.
func (r LocationRecord) WithoutCluster() LocationRecord {
	r.Cluster = nil
	return r
}

// LocationSet is an ordered, append-only collection of validated records.
// Derived sets (filtering, clustering) are always new values.
type LocationSet struct {
	records []LocationRecord
}

func NewLocationSet(records ...LocationRecord) *LocationSet {
	cp := make([]LocationRecord, len(records))
	copy(cp, records)
	return &LocationSet{records: cp}
}

func (s *LocationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

func (s *LocationSet) At(i int) LocationRecord {
	return s.records[i]
}

// Records returns a copy of the records in insertion order.
func (s *LocationSet) Records() []LocationRecord {
	if s == nil {
		return nil
	}
	cp := make([]LocationRecord, len(s.records))
	copy(cp, s.records)
	return cp
}

// Append adds a record at the end. It is the only mutation a set supports.
func (s *LocationSet) Append(rec LocationRecord) {
	s.records = append(s.records, rec)
}

// Where returns the records matching keep, in original order.
func (s *LocationSet) Where(keep func(LocationRecord) bool) *LocationSet {
	out := &LocationSet{records: make([]LocationRecord, 0, s.Len())}
	for _, r := range s.Records() {
		if keep(r) {
			out.records = append(out.records, r)
		}
	}
	return out
}

// Concat returns a new set holding s followed by other.
func (s *LocationSet) Concat(other *LocationSet) *LocationSet {
	out := make([]LocationRecord, 0, s.Len()+other.Len())
	out = append(out, s.Records()...)
	out = append(out, other.Records()...)
	return &LocationSet{records: out}
}

// WithClusters returns a copy of s where record i carries assignments[i].
func (s *LocationSet) WithClusters(assignments []int) (*LocationSet, error) {
	if len(assignments) != s.Len() {
		return nil, eris.Errorf("models: %d cluster assignments for %d records", len(assignments), s.Len())
	}
	out := &LocationSet{records: make([]LocationRecord, s.Len())}
	for i, r := range s.Records() {
		out.records[i] = r.WithCluster(assignments[i])
	}
	return out, nil
}

// WithoutClusters returns a copy of s with every cluster assignment cleared.
func (s *LocationSet) WithoutClusters() *LocationSet {
	out := &LocationSet{records: make([]LocationRecord, s.Len())}
	for i, r := range s.Records() {
		out.records[i] = r.WithoutCluster()
	}
	return out
}

// HasClusters reports whether any record carries a cluster id.
func (s *LocationSet) HasClusters() bool {
	for _, r := range s.Records() {
		if r.Cluster != nil {
			return true
		}
	}
	return false
}

// Coordinates returns the (lat, lon) of every record in order.
func (s *LocationSet) Coordinates() []Coordinate {
	out := make([]Coordinate, s.Len())
	for i, r := range s.Records() {
		out[i] = r.Loc
	}
	return out
}

// NearestRow pairs a source location with a target found near it.
type NearestRow struct {
	SourceName     string  `json:"source_name"`
	SourceCategory string  `json:"source_type"`
	SourceLat      float64 `json:"source_latitude"`
	SourceLon      float64 `json:"source_longitude"`
	TargetName     string  `json:"target_name"`
	TargetCategory string  `json:"target_type"`
	TargetLat      float64 `json:"target_latitude"`
	TargetLon      float64 `json:"target_longitude"`
	Distance       int     `json:"distance_m"`
}
