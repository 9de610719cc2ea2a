// Package grouping partitions a location set into spatial clusters with
// k-means over raw (latitude, longitude) degrees.
//
// Coordinates are not projected or scaled, so distances are planar degree
// distances. That is adequate at city or regional scale. A fixed seed makes
// the partition reproducible: the same set and k always yield the same
// assignment.
package grouping

import (
	"fmt"
	"math"
	"math/rand/v2"

	"umkm-map/internal/calculator"
	"umkm-map/internal/models"
)

const (
	DefaultSeed          = 42
	DefaultMaxIterations = 300
	DefaultRuns          = 10
	DefaultTolerance     = 1e-4

	// MinK is the smallest cluster count the engine accepts.
	MinK = 2
)

// Options tune the k-means run. Zero MaxIterations, Runs and Tolerance take
// the defaults. Seed is used as given, including 0; start from
// DefaultOptions for seed 42.
type Options struct {
	Seed          uint64
	MaxIterations int
	Runs          int
	Tolerance     float64
}

func DefaultOptions() Options {
	return Options{
		Seed:          DefaultSeed,
		MaxIterations: DefaultMaxIterations,
		Runs:          DefaultRuns,
		Tolerance:     DefaultTolerance,
	}
}

// ClusteringError is returned when k-means cannot run on the input. Callers
// are expected to fall back to the unclustered view.
type ClusteringError struct {
	K      int
	Reason string
}

func (e *ClusteringError) Error() string {
	return fmt.Sprintf("clustering with k=%d failed: %s", e.K, e.Reason)
}

// Centroid summarizes one populated cluster.
type Centroid struct {
	Cluster   int     `json:"cluster"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Members   int     `json:"members"`
	// RadiusMeters is the great-circle distance to the farthest member.
	RadiusMeters float64 `json:"radius_m"`
}

// Result is valid only for the set it was computed from.
type Result struct {
	K int `json:"k"`
	// Assignments[i] is the cluster of record i, in [0, K).
	Assignments []int      `json:"assignments"`
	Centroids   []Centroid `json:"centroids"`
	// Fallback is set when the set had fewer records than K and every
	// record was put in cluster 0.
	Fallback bool `json:"fallback"`
}

type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	def := DefaultOptions()
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Runs <= 0 {
		opts.Runs = def.Runs
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	return &Engine{opts: opts}
}

func (e *Engine) Options() Options { return e.opts }

// Cluster assigns every record of set to one of k clusters.
//
// An empty set returns an empty result without running k-means. A set with
// fewer than k records puts everything in cluster 0.
func (e *Engine) Cluster(set *models.LocationSet, k int) (*Result, error) {
	if k < MinK {
		return nil, &ClusteringError{K: k, Reason: fmt.Sprintf("k must be at least %d", MinK)}
	}
	n := set.Len()
	if n == 0 {
		return &Result{K: k, Assignments: []int{}, Centroids: []Centroid{}}, nil
	}

	coords := set.Coordinates()
	for i, c := range coords {
		if !finite(c.Lat) || !finite(c.Lon) {
			return nil, &ClusteringError{K: k, Reason: fmt.Sprintf("record %d has a non-finite coordinate", i)}
		}
	}

	if n < k {
		labels := make([]int, n)
		return &Result{K: k, Assignments: labels, Centroids: centroids(coords, labels, k), Fallback: true}, nil
	}

	points := make([][2]float64, n)
	for i, c := range coords {
		points[i] = [2]float64{c.Lat, c.Lon}
	}

	rng := rand.New(rand.NewPCG(e.opts.Seed, e.opts.Seed))
	tol := e.opts.Tolerance * meanVariance(points)

	var best []int
	bestInertia := math.Inf(1)
	for run := 0; run < e.opts.Runs; run++ {
		centers := seedCenters(points, k, rng)
		labels, inertia := lloyd(points, centers, e.opts.MaxIterations, tol)
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}

	return &Result{K: k, Assignments: best, Centroids: centroids(coords, best, k)}, nil
}

// Apply returns set annotated with the cluster ids in r.
func Apply(set *models.LocationSet, r *Result) (*models.LocationSet, error) {
	return set.WithClusters(r.Assignments)
}

// seedCenters picks k initial centers with k-means++ (D² weighting).
func seedCenters(points [][2]float64, k int, rng *rand.Rand) [][2]float64 {
	n := len(points)
	centers := make([][2]float64, 0, k)
	centers = append(centers, points[rng.IntN(n)])

	d2 := make([]float64, n)
	for i, p := range points {
		d2[i] = sqDist(p, centers[0])
	}

	for len(centers) < k {
		var total float64
		for _, d := range d2 {
			total += d
		}

		idx := n - 1
		if total == 0 {
			idx = rng.IntN(n)
		} else {
			target := rng.Float64() * total
			var cum float64
			for i, d := range d2 {
				cum += d
				if cum > target {
					idx = i
					break
				}
			}
		}

		c := points[idx]
		centers = append(centers, c)
		for i, p := range points {
			if d := sqDist(p, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centers
}

// lloyd refines centers until the total squared shift drops to tol or the
// iteration cap is reached. Empty clusters keep their previous center.
func lloyd(points [][2]float64, centers [][2]float64, maxIter int, tol float64) ([]int, float64) {
	k := len(centers)
	labels := make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		assign(points, centers, labels)

		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			l := labels[i]
			sums[l][0] += p[0]
			sums[l][1] += p[1]
			counts[l]++
		}

		var shift float64
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			next := [2]float64{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
			shift += sqDist(next, centers[c])
			centers[c] = next
		}
		if shift <= tol {
			break
		}
	}

	inertia := assign(points, centers, labels)
	return labels, inertia
}

// assign labels each point with its nearest center, ties going to the
// lower index, and returns the summed squared distance.
func assign(points [][2]float64, centers [][2]float64, labels []int) float64 {
	var inertia float64
	for i, p := range points {
		best, bestD := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
		inertia += bestD
	}
	return inertia
}

// centroids averages the members of each populated cluster, ascending by id.
func centroids(coords []models.Coordinate, labels []int, k int) []Centroid {
	sums := make([]models.Coordinate, k)
	counts := make([]int, k)
	for i, c := range coords {
		l := labels[i]
		sums[l].Lat += c.Lat
		sums[l].Lon += c.Lon
		counts[l]++
	}

	out := make([]Centroid, 0, k)
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		cen := Centroid{
			Cluster:   c,
			Latitude:  sums[c].Lat / float64(counts[c]),
			Longitude: sums[c].Lon / float64(counts[c]),
			Members:   counts[c],
		}
		for i, p := range coords {
			if labels[i] != c {
				continue
			}
			if d := calculator.Haversine(cen.Latitude, cen.Longitude, p.Lat, p.Lon); d > cen.RadiusMeters {
				cen.RadiusMeters = d
			}
		}
		out = append(out, cen)
	}
	return out
}

func meanVariance(points [][2]float64) float64 {
	n := float64(len(points))
	var mean [2]float64
	for _, p := range points {
		mean[0] += p[0]
		mean[1] += p[1]
	}
	mean[0] /= n
	mean[1] /= n

	var v float64
	for _, p := range points {
		v += sqDist(p, mean)
	}
	return v / n / 2
}

func sqDist(a, b [2]float64) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
