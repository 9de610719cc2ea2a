// Package calculator pairs locations of one category with nearby locations
// of another, e.g. each business with its closest campus.
package calculator

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"umkm-map/internal/models"
)

// ErrEmptyInput is returned when either side of a pairing is empty.
var ErrEmptyInput = eris.New("calculator: empty input lists")

// ProgressCallback may be invoked from several goroutines at once.
type ProgressCallback func(current, total int)

// chunks splits [0,total) into at most runtime.NumCPU() contiguous ranges.
func chunks(total int) [][2]int {
	numCPU := runtime.NumCPU()
	if numCPU < 1 {
		numCPU = 1
	}
	chunkSize := (total + numCPU - 1) / numCPU

	var out [][2]int
	for i := 0; i < numCPU; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if start >= total {
			break
		}
		if end > total {
			end = total
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

func pair(src, dst models.LocationRecord, dist float64) models.NearestRow {
	return models.NearestRow{
		SourceName:     src.Name,
		SourceCategory: src.Category,
		SourceLat:      src.Loc.Lat,
		SourceLon:      src.Loc.Lon,
		TargetName:     dst.Name,
		TargetCategory: dst.Category,
		TargetLat:      dst.Loc.Lat,
		TargetLon:      dst.Loc.Lon,
		Distance:       int(math.Round(dist)),
	}
}

// ComputeNearest finds, for every source, the closest target. Rows follow
// source order; on equal distance the earlier target wins.
func ComputeNearest(sources, targets []models.LocationRecord, onProgress ProgressCallback) ([]models.NearestRow, error) {
	if len(sources) == 0 || len(targets) == 0 {
		return nil, ErrEmptyInput
	}

	total := len(sources)
	results := make([]models.NearestRow, total)
	ranges := chunks(total)

	var wg sync.WaitGroup
	var processedCount int64

	zap.L().Debug("calculator: nearest search",
		zap.Int("workers", len(ranges)),
		zap.Int("sources", len(sources)),
		zap.Int("targets", len(targets)),
	)

	for _, r := range ranges {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()

			for idx := s; idx < e; idx++ {
				source := sources[idx]
				nearestIdx := 0
				minDist := math.MaxFloat64

				for tIdx, t := range targets {
					d := Haversine(source.Loc.Lat, source.Loc.Lon, t.Loc.Lat, t.Loc.Lon)
					if d < minDist {
						minDist = d
						nearestIdx = tIdx
					}
				}

				results[idx] = pair(source, targets[nearestIdx], minDist)

				count := atomic.AddInt64(&processedCount, 1)
				if count%500 == 0 && onProgress != nil {
					onProgress(int(count), total)
				}
			}
		}(r[0], r[1])
	}

	wg.Wait()

	if onProgress != nil {
		onProgress(total, total)
	}
	return results, nil
}

// ComputeRadius returns every (source, target) pair within radiusMeters,
// grouped by source in source order and by target order within a source.
func ComputeRadius(sources, targets []models.LocationRecord, radiusMeters float64, onProgress ProgressCallback) ([]models.NearestRow, error) {
	if len(sources) == 0 || len(targets) == 0 {
		return nil, ErrEmptyInput
	}
	if radiusMeters < 0 || math.IsNaN(radiusMeters) {
		return nil, eris.Errorf("calculator: invalid radius %v", radiusMeters)
	}

	total := len(sources)
	ranges := chunks(total)
	perChunk := make([][]models.NearestRow, len(ranges))

	var wg sync.WaitGroup
	var processedChunks int64

	zap.L().Debug("calculator: radius search",
		zap.Float64("meters", radiusMeters),
		zap.Int("workers", len(ranges)),
	)

	for i, r := range ranges {
		wg.Add(1)
		go func(chunk, s, e int) {
			defer wg.Done()
			var localRes []models.NearestRow

			for idx := s; idx < e; idx++ {
				src := sources[idx]
				for _, t := range targets {
					d := Haversine(src.Loc.Lat, src.Loc.Lon, t.Loc.Lat, t.Loc.Lon)
					if d <= radiusMeters {
						localRes = append(localRes, pair(src, t, d))
					}
				}
			}
			perChunk[chunk] = localRes

			done := atomic.AddInt64(&processedChunks, 1)
			if onProgress != nil {
				onProgress(int(done), len(ranges))
			}
		}(i, r[0], r[1])
	}

	wg.Wait()

	allResults := []models.NearestRow{}
	for _, c := range perChunk {
		allResults = append(allResults, c...)
	}
	return allResults, nil
}
