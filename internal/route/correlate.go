// Package route implements the persisted enrichment queue that fetches
// heavyweight per-workout detail (GPS route, heart-rate correlation,
// splits, running dynamics) after the lightweight run record has landed.
package route

import (
	"time"

	"github.com/stridefit/stride/internal/models"
)

// hrMatchWindow is the maximum timestamp distance for pairing a heart-rate
// sample with a route point. Points without a sample that close keep a nil
// heart rate.
const hrMatchWindow = 10 * time.Second

// CorrelateHeartRate pairs each route point with the nearest heart-rate
// sample by timestamp, accepting only matches within the 10-second window.
// Samples must be in ascending timestamp order, as the platform returns
// them.
func CorrelateHeartRate(points []models.RoutePoint, samples []models.HeartRateSample) []models.RoutePoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]models.RoutePoint, len(points))
	copy(out, points)
	if len(samples) == 0 {
		return out
	}

	idx := 0
	for i := range out {
		// Advance to the first sample not before the point, then compare
		// with its predecessor for the nearest match.
		for idx < len(samples)-1 && samples[idx].Timestamp.Before(out[i].Timestamp) {
			idx++
		}
		best := samples[idx]
		if idx > 0 {
			prev := samples[idx-1]
			if gap(prev.Timestamp, out[i].Timestamp) < gap(best.Timestamp, out[i].Timestamp) {
				best = prev
			}
		}
		if gap(best.Timestamp, out[i].Timestamp) <= hrMatchWindow {
			bpm := best.BPM
			out[i].HeartRate = &bpm
		}
	}
	return out
}

// AverageHeartRate returns the mean BPM of the samples, or 0 when empty.
func AverageHeartRate(samples []models.HeartRateSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.BPM
	}
	return sum / float64(len(samples))
}

func gap(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
