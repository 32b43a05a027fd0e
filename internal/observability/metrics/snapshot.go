package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const replyLatencyFamily = "rahi_assistant_reply_latency_seconds"

// ReplyLatencySnapshot summarizes reply latency across all serving sources.
type ReplyLatencySnapshot struct {
	Total    int64
	P50Ms    float64
	P95Ms    float64
	BySource map[string]int64
}

// SnapshotReplyLatency reads the reply latency histogram from gatherer. A
// missing family or gather error yields the zero snapshot.
func SnapshotReplyLatency(gatherer prometheus.Gatherer) ReplyLatencySnapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return ReplyLatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == replyLatencyFamily {
			family = mf
			break
		}
	}
	if family == nil {
		return ReplyLatencySnapshot{}
	}

	// Aggregate histograms across sources.
	cumulativeByUpper := map[float64]uint64{}
	bySource := map[string]int64{}
	var sampleCount uint64

	for _, metric := range family.Metric {
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		bySource[labelValue(metric, "source")] += int64(h.GetSampleCount())
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if sampleCount == 0 {
		return ReplyLatencySnapshot{}
	}

	// Client histograms omit the +Inf bucket; it holds every sample.
	cumulativeByUpper[math.Inf(1)] = sampleCount

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	return ReplyLatencySnapshot{
		Total:    int64(sampleCount),
		P50Ms:    histogramQuantile(0.50, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		P95Ms:    histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		BySource: bySource,
	}
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// histogramQuantile interpolates linearly inside the bucket holding the
// q-th sample. Samples in the +Inf bucket report the last finite bound.
func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 || len(uppers) == 0 {
		return 0
	}

	target := q * float64(total)
	var prevUpper float64
	var prevCum float64

	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper = upper
			prevCum = cum
			continue
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}
		bucketCount := cum - prevCum
		if bucketCount <= 0 || upper == prevUpper {
			return upper
		}
		fraction := (target - prevCum) / bucketCount
		return prevUpper + math.Min(math.Max(fraction, 0), 1)*(upper-prevUpper)
	}
	return prevUpper
}
