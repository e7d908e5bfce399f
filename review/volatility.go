package review

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/liamcoop/payrollrisk/delta"
)

// Volatility describes how far the run moved overall, in absolute percent.
// It is presentation only and never affects judgements or the verdict.
type Volatility struct {
	Changes       int     `json:"changes"`
	Unbounded     int     `json:"unbounded"`
	MedianPercent float64 `json:"median_percent"`
	P90Percent    float64 `json:"p90_percent"`
	MaxPercent    float64 `json:"max_percent"`
}

// SummarizeVolatility summarizes |delta_percentage| over metric changes.
// Changes without a percentage (zero or null baseline) are counted as
// unbounded and left out of the distribution.
func SummarizeVolatility(deltas []delta.Delta) Volatility {
	var v Volatility
	var data stats.Float64Data
	for _, d := range deltas {
		if !d.IsMetricChange() {
			continue
		}
		v.Changes++
		if d.DeltaPercentage == nil {
			v.Unbounded++
			continue
		}
		data = append(data, math.Abs(*d.DeltaPercentage))
	}
	if len(data) == 0 {
		return v
	}

	v.MedianPercent = orZero(stats.Median(data))
	v.P90Percent = orZero(stats.Percentile(data, 90))
	v.MaxPercent = orZero(stats.Max(data))
	return v
}

// orZero keeps NaN out of JSON output.
func orZero(x float64, err error) float64 {
	if err != nil || math.IsNaN(x) {
		return 0
	}
	return x
}
