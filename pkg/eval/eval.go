// Package eval tracks validation and test scores reported by
// distributed training runs, decides early stop, and judges regression
// results against expected scores.
package eval

import (
	"math"

	"github.com/pkg/errors"
)

// Early stop strategies.
const (
	// EarlyStopAverageIncrease stops when the current validation score
	// is not better than the average of the sliding window.
	EarlyStopAverageIncrease = "average_increase"
	// EarlyStopConsecutiveIncrease stops when the current validation
	// score is not better than any entry in the sliding window
	// (Prechelt, 1998, "Early Stopping - But When?").
	EarlyStopConsecutiveIncrease = "consecutive_increase"
)

// higherBetter maps each supported metric to its comparison direction.
var higherBetter = map[string]bool{
	"accuracy":     true,
	"f1":           true,
	"per_class_f1": true,
	"roc_auc":      true,
	"mrr":          true,
	"mse":          false,
	"rmse":         false,
}

// SupportedMetric returns an error if the metric is unknown.
func SupportedMetric(metric string) error {
	if _, ok := higherBetter[metric]; !ok {
		return errors.Errorf("unsupported metric %q", metric)
	}
	return nil
}

// HigherBetter reports whether larger scores are better for the metric.
func HigherBetter(metric string) bool {
	return higherBetter[metric]
}

// notBetterThan reports whether score "a" is not better than score "b"
// for the metric. Ties count. This is the per-metric comparator used
// for best score updates, early stop judging, and ranking.
func notBetterThan(metric string, a float64, b float64) bool {
	if higherBetter[metric] {
		return a <= b
	}
	return a >= b
}

// initScore returns the initial best score for the metric, the worst
// possible value in the metric's direction.
func initScore(metric string) float64 {
	if higherBetter[metric] {
		return 0
	}
	return math.Inf(1)
}

// averageIncreaseJudge reports early stop when the validation score is
// not better than the average of the history window.
func averageIncreaseJudge(metric string, valScore float64, window []float64) bool {
	sum := 0.0
	for _, s := range window {
		sum += s
	}
	return notBetterThan(metric, valScore, sum/float64(len(window)))
}

// consecutiveIncreaseJudge reports early stop when the validation score
// is not better than every entry in the history window.
func consecutiveIncreaseJudge(metric string, valScore float64, window []float64) bool {
	stop := true
	for _, old := range window {
		stop = stop && notBetterThan(metric, valScore, old)
	}
	return stop
}

// Gate checks the best score of a run against the expected score.
// Tolerance widens the acceptance in the metric's worse direction.
func Gate(metric string, got float64, expected float64, tolerance float64) error {
	if higherBetter[metric] {
		if got >= expected-tolerance {
			return nil
		}
		return errors.Errorf("%s %.4f below expected %.4f (tolerance %.4f)", metric, got, expected, tolerance)
	}
	if got <= expected+tolerance {
		return nil
	}
	return errors.Errorf("%s %.4f above expected %.4f (tolerance %.4f)", metric, got, expected, tolerance)
}
