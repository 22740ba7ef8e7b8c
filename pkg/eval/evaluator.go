package eval

import (
	"github.com/pkg/errors"
)

// Config configures an Evaluator.
type Config struct {
	// Metrics lists the evaluation metrics. The first one is the major
	// metric; it drives early stop decisions and score ranking.
	Metrics []string
	// Frequency is the evaluation cadence in iterations.
	// Zero evaluates at epoch ends only.
	Frequency int

	EarlyStopEnable bool
	// EarlyStopBurninRounds is the number of early stop calls to skip
	// before validation scores are considered.
	EarlyStopBurninRounds int
	// EarlyStopWindow is the size of the sliding window of validation
	// scores that early stop judges against.
	EarlyStopWindow int
	// EarlyStopStrategy is "consecutive_increase" or "average_increase".
	// Empty defaults to "consecutive_increase".
	EarlyStopStrategy string
}

// Evaluator tracks per-metric best validation and test scores across
// evaluation rounds.
type Evaluator struct {
	cfg Config

	bestValScore  map[string]float64
	bestTestScore map[string]float64
	bestIteration map[string]int

	earlyStopCalls int
	valPerfList    []float64

	valPerfRankList []float64
}

// New returns a new Evaluator.
func New(cfg Config) (*Evaluator, error) {
	if len(cfg.Metrics) == 0 {
		return nil, errors.New("at least one metric must be defined")
	}
	for _, m := range cfg.Metrics {
		if err := SupportedMetric(m); err != nil {
			return nil, err
		}
	}
	if cfg.EarlyStopStrategy == "" {
		cfg.EarlyStopStrategy = EarlyStopConsecutiveIncrease
	}
	switch cfg.EarlyStopStrategy {
	case EarlyStopAverageIncrease, EarlyStopConsecutiveIncrease:
	default:
		return nil, errors.Errorf("unknown early stop strategy %q", cfg.EarlyStopStrategy)
	}

	ev := &Evaluator{
		cfg:           cfg,
		bestValScore:  make(map[string]float64),
		bestTestScore: make(map[string]float64),
		bestIteration: make(map[string]int),
	}
	for _, m := range cfg.Metrics {
		ev.bestValScore[m] = initScore(m)
		ev.bestTestScore[m] = initScore(m)
		ev.bestIteration[m] = 0
	}
	return ev, nil
}

// MajorMetric returns the first metric.
func (ev *Evaluator) MajorMetric() string {
	return ev.cfg.Metrics[0]
}

// DoEval decides whether to evaluate at the current iteration or at an
// epoch end.
func (ev *Evaluator) DoEval(totalIters int, epochEnd bool) bool {
	if epochEnd {
		return true
	}
	if ev.cfg.Frequency != 0 && totalIters%ev.cfg.Frequency == 0 {
		return true
	}
	return false
}

// Update records the scores of one evaluation round. Per metric, the
// best scores update when the validation score is at least as good as
// the current best.
func (ev *Evaluator) Update(valScores map[string]float64, testScores map[string]float64, totalIters int) {
	for _, m := range ev.cfg.Metrics {
		v, ok := valScores[m]
		if !ok {
			continue
		}
		// be careful whether > or < it might change per metric
		if notBetterThan(m, ev.bestValScore[m], v) {
			ev.bestValScore[m] = v
			ev.bestTestScore[m] = testScores[m]
			ev.bestIteration[m] = totalIters
		}
	}
}

// Best returns the best validation score, the test score at that
// round, and the iteration the best was recorded at.
func (ev *Evaluator) Best(metric string) (valScore float64, testScore float64, iteration int) {
	return ev.bestValScore[metric], ev.bestTestScore[metric], ev.bestIteration[metric]
}

// DoEarlyStop decides whether to stop the training given the major
// metric's validation score of the current round.
func (ev *Evaluator) DoEarlyStop(valScore float64) bool {
	if !ev.cfg.EarlyStopEnable {
		return false
	}

	ev.earlyStopCalls++
	// not enough calls yet
	if ev.earlyStopCalls <= ev.cfg.EarlyStopBurninRounds {
		return false
	}

	// not enough validation scores to make the decision
	if len(ev.valPerfList) < ev.cfg.EarlyStopWindow {
		ev.valPerfList = append(ev.valPerfList, valScore)
		return false
	}

	major := ev.MajorMetric()
	stop := false
	switch ev.cfg.EarlyStopStrategy {
	case EarlyStopAverageIncrease:
		stop = averageIncreaseJudge(major, valScore, ev.valPerfList)
	case EarlyStopConsecutiveIncrease:
		stop = consecutiveIncreaseJudge(major, valScore, ev.valPerfList)
	}

	// pop the oldest score
	ev.valPerfList = append(ev.valPerfList[1:], valScore)

	return stop
}

// RankValScore returns the rank of the validation score among all
// scores seen so far, 1 being the best. An equal score ranks behind
// the existing one.
func (ev *Evaluator) RankValScore(valScore float64) int {
	major := ev.MajorMetric()
	rank := 1
	for _, existing := range ev.valPerfRankList {
		if notBetterThan(major, valScore, existing) {
			rank++
		}
	}
	ev.valPerfRankList = append(ev.valPerfRankList, valScore)
	return rank
}
