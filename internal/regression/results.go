package regression

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/graphstorm-tester/pkg/cw"
	"github.com/aws/graphstorm-tester/pkg/eval"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// checkResults parses the evaluation scores from the leader host's
// output, records the best scores, and judges them against the
// expected score. A zero "ExpectedScore" disables the gate, so a new
// dataset can run once to establish its baseline.
func (ts *Tester) checkResults() (err error) {
	metric := ts.cfg.Regression.ExpectedMetric

	out := ts.outputs[0]
	if len(out) == 0 {
		return errors.New("no output from the leader host (rank 0)")
	}

	scores, err := eval.ParseScores(out, metric)
	if err != nil {
		return err
	}

	ev, err := eval.New(eval.Config{
		Metrics:               []string{metric},
		Frequency:             int(ts.cfg.Regression.EvalFrequency),
		EarlyStopEnable:       ts.cfg.Regression.EarlyStopWindow > 0,
		EarlyStopBurninRounds: int(ts.cfg.Regression.EarlyStopBurninRounds),
		EarlyStopWindow:       int(ts.cfg.Regression.EarlyStopWindow),
		EarlyStopStrategy:     ts.cfg.Regression.EarlyStopStrategy,
	})
	if err != nil {
		return err
	}

	earlyStopRound := -1
	for _, s := range scores {
		ev.Update(map[string]float64{metric: s.Val}, map[string]float64{metric: s.Test}, s.Round)
		if earlyStopRound < 0 && ev.DoEarlyStop(s.Val) {
			earlyStopRound = s.Round
		}
	}
	if earlyStopRound >= 0 {
		ts.lg.Info("training would have early stopped",
			zap.Int("round", earlyStopRound),
			zap.String("strategy", ts.cfg.Regression.EarlyStopStrategy),
		)
	}

	bestVal, bestTest, bestIter := ev.Best(metric)
	ts.cfg.Regression.BestValScore = bestVal
	ts.cfg.Regression.BestTestScore = bestTest
	ts.cfg.Regression.BestIteration = int64(bestIter)
	ts.cfg.Sync()

	ts.lg.Info("parsed leader evaluation scores",
		zap.String("metric", metric),
		zap.Int("rounds", len(scores)),
		zap.Float64("best-val-score", bestVal),
		zap.Float64("best-test-score", bestTest),
		zap.Int("best-iteration", bestIter),
	)

	if ts.cfg.Regression.MetricsPublish {
		if perr := ts.publishResults(bestVal, bestTest); perr != nil {
			ts.lg.Warn("failed to publish regression metrics", zap.Error(perr))
		}
	}

	if ts.cfg.Regression.ExpectedScore == 0 {
		ts.lg.Info("skipping score gate; ExpectedScore is 0")
		return nil
	}
	if err = eval.Gate(metric, bestTest, ts.cfg.Regression.ExpectedScore, ts.cfg.Regression.ScoreTolerance); err != nil {
		return err
	}
	ts.lg.Info("score gate passed",
		zap.String("metric", metric),
		zap.Float64("best-test-score", bestTest),
		zap.Float64("expected-score", ts.cfg.Regression.ExpectedScore),
		zap.Float64("score-tolerance", ts.cfg.Regression.ScoreTolerance),
	)
	return nil
}

// publishResults publishes the best scores and the distributed run
// duration to CloudWatch, so score drift across runs shows up on a
// dashboard.
func (ts *Tester) publishResults(bestVal float64, bestTest float64) error {
	now := time.Now().UTC()
	dims := []*cloudwatch.Dimension{
		{Name: aws.String("Dataset"), Value: aws.String(ts.cfg.Regression.DatasetName)},
		{Name: aws.String("Metric"), Value: aws.String(ts.cfg.Regression.ExpectedMetric)},
	}
	datums := []*cloudwatch.MetricDatum{
		{
			MetricName: aws.String("best-val-score"),
			Dimensions: dims,
			Timestamp:  aws.Time(now),
			Unit:       aws.String(cloudwatch.StandardUnitNone),
			Value:      aws.Float64(bestVal),
		},
		{
			MetricName: aws.String("best-test-score"),
			Dimensions: dims,
			Timestamp:  aws.Time(now),
			Unit:       aws.String(cloudwatch.StandardUnitNone),
			Value:      aws.Float64(bestTest),
		},
		{
			MetricName: aws.String("dist-run-seconds"),
			Dimensions: dims,
			Timestamp:  aws.Time(now),
			Unit:       aws.String(cloudwatch.StandardUnitSeconds),
			Value:      aws.Float64(ts.cfg.Regression.TimeFrameDistRun.Took.Seconds()),
		},
	}
	return cw.PutData(ts.lg, ts.cwAPI, ts.cfg.Regression.MetricsNamespace, 20, datums...)
}
