package eval

import "testing"

func TestEvaluatorBest(t *testing.T) {
	ev, err := New(Config{Metrics: []string{"accuracy"}})
	if err != nil {
		t.Fatal(err)
	}

	ev.Update(map[string]float64{"accuracy": 0.5}, map[string]float64{"accuracy": 0.48}, 100)
	ev.Update(map[string]float64{"accuracy": 0.6}, map[string]float64{"accuracy": 0.58}, 200)
	ev.Update(map[string]float64{"accuracy": 0.55}, map[string]float64{"accuracy": 0.61}, 300)

	val, test, iter := ev.Best("accuracy")
	if val != 0.6 || test != 0.58 || iter != 200 {
		t.Fatalf("unexpected best %.2f/%.2f at %d", val, test, iter)
	}

	// a tie updates the best round
	ev.Update(map[string]float64{"accuracy": 0.6}, map[string]float64{"accuracy": 0.59}, 400)
	val, test, iter = ev.Best("accuracy")
	if val != 0.6 || test != 0.59 || iter != 400 {
		t.Fatalf("unexpected best %.2f/%.2f at %d", val, test, iter)
	}
}

func TestEvaluatorBestLowerBetter(t *testing.T) {
	ev, err := New(Config{Metrics: []string{"rmse"}})
	if err != nil {
		t.Fatal(err)
	}

	ev.Update(map[string]float64{"rmse": 1.2}, map[string]float64{"rmse": 1.3}, 100)
	ev.Update(map[string]float64{"rmse": 0.9}, map[string]float64{"rmse": 0.95}, 200)
	ev.Update(map[string]float64{"rmse": 1.0}, map[string]float64{"rmse": 0.8}, 300)

	val, test, iter := ev.Best("rmse")
	if val != 0.9 || test != 0.95 || iter != 200 {
		t.Fatalf("unexpected best %.2f/%.2f at %d", val, test, iter)
	}
}

func TestDoEval(t *testing.T) {
	ev, err := New(Config{Metrics: []string{"accuracy"}, Frequency: 100})
	if err != nil {
		t.Fatal(err)
	}
	if !ev.DoEval(100, false) {
		t.Fatal("expected eval at iteration 100")
	}
	if ev.DoEval(150, false) {
		t.Fatal("unexpected eval at iteration 150")
	}
	if !ev.DoEval(150, true) {
		t.Fatal("expected eval at epoch end")
	}

	ev, err = New(Config{Metrics: []string{"accuracy"}})
	if err != nil {
		t.Fatal(err)
	}
	if ev.DoEval(100, false) {
		t.Fatal("unexpected eval with zero frequency")
	}
	if !ev.DoEval(100, true) {
		t.Fatal("expected eval at epoch end")
	}
}

func TestEarlyStopConsecutive(t *testing.T) {
	ev, err := New(Config{
		Metrics:           []string{"accuracy"},
		EarlyStopEnable:   true,
		EarlyStopWindow:   3,
		EarlyStopStrategy: EarlyStopConsecutiveIncrease,
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []float64{0.5, 0.6, 0.7} {
		if ev.DoEarlyStop(s) {
			t.Fatalf("unexpected early stop while filling window (%.2f)", s)
		}
	}
	// better than the oldest window entry
	if ev.DoEarlyStop(0.65) {
		t.Fatal("unexpected early stop at 0.65")
	}
	// not better than any of [0.6 0.7 0.65]
	if !ev.DoEarlyStop(0.55) {
		t.Fatal("expected early stop at 0.55")
	}
}

func TestEarlyStopAverage(t *testing.T) {
	ev, err := New(Config{
		Metrics:               []string{"accuracy"},
		EarlyStopEnable:       true,
		EarlyStopBurninRounds: 1,
		EarlyStopWindow:       2,
		EarlyStopStrategy:     EarlyStopAverageIncrease,
	})
	if err != nil {
		t.Fatal(err)
	}

	if ev.DoEarlyStop(0.9) {
		t.Fatal("unexpected early stop during burn-in")
	}
	if ev.DoEarlyStop(0.5) {
		t.Fatal("unexpected early stop while filling window")
	}
	if ev.DoEarlyStop(0.6) {
		t.Fatal("unexpected early stop while filling window")
	}
	// not better than the window average (0.5+0.6)/2
	if !ev.DoEarlyStop(0.54) {
		t.Fatal("expected early stop at 0.54")
	}
}

func TestEarlyStopDisabled(t *testing.T) {
	ev, err := New(Config{Metrics: []string{"accuracy"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []float64{0.9, 0.1, 0.1, 0.1, 0.1} {
		if ev.DoEarlyStop(s) {
			t.Fatal("early stop must stay disabled")
		}
	}
}

func TestRankValScore(t *testing.T) {
	ev, err := New(Config{Metrics: []string{"accuracy"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []float64{1, 1, 2, 2, 3, 4} {
		ev.RankValScore(s)
	}
	// in [1 1 2 2 3 4], another 2 ranks 5th
	if rank := ev.RankValScore(2); rank != 5 {
		t.Fatalf("expected rank 5, got %d", rank)
	}
}

func TestNewRejects(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty metrics")
	}
	if _, err := New(Config{Metrics: []string{"bleu"}}); err == nil {
		t.Fatal("expected error for unsupported metric")
	}
	if _, err := New(Config{Metrics: []string{"accuracy"}, EarlyStopStrategy: "sometimes"}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestGate(t *testing.T) {
	if err := Gate("accuracy", 0.58, 0.6, 0.02); err != nil {
		t.Fatal(err)
	}
	if err := Gate("accuracy", 0.57, 0.6, 0.02); err == nil {
		t.Fatal("expected gate failure")
	}
	if err := Gate("rmse", 1.05, 1.0, 0.05); err != nil {
		t.Fatal(err)
	}
	if err := Gate("rmse", 1.06, 1.0, 0.05); err == nil {
		t.Fatal("expected gate failure")
	}
}
