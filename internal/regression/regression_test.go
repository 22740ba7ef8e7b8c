package regression

import (
	"os"
	"testing"

	"github.com/aws/graphstorm-tester/gsconfig"
	"go.uber.org/zap"
)

func TestOutputFileName(t *testing.T) {
	if name := outputFileName(0, "172.31.14.1:22"); name != "0-172.31.14.1-22.out.log" {
		t.Fatalf("unexpected output file name %q", name)
	}
	if name := outputFileName(3, "172.31.14.7:2222"); name != "3-172.31.14.7-2222.out.log" {
		t.Fatalf("unexpected output file name %q", name)
	}
}

const leaderOutput = `INFO:root:Epoch 0, Val accuracy: 0.5916, Test accuracy: 0.5872
INFO:root:Epoch 1, Val accuracy: 0.6170, Test accuracy: 0.6124
INFO:root:Epoch 2, Val accuracy: 0.6052, Test accuracy: 0.6010
INFO:root:best val accuracy: 0.6170
`

func TestCheckResults(t *testing.T) {
	f, err := os.CreateTemp(os.TempDir(), "graphstorm-tester-config")
	if err != nil {
		t.Fatal(err)
	}
	p := f.Name()
	f.Close()
	defer os.RemoveAll(p)

	cfg := gsconfig.NewDefault()
	cfg.ConfigPath = p
	cfg.Regression.ExpectedMetric = "accuracy"
	cfg.Regression.ExpectedScore = 0.6
	cfg.Regression.ScoreTolerance = 0.01

	ts := &Tester{
		lg:      zap.NewExample(),
		cfg:     cfg,
		outputs: map[int][]byte{0: []byte(leaderOutput)},
	}
	if err = ts.checkResults(); err != nil {
		t.Fatal(err)
	}
	if cfg.Regression.BestValScore != 0.6170 {
		t.Fatalf("unexpected best val score %f", cfg.Regression.BestValScore)
	}
	if cfg.Regression.BestTestScore != 0.6124 {
		t.Fatalf("unexpected best test score %f", cfg.Regression.BestTestScore)
	}
	if cfg.Regression.BestIteration != 1 {
		t.Fatalf("unexpected best iteration %d", cfg.Regression.BestIteration)
	}
}

func TestCheckResultsGateFails(t *testing.T) {
	f, err := os.CreateTemp(os.TempDir(), "graphstorm-tester-config")
	if err != nil {
		t.Fatal(err)
	}
	p := f.Name()
	f.Close()
	defer os.RemoveAll(p)

	cfg := gsconfig.NewDefault()
	cfg.ConfigPath = p
	cfg.Regression.ExpectedMetric = "accuracy"
	cfg.Regression.ExpectedScore = 0.7
	cfg.Regression.ScoreTolerance = 0.01

	ts := &Tester{
		lg:      zap.NewExample(),
		cfg:     cfg,
		outputs: map[int][]byte{0: []byte(leaderOutput)},
	}
	if err = ts.checkResults(); err == nil {
		t.Fatal("expected the score gate to fail")
	}
}

func TestCheckResultsNoLeaderOutput(t *testing.T) {
	cfg := gsconfig.NewDefault()
	cfg.Regression.ExpectedMetric = "accuracy"

	ts := &Tester{
		lg:      zap.NewExample(),
		cfg:     cfg,
		outputs: map[int][]byte{1: []byte("worker output only")},
	}
	if err := ts.checkResults(); err == nil {
		t.Fatal("expected error when the leader output is missing")
	}
}
