package regression

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/graphstorm-tester/pkg/ctxutil"
	"github.com/aws/graphstorm-tester/pkg/fileutil"
	"github.com/aws/graphstorm-tester/pkg/timeutil"
	"go.uber.org/zap"
	"k8s.io/utils/exec"
)

// createDataset builds the regression dataset under "SavePath".
// The dataset lands on the shared data volume, so a previous run's
// output is reused as is.
func (ts *Tester) createDataset() (err error) {
	if ts.cfg.Regression.SkipDatasetGen {
		ts.lg.Info("skipping dataset generation; SkipDatasetGen is set")
		return nil
	}
	if fileutil.Exist(ts.cfg.Regression.SavePath) {
		ts.lg.Info("skipping dataset generation; dataset already exists",
			zap.String("save-path", ts.cfg.Regression.SavePath),
		)
		return nil
	}

	createStart := time.Now()
	out, err := ts.runScript(ts.cfg.Regression.GenDatasetScript, ts.cfg.GenDatasetArgs())
	ts.cfg.Regression.TimeFrameGenDataset = timeutil.NewTimeFrame(createStart, time.Now())

	fmt.Fprintf(ts.logWriter, "\n\n\"%s\" output:\n\n%s\n\n", ts.cfg.GenDatasetCommand(), string(out))
	if err != nil {
		return err
	}
	return ts.cfg.Sync()
}

// partitionGraph partitions the generated dataset into "OutputPath",
// one partition per cluster host.
func (ts *Tester) partitionGraph() (err error) {
	if ts.cfg.Regression.SkipPartition {
		ts.lg.Info("skipping graph partition; SkipPartition is set")
		return nil
	}

	createStart := time.Now()
	out, err := ts.runScript(ts.cfg.Regression.PartitionScript, ts.cfg.PartitionArgs())
	ts.cfg.Regression.TimeFramePartition = timeutil.NewTimeFrame(createStart, time.Now())

	fmt.Fprintf(ts.logWriter, "\n\n\"%s\" output:\n\n%s\n\n", ts.cfg.PartitionCommand(), string(out))
	if err != nil {
		return err
	}
	return ts.cfg.Sync()
}

// runScript runs "<Python.Exec> <script> <args...>" on the driver
// machine with PYTHONPATH prepended, returning the combined output.
func (ts *Tester) runScript(script string, args []string) ([]byte, error) {
	if !fileutil.Exist(script) {
		return nil, &os.PathError{Op: "open", Path: script, Err: os.ErrNotExist}
	}

	pythonPath := ts.cfg.Python.PythonPath
	if inherited := os.Getenv("PYTHONPATH"); inherited != "" {
		pythonPath = pythonPath + string(os.PathListSeparator) + inherited
	}

	ctx, cancel := context.Background(), func() {}
	if timeout := ts.cfg.Regression.CommandTimeout; timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	}
	defer cancel()

	ts.lg.Info("running script",
		zap.String("python-exec", ts.cfg.Python.Exec),
		zap.String("script", script),
		zap.String("python-path", pythonPath),
		zap.String("time-left", ctxutil.TimeLeftTillDeadline(ctx)),
	)
	cargs := append([]string{script}, args...)
	cmd := exec.New().CommandContext(ctx, ts.cfg.Python.Exec, cargs...)
	cmd.SetEnv(append(os.Environ(), "PYTHONPATH="+pythonPath))
	out, err := cmd.CombinedOutput()
	if err != nil {
		ts.lg.Warn("script failed",
			zap.String("script", script),
			zap.String("time-left", ctxutil.TimeLeftTillDeadline(ctx)),
			zap.Error(err),
		)
		return out, err
	}

	ts.lg.Info("script succeeded", zap.String("script", script))
	return out, nil
}
