package launcher

import (
	"context"
	"os"
	"time"

	"github.com/aws/graphstorm-tester/pkg/ctxutil"
	"github.com/aws/graphstorm-tester/pkg/fileutil"
	"go.uber.org/zap"
	"k8s.io/utils/exec"
)

// runLaunchScript runs "<Python.Exec> <script> <args...>" with
// PYTHONPATH prepended, returning the combined output. An inherited
// PYTHONPATH is preserved after the GraphStorm path.
func (ts *Launcher) runLaunchScript(script string, args []string, timeout time.Duration) ([]byte, error) {
	if !fileutil.Exist(script) {
		return nil, &os.PathError{Op: "open", Path: script, Err: os.ErrNotExist}
	}

	pythonPath := ts.cfg.Python.PythonPath
	if inherited := os.Getenv("PYTHONPATH"); inherited != "" {
		pythonPath = pythonPath + string(os.PathListSeparator) + inherited
	}

	ctx, cancel := context.Background(), func() {}
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	}
	defer cancel()

	ts.lg.Info("running launch script",
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
		ts.lg.Warn("launch script failed",
			zap.String("script", script),
			zap.String("time-left", ctxutil.TimeLeftTillDeadline(ctx)),
			zap.Error(err),
		)
		return out, err
	}

	ts.lg.Info("launch script succeeded", zap.String("script", script))
	return out, nil
}
