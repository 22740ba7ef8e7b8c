package ssh

import (
	"testing"
	"time"
)

func TestOp(t *testing.T) {
	op := Op{envs: make(map[string]string)}
	op.applyOpts([]OpOption{
		WithVerbose(true),
		WithRetry(3, 5*time.Second),
		WithTimeout(time.Minute),
		WithEnv("PYTHONPATH", "/graphstorm/python"),
	})

	if !op.verbose {
		t.Fatal("expected verbose")
	}
	if op.retries != 3 {
		t.Fatalf("expected 3 retries, got %d", op.retries)
	}
	if op.retryInterval != 5*time.Second {
		t.Fatalf("unexpected retry interval %v", op.retryInterval)
	}
	if op.timeout != time.Minute {
		t.Fatalf("unexpected timeout %v", op.timeout)
	}
	if op.envs["PYTHONPATH"] != "/graphstorm/python" {
		t.Fatalf("unexpected envs %v", op.envs)
	}
}
