package gsconfig

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUpdateFromEnvs(t *testing.T) {
	t.Setenv("GRAPHSTORM_TESTER_LOG_LEVEL", "debug")
	t.Setenv("GRAPHSTORM_TESTER_S3_BUCKET_NAME", "graphstorm-regression")
	t.Setenv("GRAPHSTORM_TESTER_ECR_REPO_IMAGE_TAG", "sm")
	t.Setenv("GRAPHSTORM_TESTER_TRAIN_INSTANCE_COUNT", "4")
	t.Setenv("GRAPHSTORM_TESTER_TRAIN_WAIT_TIMEOUT", "2h")
	t.Setenv("GRAPHSTORM_TESTER_REGRESSION_EXPECTED_SCORE", "0.61")
	t.Setenv("GRAPHSTORM_TESTER_REGRESSION_BALANCE_TRAIN", "false")
	t.Setenv("GRAPHSTORM_TESTER_REGRESSION_QPS", "20")

	f, err := os.CreateTemp(os.TempDir(), "graphstorm-tester-config")
	if err != nil {
		t.Fatal(err)
	}
	p := f.Name()
	f.Close()
	defer os.RemoveAll(p)

	cfg := NewDefault()
	cfg.ConfigPath = p

	assert.NoError(t, cfg.UpdateFromEnvs())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "graphstorm-regression", cfg.S3.BucketName)
	assert.Equal(t, "sm", cfg.ECR.RepoImageTag)
	assert.Equal(t, int32(4), cfg.Train.InstanceCount)
	assert.Equal(t, 2*time.Hour, cfg.Train.WaitTimeout)
	assert.Equal(t, 0.61, cfg.Regression.ExpectedScore)
	assert.False(t, cfg.Regression.BalanceTrain)
	assert.Equal(t, float32(20), cfg.Regression.QPS)
}

func TestUpdateFromEnvsReadOnly(t *testing.T) {
	t.Setenv("GRAPHSTORM_TESTER_TRAIN_JOB_NAME", "gs-mag-lp-2023-04-11-02-12-52-317")

	f, err := os.CreateTemp(os.TempDir(), "graphstorm-tester-config")
	if err != nil {
		t.Fatal(err)
	}
	p := f.Name()
	f.Close()
	defer os.RemoveAll(p)

	cfg := NewDefault()
	cfg.ConfigPath = p

	assert.Error(t, cfg.UpdateFromEnvs())
}
