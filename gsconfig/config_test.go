package gsconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestConfigSync(t *testing.T) {
	cfg := NewDefault()

	f, err := os.CreateTemp(os.TempDir(), "graphstorm-tester-config")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	cfg.ConfigPath, err = filepath.Abs(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		os.RemoveAll(cfg.ConfigPath)
		os.RemoveAll(cfg.LaunchCommandsOutputPath)
		for _, p := range cfg.LogOutputs {
			if filepath.Ext(p) == ".log" {
				os.RemoveAll(p)
			}
		}
	}()

	cfg.Regression.Enable = true
	cfg.Regression.SSHKeyPath = filepath.Join(os.TempDir(), "graphstorm-tester.insecure.key")

	if err = cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}

	if cfg.Regression.SavePath != filepath.Join(DefaultDataRoot, "mag-data") {
		t.Fatalf("unexpected cfg.Regression.SavePath %q", cfg.Regression.SavePath)
	}
	if cfg.Regression.OutputPath != filepath.Join(DefaultDataRoot, "mag-graph") {
		t.Fatalf("unexpected cfg.Regression.OutputPath %q", cfg.Regression.OutputPath)
	}
	if cfg.Regression.GenDatasetScript != filepath.Join(DefaultGraphStormPath, "tools", "gen_mag_dataset.py") {
		t.Fatalf("unexpected cfg.Regression.GenDatasetScript %q", cfg.Regression.GenDatasetScript)
	}
	if cfg.Regression.IPListPath != filepath.Join(DefaultDataRoot, "ip_list.txt") {
		t.Fatalf("unexpected cfg.Regression.IPListPath %q", cfg.Regression.IPListPath)
	}
	if cfg.Python.PythonPath != filepath.Join(DefaultGraphStormPath, "python") {
		t.Fatalf("unexpected cfg.Python.PythonPath %q", cfg.Python.PythonPath)
	}
	if cfg.Python.SageMakerDir != filepath.Join(DefaultGraphStormPath, "sagemaker", "launch") {
		t.Fatalf("unexpected cfg.Python.SageMakerDir %q", cfg.Python.SageMakerDir)
	}
	if !strings.HasSuffix(cfg.LaunchCommandsOutputPath, ".launch.sh") {
		t.Fatalf("unexpected cfg.LaunchCommandsOutputPath %q", cfg.LaunchCommandsOutputPath)
	}
	if len(cfg.LogOutputs) != 2 {
		t.Fatalf("unexpected cfg.LogOutputs %q", cfg.LogOutputs)
	}
	if cfg.Regression.CommandTimeoutString != cfg.Regression.CommandTimeout.String() {
		t.Fatalf("unexpected cfg.Regression.CommandTimeoutString %q", cfg.Regression.CommandTimeoutString)
	}

	d, err := os.ReadFile(cfg.LaunchCommandsOutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(d), cmdTop) {
		t.Fatalf("unexpected commands file %q", string(d))
	}

	loaded, err := Load(cfg.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != cfg.Name {
		t.Fatalf("expected Name %q, got %q", cfg.Name, loaded.Name)
	}
	if !reflect.DeepEqual(loaded.Regression, cfg.Regression) {
		t.Fatalf("expected Regression\n%+v\n\ngot\n%+v", cfg.Regression, loaded.Regression)
	}
	if !reflect.DeepEqual(loaded.Python, cfg.Python) {
		t.Fatalf("expected Python\n%+v\n\ngot\n%+v", cfg.Python, loaded.Python)
	}

	// validation is idempotent
	if err = loaded.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Regression, cfg.Regression) {
		t.Fatalf("expected Regression\n%+v\n\ngot\n%+v", cfg.Regression, loaded.Regression)
	}
}

func TestRecordStatus(t *testing.T) {
	cfg := NewDefault()

	f, err := os.CreateTemp(os.TempDir(), "graphstorm-tester-config")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	cfg.ConfigPath = f.Name()
	defer os.RemoveAll(cfg.ConfigPath)

	cfg.RecordStatus("generating dataset")
	cfg.RecordStatus("partitioning graph")
	cfg.RecordStatus("running distributed training")

	if cfg.StatusCurrent != "running distributed training" {
		t.Fatalf("unexpected cfg.StatusCurrent %q", cfg.StatusCurrent)
	}
	if len(cfg.Status) != 3 {
		t.Fatalf("unexpected cfg.Status length %d", len(cfg.Status))
	}
	// latest status is prepended
	if cfg.Status[0].Status != "running distributed training" {
		t.Fatalf("unexpected cfg.Status[0] %q", cfg.Status[0].Status)
	}
	if cfg.Status[2].Status != "generating dataset" {
		t.Fatalf("unexpected cfg.Status[2] %q", cfg.Status[2].Status)
	}
}
