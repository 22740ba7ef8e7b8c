package gsconfig

import (
	"reflect"
	"strings"
	"testing"
)

func testLaunchConfig() *Config {
	cfg := NewDefault()
	cfg.Name = "graphstorm-regression"
	cfg.Region = "us-east-1"

	cfg.ECR.RepoName = "graphstorm"
	cfg.ECR.RepoAccountID = "123456789012"
	cfg.Role.ARN = "arn:aws:iam::123456789012:role/sagemaker-role"
	cfg.Python.PythonPath = "/graphstorm/python"
	cfg.Python.SageMakerDir = "/graphstorm/sagemaker/launch"

	cfg.Train.GraphName = "mag"
	cfg.Train.GraphDataS3 = "s3://graphstorm-regression/mag-4p"
	cfg.Train.ModelArtifactS3 = "s3://graphstorm-regression/model"
	cfg.Train.TrainYamlS3 = "s3://graphstorm-regression/train.yaml"
	cfg.Train.TrainYamlName = "train.yaml"

	cfg.Infer.GraphName = "mag"
	cfg.Infer.GraphDataS3 = "s3://graphstorm-regression/mag-4p"
	cfg.Infer.ModelArtifactS3 = "s3://graphstorm-regression/model"
	cfg.Infer.ModelCheckpoint = "epoch-2"
	cfg.Infer.InferYamlS3 = "s3://graphstorm-regression/infer.yaml"
	cfg.Infer.InferYamlName = "infer.yaml"
	cfg.Infer.EmbS3Output = "s3://graphstorm-regression/emb"

	cfg.Regression.DatasetName = "mag"
	cfg.Regression.SavePath = "/regression-tests-data/mag-data"
	cfg.Regression.OutputPath = "/regression-tests-data/mag-graph"
	cfg.Regression.GenDatasetScript = "/graphstorm/tools/gen_mag_dataset.py"
	cfg.Regression.PartitionScript = "/graphstorm/tools/partition_graph.py"

	return cfg
}

func TestTrainArgs(t *testing.T) {
	cfg := testLaunchConfig()

	expected := []string{
		"--ecr-repo", "graphstorm",
		"--account", "123456789012",
		"--region", "us-east-1",
		"--role", "arn:aws:iam::123456789012:role/sagemaker-role",
		"--graph-name", "mag",
		"--graph-data-s3", "s3://graphstorm-regression/mag-4p",
		"--task-type", "link_prediction",
		"--model-artifact-s3", "s3://graphstorm-regression/model",
		"--train-yaml-s3", "s3://graphstorm-regression/train.yaml",
		"--train-yaml-name", "train.yaml",
		"--instance-count", "2",
		"--instance-type", "ml.g4dn.12xlarge",
		"--backend", "gloo",
		"--batch-size", "128",
		"--n-layers", "1",
		"--n-hidden", "128",
	}
	if args := cfg.TrainArgs(); !reflect.DeepEqual(args, expected) {
		t.Fatalf("expected TrainArgs\n%q\n\ngot\n%q", expected, args)
	}

	cmd := cfg.TrainCommand()
	if !strings.HasPrefix(cmd, "PYTHONPATH=/graphstorm/python python3 /graphstorm/sagemaker/launch/launch_train.py ") {
		t.Fatalf("unexpected TrainCommand %q", cmd)
	}
	if !strings.HasSuffix(cmd, "--backend gloo --batch-size 128 --n-layers 1 --n-hidden 128") {
		t.Fatalf("unexpected TrainCommand %q", cmd)
	}
}

func TestInferArgs(t *testing.T) {
	cfg := testLaunchConfig()

	expected := []string{
		"--ecr-repo", "graphstorm",
		"--account", "123456789012",
		"--region", "us-east-1",
		"--role", "arn:aws:iam::123456789012:role/sagemaker-role",
		"--graph-name", "mag",
		"--graph-data-s3", "s3://graphstorm-regression/mag-4p",
		"--task-type", "node_classification",
		"--model-artifact-s3", "s3://graphstorm-regression/model",
		"--model-checkpoint", "epoch-2",
		"--infer-yaml-s3", "s3://graphstorm-regression/infer.yaml",
		"--infer-yaml-name", "infer.yaml",
		"--emb-s3-output", "s3://graphstorm-regression/emb",
		"--instance-count", "1",
		"--instance-type", "ml.g4dn.12xlarge",
		"--backend", "gloo",
		"--batch-size", "128",
		"--n-layers", "1",
		"--n-hidden", "128",
	}
	if args := cfg.InferArgs(); !reflect.DeepEqual(args, expected) {
		t.Fatalf("expected InferArgs\n%q\n\ngot\n%q", expected, args)
	}

	cmd := cfg.InferCommand()
	if !strings.HasPrefix(cmd, "PYTHONPATH=/graphstorm/python python3 /graphstorm/sagemaker/launch/launch_infer.py ") {
		t.Fatalf("unexpected InferCommand %q", cmd)
	}
	if !strings.HasSuffix(cmd, "--backend gloo --batch-size 128 --n-layers 1 --n-hidden 128") {
		t.Fatalf("unexpected InferCommand %q", cmd)
	}
}

func TestPartitionArgs(t *testing.T) {
	cfg := testLaunchConfig()

	expected := []string{
		"--dataset", "mag",
		"--input_folder", "/regression-tests-data/mag-data",
		"--num_parts", "4",
		"--num_trainers_per_machine", "8",
		"--predict_ntype", "paper",
		"--nlabel_field", "paper:label",
		"--part_method", "metis",
		"--balance_train",
		"--balance_edges",
		"--output", "/regression-tests-data/mag-graph",
	}
	if args := cfg.PartitionArgs(); !reflect.DeepEqual(args, expected) {
		t.Fatalf("expected PartitionArgs\n%q\n\ngot\n%q", expected, args)
	}

	cfg.Regression.BalanceTrain = false
	cfg.Regression.BalanceEdges = false
	expected = []string{
		"--dataset", "mag",
		"--input_folder", "/regression-tests-data/mag-data",
		"--num_parts", "4",
		"--num_trainers_per_machine", "8",
		"--predict_ntype", "paper",
		"--nlabel_field", "paper:label",
		"--part_method", "metis",
		"--output", "/regression-tests-data/mag-graph",
	}
	if args := cfg.PartitionArgs(); !reflect.DeepEqual(args, expected) {
		t.Fatalf("expected PartitionArgs\n%q\n\ngot\n%q", expected, args)
	}
}

func TestGenDatasetCommand(t *testing.T) {
	cfg := testLaunchConfig()

	expected := "PYTHONPATH=/graphstorm/python python3 /graphstorm/tools/gen_mag_dataset.py --savepath /regression-tests-data/mag-data"
	if cmd := cfg.GenDatasetCommand(); cmd != expected {
		t.Fatalf("expected GenDatasetCommand %q, got %q", expected, cmd)
	}
}

func TestDistRunCommand(t *testing.T) {
	cfg := testLaunchConfig()
	cfg.Regression.ContainerName = "regression-test"
	cfg.Regression.Workdir = "/graphstorm"
	cfg.Regression.RunCommand = "python3 training_scripts/m5gnn_lp/m5gnn_pure_gnn_lp.py --cf /regression-tests-data/mag_lp.yaml"

	expected := `docker exec regression-test /bin/bash -c 'cd /graphstorm && PYTHONPATH=/graphstorm/python python3 training_scripts/m5gnn_lp/m5gnn_pure_gnn_lp.py --cf /regression-tests-data/mag_lp.yaml'`
	if cmd := cfg.DistRunCommand(""); cmd != expected {
		t.Fatalf("expected DistRunCommand\n%q\n\ngot\n%q", expected, cmd)
	}

	override := `docker exec regression-test /bin/bash -c 'cd /graphstorm && PYTHONPATH=/graphstorm/python echo hello'`
	if cmd := cfg.DistRunCommand("echo hello"); cmd != override {
		t.Fatalf("expected DistRunCommand\n%q\n\ngot\n%q", override, cmd)
	}
}
