// Package gsconfig defines graphstorm-tester configuration.
package gsconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/graphstorm-tester/pkg/timeutil"
	aws_v2 "github.com/aws/aws-sdk-go-v2/aws"
	aws_ec2_v2_types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/mitchellh/colorstring"
	"sigs.k8s.io/yaml" // must use "sigs.k8s.io/yaml"
)

// GRAPHSTORM_TESTER_PREFIX is the environment variable prefix used for "gsconfig".
const GRAPHSTORM_TESTER_PREFIX = "GRAPHSTORM_TESTER_"

const (
	// TaskTypeLinkPrediction trains a link prediction model.
	TaskTypeLinkPrediction = "link_prediction"
	// TaskTypeNodeClassification trains a node classification model.
	TaskTypeNodeClassification = "node_classification"
	// TaskTypeNodeRegression trains a node regression model.
	TaskTypeNodeRegression = "node_regression"
	// TaskTypeEdgeClassification trains an edge classification model.
	TaskTypeEdgeClassification = "edge_classification"
	// TaskTypeEdgeRegression trains an edge regression model.
	TaskTypeEdgeRegression = "edge_regression"

	// BackendGloo is the gloo distributed communication backend.
	BackendGloo = "gloo"
	// BackendNCCL is the nccl distributed communication backend.
	BackendNCCL = "nccl"

	// PartMethodMetis partitions the graph with METIS.
	PartMethodMetis = "metis"
	// PartMethodRandom partitions the graph randomly.
	PartMethodRandom = "random"

	// DefaultTrainInstanceType is the default SageMaker instance type for
	// distributed GNN training.
	// ref. https://aws.amazon.com/sagemaker/pricing/
	DefaultTrainInstanceType = "ml.g4dn.12xlarge"
	// DefaultInferInstanceType is the default SageMaker instance type for inference.
	DefaultInferInstanceType = "ml.g4dn.12xlarge"

	// DefaultGraphStormPath is the default GraphStorm repository root on
	// the machine that runs the launcher.
	DefaultGraphStormPath = "/graphstorm"
	// DefaultDataRoot is the default shared data directory visible to
	// every regression cluster host.
	DefaultDataRoot = "/regression-tests-data"
)

// Config defines graphstorm-tester configuration.
type Config struct {
	mu *sync.RWMutex

	// Up is true if the regression cluster hosts are reachable.
	Up           bool               `json:"up"`
	TimeFrameRun timeutil.TimeFrame `json:"time-frame-run" read-only:"true"`
	// StatusCurrent represents the current status of the test run.
	StatusCurrent string `json:"status-current"`
	// Status represents the status history of the test run.
	Status []Status `json:"status" read-only:"true"`

	// Name is the test run name.
	// If empty, tester auto-populates it.
	Name string `json:"name"`
	// Partition is the AWS partition for the deployment region.
	// If empty, set default partition "aws".
	Partition string `json:"partition"`
	// Region is the AWS geographic area for SageMaker jobs, ECR images, and S3 buckets.
	// If empty, set default region.
	Region string `json:"region"`

	// ConfigPath is the configuration file path.
	// Tester is expected to update this file with latest status.
	ConfigPath string `json:"config-path,omitempty"`
	// LaunchCommandsOutputPath is the output path for the generated launch commands.
	LaunchCommandsOutputPath string `json:"launch-commands-output-path,omitempty"`

	// AWSAccountID is the account ID of the tester caller session.
	AWSAccountID string `json:"aws-account-id" read-only:"true"`
	// AWSUserID is the user ID of the tester caller session.
	AWSUserID string `json:"aws-user-id" read-only:"true"`
	// AWSIAMRoleARN is the IAM Role ARN of the tester caller session.
	AWSIAMRoleARN string `json:"aws-iam-role-arn" read-only:"true"`
	// AWSCredentialPath is automatically set via AWS SDK Go.
	AWSCredentialPath string `json:"aws-credential-path" read-only:"true"`

	// LogColor is true to output logs in color.
	LogColor bool `json:"log-color"`
	// LogColorOverride is not empty to override "LogColor" setting.
	// If not empty, the automatic color check is not even run and use this value instead.
	// For instance, github action worker might not support color device,
	// thus exiting color check with the exit code 1.
	// Useful to skip terminal color check when there is no color device (e.g., Github action worker).
	LogColorOverride string `json:"log-color-override"`
	// LogLevel configures log level. Only supports debug, info, warn, error, panic, or fatal. Default 'info'.
	LogLevel string `json:"log-level"`
	// LogOutputs is a list of log outputs. Valid values are 'default', 'stderr', 'stdout', or file names.
	// Logs are appended to the existing file, if any.
	// Multiple values are accepted. If empty, it sets to 'default', which outputs to stderr.
	// See https://pkg.go.dev/go.uber.org/zap#Open and https://pkg.go.dev/go.uber.org/zap#Config for more details.
	LogOutputs []string `json:"log-outputs,omitempty"`

	S3     *S3     `json:"s3"`
	ECR    *ECR    `json:"ecr"`
	Role   *Role   `json:"role"`
	Python *Python `json:"python"`

	Train      *Train      `json:"train"`
	Infer      *Infer      `json:"infer"`
	Regression *Regression `json:"regression"`
}

// S3 defines S3 buckets for graph data, configuration files, and model artifacts.
type S3 struct {
	// BucketCreate is true to auto-create S3 bucket.
	BucketCreate bool `json:"bucket-create"`
	// BucketName is the name of the test S3 bucket.
	BucketName string `json:"bucket-name"`
	// BucketLifecycleExpirationDays is expiration in days for objects in the bucket.
	BucketLifecycleExpirationDays int64 `json:"bucket-lifecycle-expiration-days"`
	// Dir is the S3 key prefix for uploads from this test run.
	Dir string `json:"dir,omitempty" read-only:"true"`
}

// ECR defines the repository that hosts the GraphStorm training image.
type ECR struct {
	// RepoAccountID is the account ID that hosts the ECR repository.
	// If empty, it is set to the caller account ID.
	RepoAccountID string `json:"repo-account-id"`
	// RepoRegion is the ECR repository region.
	// If empty, it is set to the deployment region.
	RepoRegion string `json:"repo-region"`
	// RepoName is the ECR repository name (e.g. "graphstorm").
	RepoName string `json:"repo-name"`
	// RepoImageTag is the image tag to run (e.g. "latest").
	RepoImageTag string `json:"repo-image-tag"`
	// RepoURI is the resolved repository URI.
	RepoURI string `json:"repo-uri" read-only:"true"`
}

// Role defines the execution role that SageMaker jobs assume.
type Role struct {
	// ARN is the IAM role ARN. Required when training or inference is enabled.
	ARN string `json:"arn"`
	// Name is the IAM role name, derived from "ARN".
	Name string `json:"name" read-only:"true"`
}

// Python defines how GraphStorm Python entrypoints are invoked.
type Python struct {
	// Exec is the Python executable used to run launch scripts.
	Exec string `json:"exec"`
	// GraphStormPath is the GraphStorm repository root on the launcher machine.
	GraphStormPath string `json:"graphstorm-path"`
	// PythonPath is prepended to PYTHONPATH before invoking launch scripts.
	// If empty, it is set to "<GraphStormPath>/python".
	PythonPath string `json:"python-path"`
	// SageMakerDir is the directory that contains the SageMaker launch scripts.
	// If empty, it is set to "<GraphStormPath>/sagemaker/launch".
	SageMakerDir string `json:"sagemaker-dir"`
}

// Train defines a SageMaker distributed training job launch.
type Train struct {
	// Enable is true to launch a training job.
	Enable bool `json:"enable"`

	// GraphName is the name of the input graph (e.g. "mag").
	GraphName string `json:"graph-name"`
	// TaskType is the training task type.
	// Allowed values are "link_prediction", "node_classification",
	// "node_regression", "edge_classification", and "edge_regression".
	TaskType string `json:"task-type"`
	// GraphDataS3 is the S3 path to the partitioned graph data.
	GraphDataS3 string `json:"graph-data-s3"`
	// ModelArtifactS3 is the S3 path where trained model artifacts are saved.
	ModelArtifactS3 string `json:"model-artifact-s3"`
	// TrainYamlS3 is the S3 path to the training configuration YAML.
	TrainYamlS3 string `json:"train-yaml-s3"`
	// TrainYamlName is the file name of the training configuration YAML.
	// If empty, it is set to the base name of "TrainYamlS3".
	TrainYamlName string `json:"train-yaml-name"`
	// LocalYamlPath is a local training YAML to upload to "TrainYamlS3" before launch.
	LocalYamlPath string `json:"local-yaml-path,omitempty"`

	// InstanceCount is the number of SageMaker training instances.
	InstanceCount int32 `json:"instance-count"`
	// InstanceType is the SageMaker training instance type.
	InstanceType string `json:"instance-type"`

	// Backend is the distributed communication backend. Allowed values are "gloo" and "nccl".
	Backend string `json:"backend"`
	// BatchSize is the mini-batch size per trainer.
	BatchSize int32 `json:"batch-size"`
	// NLayers is the number of GNN layers.
	NLayers int32 `json:"n-layers"`
	// NHidden is the hidden dimension size.
	NHidden int32 `json:"n-hidden"`

	// WaitForCompletion is true to poll "ModelArtifactS3" until model artifacts exist.
	WaitForCompletion bool `json:"wait-for-completion"`
	// WaitTimeout is the maximum duration to wait for the training job.
	WaitTimeout       time.Duration `json:"wait-timeout"`
	WaitTimeoutString string        `json:"wait-timeout-string" read-only:"true"`
	// PollInterval is the interval between job status and S3 queries.
	PollInterval       time.Duration `json:"poll-interval"`
	PollIntervalString string        `json:"poll-interval-string" read-only:"true"`

	// JobName is the SageMaker training job name captured from the launch output.
	JobName string `json:"job-name" read-only:"true"`

	TimeFrameLaunch timeutil.TimeFrame `json:"time-frame-launch" read-only:"true"`
}

// Infer defines a SageMaker distributed inference job launch.
type Infer struct {
	// Enable is true to launch an inference job.
	Enable bool `json:"enable"`

	// GraphName is the name of the input graph (e.g. "mag").
	GraphName string `json:"graph-name"`
	// TaskType is the inference task type.
	// Allowed values are "link_prediction", "node_classification",
	// "node_regression", "edge_classification", and "edge_regression".
	TaskType string `json:"task-type"`
	// GraphDataS3 is the S3 path to the partitioned graph data.
	GraphDataS3 string `json:"graph-data-s3"`
	// ModelArtifactS3 is the S3 path that stores trained model artifacts.
	ModelArtifactS3 string `json:"model-artifact-s3"`
	// ModelCheckpoint is the checkpoint directory name under "ModelArtifactS3" (e.g. "epoch-2").
	ModelCheckpoint string `json:"model-checkpoint"`
	// InferYamlS3 is the S3 path to the inference configuration YAML.
	InferYamlS3 string `json:"infer-yaml-s3"`
	// InferYamlName is the file name of the inference configuration YAML.
	// If empty, it is set to the base name of "InferYamlS3".
	InferYamlName string `json:"infer-yaml-name"`
	// LocalYamlPath is a local inference YAML to upload to "InferYamlS3" before launch.
	LocalYamlPath string `json:"local-yaml-path,omitempty"`
	// EmbS3Output is the S3 path where inferred node embeddings are saved.
	EmbS3Output string `json:"emb-s3-output"`

	// InstanceCount is the number of SageMaker inference instances.
	InstanceCount int32 `json:"instance-count"`
	// InstanceType is the SageMaker inference instance type.
	InstanceType string `json:"instance-type"`

	// Backend is the distributed communication backend. Allowed values are "gloo" and "nccl".
	Backend string `json:"backend"`
	// BatchSize is the mini-batch size per worker.
	BatchSize int32 `json:"batch-size"`
	// NLayers is the number of GNN layers. Must match the trained model.
	NLayers int32 `json:"n-layers"`
	// NHidden is the hidden dimension size. Must match the trained model.
	NHidden int32 `json:"n-hidden"`

	// WaitForCompletion is true to poll "EmbS3Output" until embeddings exist.
	WaitForCompletion bool `json:"wait-for-completion"`
	// WaitTimeout is the maximum duration to wait for the inference job.
	WaitTimeout       time.Duration `json:"wait-timeout"`
	WaitTimeoutString string        `json:"wait-timeout-string" read-only:"true"`
	// PollInterval is the interval between job status and S3 queries.
	PollInterval       time.Duration `json:"poll-interval"`
	PollIntervalString string        `json:"poll-interval-string" read-only:"true"`

	// JobName is the SageMaker inference job name captured from the launch output.
	JobName string `json:"job-name" read-only:"true"`

	TimeFrameLaunch timeutil.TimeFrame `json:"time-frame-launch" read-only:"true"`
}

// Regression defines the multi-machine regression test driver.
type Regression struct {
	// Enable is true to run the regression test steps.
	Enable bool `json:"enable"`

	// DataRoot is the shared data directory visible to every cluster host.
	DataRoot string `json:"data-root"`
	// DatasetName is the dataset to generate and partition (e.g. "mag").
	DatasetName string `json:"dataset-name"`
	// SavePath is the directory where the generated dataset is saved.
	// If empty, it is set to "<DataRoot>/<DatasetName>-data".
	SavePath string `json:"save-path"`
	// OutputPath is the directory where the partitioned graph is written.
	// If empty, it is set to "<DataRoot>/<DatasetName>-graph".
	OutputPath string `json:"output-path"`

	// GenDatasetScript is the dataset builder script path.
	// If empty, it is set to "<GraphStormPath>/tools/gen_<DatasetName>_dataset.py".
	GenDatasetScript string `json:"gen-dataset-script"`
	// PartitionScript is the graph partition script path.
	// If empty, it is set to "<GraphStormPath>/tools/partition_graph.py".
	PartitionScript string `json:"partition-script"`

	// PartitionCount is the number of graph partitions.
	// Must match the number of cluster hosts.
	PartitionCount int32 `json:"partition-count"`
	// TrainersPerMachine is the number of trainer processes per machine.
	TrainersPerMachine int32 `json:"trainers-per-machine"`
	// PredictNodeType is the node type to predict on (e.g. "paper").
	PredictNodeType string `json:"predict-node-type"`
	// LabelField is the node feature field that stores labels.
	LabelField string `json:"label-field"`
	// PartMethod is the partition method. Allowed values are "metis" and "random".
	PartMethod string `json:"part-method"`
	// BalanceTrain is true to balance the training set across partitions.
	BalanceTrain bool `json:"balance-train"`
	// BalanceEdges is true to balance the number of edges across partitions.
	BalanceEdges bool `json:"balance-edges"`

	// SkipDatasetGen is true to skip dataset generation and reuse "SavePath".
	SkipDatasetGen bool `json:"skip-dataset-gen"`
	// SkipPartition is true to skip graph partitioning and reuse "OutputPath".
	SkipPartition bool `json:"skip-partition"`

	// IPListPath is the file that lists cluster host addresses one per line,
	// "host" or "host:port". The first line is rank 0, the leader.
	// If empty, it is set to "<DataRoot>/ip_list.txt".
	IPListPath string `json:"ip-list-path"`
	// ClusterTagKey is the EC2 tag key used to discover cluster hosts
	// when "IPListPath" does not exist.
	ClusterTagKey string `json:"cluster-tag-key"`
	// ClusterTagValue is the EC2 tag value used to discover cluster hosts.
	ClusterTagValue string `json:"cluster-tag-value"`
	// Hosts lists the cluster hosts in rank order.
	Hosts []Instance `json:"hosts,omitempty" read-only:"true"`

	// SSHUser is the user name for SSH access to cluster hosts.
	SSHUser string `json:"ssh-user"`
	// SSHKeyPath is the SSH private key path for cluster host access.
	SSHKeyPath string `json:"ssh-key-path"`

	// ContainerName is the docker container running GraphStorm on each host.
	ContainerName string `json:"container-name"`
	// Workdir is the working directory inside the container.
	Workdir string `json:"workdir"`
	// RunCommand is the default command for distributed runs.
	RunCommand string `json:"run-command"`
	// CommandTimeout is the maximum duration for one distributed run.
	CommandTimeout       time.Duration `json:"command-timeout"`
	CommandTimeoutString string        `json:"command-timeout-string" read-only:"true"`

	// QPS is the number of host commands to issue per second.
	QPS float32 `json:"qps"`
	// Burst is the maximum burst of host commands.
	Burst int32 `json:"burst"`

	// FetchLogs is true to save per-host command outputs under "LogsDir".
	FetchLogs bool `json:"fetch-logs"`
	// LogsDir is set to specify the target directory to store all remote log files.
	// If empty, it stores in the same directory as "ConfigPath".
	LogsDir string `json:"logs-dir,omitempty"`

	// ExpectedMetric is the validation metric parsed from the leader output.
	ExpectedMetric string `json:"expected-metric"`
	// ExpectedScore is the expected best test score.
	// For a higher-is-better metric the gate fails when the best test
	// score falls below "ExpectedScore" minus "ScoreTolerance".
	// Set 0 to disable the score gate.
	ExpectedScore float64 `json:"expected-score"`
	// ScoreTolerance is the allowed slack against "ExpectedScore".
	ScoreTolerance float64 `json:"score-tolerance"`

	// EvalFrequency mirrors the evaluation frequency of the training
	// command, in iterations. 0 means evaluation at epoch end only.
	EvalFrequency int64 `json:"eval-frequency"`
	// EarlyStopBurninRounds is the number of evaluation rounds ignored
	// before early stop checks.
	EarlyStopBurninRounds int32 `json:"early-stop-burnin-rounds"`
	// EarlyStopWindow is the size of the early stop sliding window.
	EarlyStopWindow int32 `json:"early-stop-window"`
	// EarlyStopStrategy is the early stop strategy.
	// Allowed values are "average_increase" and "consecutive_increase".
	EarlyStopStrategy string `json:"early-stop-strategy"`

	// MetricsPublish is true to publish regression results to CloudWatch.
	MetricsPublish bool `json:"metrics-publish"`
	// MetricsNamespace is the CloudWatch metrics namespace.
	MetricsNamespace string `json:"metrics-namespace"`

	// BestValScore is the best validation score observed on the leader host.
	BestValScore float64 `json:"best-val-score" read-only:"true"`
	// BestTestScore is the test score at the best validation round.
	BestTestScore float64 `json:"best-test-score" read-only:"true"`
	// BestIteration is the evaluation round of the best validation score.
	BestIteration int64 `json:"best-iteration" read-only:"true"`

	TimeFrameGenDataset timeutil.TimeFrame `json:"time-frame-gen-dataset" read-only:"true"`
	TimeFramePartition  timeutil.TimeFrame `json:"time-frame-partition" read-only:"true"`
	TimeFrameDistRun    timeutil.TimeFrame `json:"time-frame-dist-run" read-only:"true"`
}

// Instance represents a regression cluster EC2 instance.
type Instance struct {
	InstanceID       string    `json:"instance-id,omitempty"`
	InstanceType     string    `json:"instance-type,omitempty"`
	AvailabilityZone string    `json:"availability-zone,omitempty"`
	PrivateIP        string    `json:"private-ip,omitempty"`
	PrivateDNSName   string    `json:"private-dns-name,omitempty"`
	PublicIP         string    `json:"public-ip,omitempty"`
	PublicDNSName    string    `json:"public-dns-name,omitempty"`
	StateName        string    `json:"state-name,omitempty"`
	LaunchTime       time.Time `json:"launch-time,omitempty"`
}

// ConvertInstance converts "aws ec2 describe-instances" to "gsconfig.Instance".
func ConvertInstance(iv aws_ec2_v2_types.Instance) (instance Instance) {
	instance = Instance{
		InstanceID:     aws_v2.ToString(iv.InstanceId),
		InstanceType:   fmt.Sprint(iv.InstanceType),
		PrivateIP:      aws_v2.ToString(iv.PrivateIpAddress),
		PrivateDNSName: aws_v2.ToString(iv.PrivateDnsName),
		PublicIP:       aws_v2.ToString(iv.PublicIpAddress),
		PublicDNSName:  aws_v2.ToString(iv.PublicDnsName),
		LaunchTime:     aws_v2.ToTime(iv.LaunchTime),
	}
	if iv.Placement != nil {
		instance.AvailabilityZone = aws_v2.ToString(iv.Placement.AvailabilityZone)
	}
	if iv.State != nil {
		instance.StateName = fmt.Sprint(iv.State.Name)
	}
	return instance
}

func (c Config) Colorize(input string) string {
	colorize := colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: !c.LogColor,
		Reset:   true,
	}
	return colorize.Color(input)
}

// Status is the status.
type Status struct {
	Time   time.Time `json:"time"`
	Status string    `json:"status"`
}

// RecordStatus records the current test phase.
func (cfg *Config) RecordStatus(status string) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	cfg.StatusCurrent = status

	sv := Status{Time: time.Now(), Status: status}
	n := len(cfg.Status)
	if n == 0 {
		cfg.Status = []Status{sv}
		cfg.unsafeSync()
		return
	}

	copied := make([]Status, n+1)
	copy(copied[1:], cfg.Status)
	copied[0] = sv
	cfg.Status = copied
	cfg.unsafeSync()
}

// Load loads configuration from YAML.
//
// Example usage:
//
//  import "github.com/aws/graphstorm-tester/gsconfig"
//  cfg := gsconfig.Load("test.yaml")
//  err := cfg.ValidateAndSetDefaults()
//
// Do not set default values in this function.
// "ValidateAndSetDefaults" must be called separately,
// to prevent overwriting previous data when loaded from disks.
func Load(p string) (cfg *Config, err error) {
	var d []byte
	d, err = os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	cfg = new(Config)
	if err = yaml.Unmarshal(d, cfg, yaml.DisallowUnknownFields); err != nil {
		return nil, err
	}

	cfg.mu = new(sync.RWMutex)
	if cfg.ConfigPath != p {
		cfg.ConfigPath = p
	}
	var ap string
	ap, err = filepath.Abs(p)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = ap
	cfg.unsafeSync()

	return cfg, nil
}

// Sync persists current configuration and states to disk.
func (cfg *Config) Sync() (err error) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	return cfg.unsafeSync()
}

func (cfg *Config) unsafeSync() (err error) {
	var p string
	if cfg.ConfigPath != "" && !filepath.IsAbs(cfg.ConfigPath) {
		p, err = filepath.Abs(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to 'filepath.Abs(%s)' %v", cfg.ConfigPath, err)
		}
		cfg.ConfigPath = p
	}
	var d []byte
	d, err = yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to 'yaml.Marshal' %v", err)
	}

	err = os.WriteFile(cfg.ConfigPath, d, 0600)
	if err != nil {
		return fmt.Errorf("failed to write file %q (%v)", cfg.ConfigPath, err)
	}
	if cfg.LaunchCommandsOutputPath != "" {
		err = os.WriteFile(cfg.LaunchCommandsOutputPath, []byte(cmdTop+cfg.unsafeLaunchCommands()+cfg.unsafeSSHCommands()), 0600)
		if err != nil {
			return fmt.Errorf("failed to write file %q (%v)", cfg.LaunchCommandsOutputPath, err)
		}
	}

	return nil
}

const cmdTop = `#!/bin/bash
set -e
set -x

`
