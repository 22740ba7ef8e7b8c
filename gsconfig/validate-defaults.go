package gsconfig

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/graphstorm-tester/pkg/eval"
	"github.com/aws/graphstorm-tester/pkg/fileutil"
	"github.com/aws/graphstorm-tester/pkg/logutil"
	"github.com/aws/graphstorm-tester/pkg/randutil"
	"github.com/aws/graphstorm-tester/pkg/terminal"
	"github.com/aws/aws-sdk-go/aws/endpoints"
)

const (
	// DefaultQPS is the default number of distributed run commands issued per second.
	DefaultQPS float32 = 5
	// DefaultBurst is the default burst of distributed run commands.
	DefaultBurst int32 = 10

	// DefaultRunCommand is an example training command for distributed
	// regression runs, overridden per regression suite.
	DefaultRunCommand = "python3 training_scripts/m5gnn_lp/m5gnn_pure_gnn_lp.py --cf /regression-tests-data/mag_lp.yaml"
)

// NewDefault returns a default configuration.
//  - empty string creates a non-nil object for pointer-type field
//  - omitting an entire field returns nil value
//  - make sure to check both
func NewDefault() *Config {
	name := fmt.Sprintf("graphstorm-%s-%s", getTS()[:10], randutil.String(12))
	if v := os.Getenv(GRAPHSTORM_TESTER_PREFIX + "NAME"); v != "" {
		name = v
	}
	return &Config{
		mu: new(sync.RWMutex),

		Name:      name,
		Partition: endpoints.AwsPartitionID,
		Region:    endpoints.UsWest2RegionID,

		// to be auto-generated
		ConfigPath:               "",
		LaunchCommandsOutputPath: "",

		LogColor: true,
		LogLevel: logutil.DefaultLogLevel,
		// default, stderr, stdout, or file name
		// log file named with test run name will be added automatically
		LogOutputs: []string{"stderr"},

		S3:     getDefaultS3(),
		ECR:    getDefaultECR(),
		Role:   &Role{},
		Python: getDefaultPython(),

		Train:      getDefaultTrain(),
		Infer:      getDefaultInfer(),
		Regression: getDefaultRegression(),
	}
}

func getDefaultS3() *S3 {
	return &S3{
		BucketCreate:                  true,
		BucketName:                    "",
		BucketLifecycleExpirationDays: 0,
	}
}

func getDefaultECR() *ECR {
	return &ECR{
		RepoAccountID: "",
		RepoRegion:    "",
		RepoName:      "graphstorm",
		RepoImageTag:  "latest",
	}
}

func getDefaultPython() *Python {
	return &Python{
		Exec:           "python3",
		GraphStormPath: DefaultGraphStormPath,
	}
}

func getDefaultTrain() *Train {
	return &Train{
		Enable:            false,
		GraphName:         "mag",
		TaskType:          TaskTypeLinkPrediction,
		InstanceCount:     2,
		InstanceType:      DefaultTrainInstanceType,
		Backend:           BackendGloo,
		BatchSize:         128,
		NLayers:           1,
		NHidden:           128,
		WaitForCompletion: true,
		WaitTimeout:       3 * time.Hour,
		PollInterval:      30 * time.Second,
	}
}

func getDefaultInfer() *Infer {
	return &Infer{
		Enable:            false,
		GraphName:         "mag",
		TaskType:          TaskTypeNodeClassification,
		InstanceCount:     1,
		InstanceType:      DefaultInferInstanceType,
		Backend:           BackendGloo,
		BatchSize:         128,
		NLayers:           1,
		NHidden:           128,
		WaitForCompletion: true,
		WaitTimeout:       time.Hour,
		PollInterval:      30 * time.Second,
	}
}

func getDefaultRegression() *Regression {
	return &Regression{
		Enable:             false,
		DataRoot:           DefaultDataRoot,
		DatasetName:        "mag",
		PartitionCount:     4,
		TrainersPerMachine: 8,
		PredictNodeType:    "paper",
		LabelField:         "label",
		PartMethod:         PartMethodMetis,
		BalanceTrain:       true,
		BalanceEdges:       true,
		SSHUser:            "ec2-user", // for AL2
		ContainerName:      "regression-test",
		Workdir:            DefaultGraphStormPath,
		RunCommand:         DefaultRunCommand,
		CommandTimeout:     6 * time.Hour,
		QPS:                DefaultQPS,
		Burst:              DefaultBurst,
		FetchLogs:          true,
		ExpectedMetric:     "accuracy",
		ExpectedScore:      0,
		ScoreTolerance:     0.02,
		EarlyStopWindow:    3,
		EarlyStopStrategy:  eval.EarlyStopConsecutiveIncrease,
		MetricsPublish:     false,
		MetricsNamespace:   "graphstorm-tester",
	}
}

// ValidateAndSetDefaults returns an error for invalid configurations.
// And updates empty fields with default values.
// At the end, it writes populated YAML to graphstorm-tester config path.
func (cfg *Config) ValidateAndSetDefaults() error {
	if cfg.mu == nil {
		cfg.mu = new(sync.RWMutex)
	}
	cfg.mu.Lock()
	defer func() {
		cfg.unsafeSync()
		cfg.mu.Unlock()
	}()

	if err := cfg.validateConfig(); err != nil {
		return fmt.Errorf("validateConfig failed [%v]", err)
	}
	if err := cfg.validateS3(); err != nil {
		return fmt.Errorf("validateS3 failed [%v]", err)
	}
	if err := cfg.validateECR(); err != nil {
		return fmt.Errorf("validateECR failed [%v]", err)
	}
	if err := cfg.validateRole(); err != nil {
		return fmt.Errorf("validateRole failed [%v]", err)
	}
	if err := cfg.validatePython(); err != nil {
		return fmt.Errorf("validatePython failed [%v]", err)
	}
	if err := cfg.validateTrain(); err != nil {
		return fmt.Errorf("validateTrain failed [%v]", err)
	}
	if err := cfg.validateInfer(); err != nil {
		return fmt.Errorf("validateInfer failed [%v]", err)
	}
	if err := cfg.validateRegression(); err != nil {
		return fmt.Errorf("validateRegression failed [%v]", err)
	}

	return nil
}

func (cfg *Config) validateConfig() error {
	if len(cfg.Name) == 0 {
		return errors.New("Name is empty")
	}
	if cfg.Name != strings.ToLower(cfg.Name) {
		return fmt.Errorf("Name %q must be in lower-case", cfg.Name)
	}

	var partition endpoints.Partition
	switch cfg.Partition {
	case endpoints.AwsPartitionID:
		partition = endpoints.AwsPartition()
	case endpoints.AwsCnPartitionID:
		partition = endpoints.AwsCnPartition()
	case endpoints.AwsUsGovPartitionID:
		partition = endpoints.AwsUsGovPartition()
	case endpoints.AwsIsoPartitionID:
		partition = endpoints.AwsIsoPartition()
	case endpoints.AwsIsoBPartitionID:
		partition = endpoints.AwsIsoBPartition()
	default:
		return fmt.Errorf("unknown partition %q", cfg.Partition)
	}
	regions := partition.Regions()
	if _, ok := regions[cfg.Region]; !ok {
		return fmt.Errorf("region %q for partition %q not found in %+v", cfg.Region, cfg.Partition, regions)
	}

	if cfg.LogColorOverride == "" {
		_, cerr := terminal.IsColor()
		if cfg.LogColor && cerr != nil {
			cfg.LogColor = false
		}
	} else {
		// non-empty override always wins
		ov, perr := strconv.ParseBool(cfg.LogColorOverride)
		if perr != nil {
			return fmt.Errorf("failed to parse LogColorOverride %q (%v)", cfg.LogColorOverride, perr)
		}
		cfg.LogColor = ov
	}
	if len(cfg.LogOutputs) == 0 {
		return errors.New("LogOutputs is empty")
	}

	if cfg.ConfigPath == "" {
		rootDir, err := os.Getwd()
		if err != nil {
			rootDir = filepath.Join(os.TempDir(), cfg.Name)
			if err := os.MkdirAll(rootDir, 0700); err != nil {
				return err
			}
		}
		cfg.ConfigPath = filepath.Join(rootDir, cfg.Name+".yaml")
		var p string
		p, err = filepath.Abs(cfg.ConfigPath)
		if err != nil {
			panic(err)
		}
		cfg.ConfigPath = p
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ConfigPath), 0700); err != nil {
		return err
	}
	if err := fileutil.IsDirWriteable(filepath.Dir(cfg.ConfigPath)); err != nil {
		return err
	}

	if len(cfg.LogOutputs) == 1 && (cfg.LogOutputs[0] == "stderr" || cfg.LogOutputs[0] == "stdout") {
		cfg.LogOutputs = append(cfg.LogOutputs, cfg.ConfigPath+".log")
	}

	if cfg.LaunchCommandsOutputPath == "" {
		cfg.LaunchCommandsOutputPath = strings.ReplaceAll(cfg.ConfigPath, ".yaml", "") + ".launch.sh"
	}
	if filepath.Ext(cfg.LaunchCommandsOutputPath) != ".sh" {
		cfg.LaunchCommandsOutputPath = cfg.LaunchCommandsOutputPath + ".sh"
	}
	if err := fileutil.IsDirWriteable(filepath.Dir(cfg.LaunchCommandsOutputPath)); err != nil {
		return err
	}

	return nil
}

func (cfg *Config) validateS3() error {
	if cfg.S3 == nil {
		cfg.S3 = getDefaultS3()
	}

	switch cfg.S3.BucketCreate {
	case true: // need create one, or already created
		if cfg.S3.BucketName == "" {
			cfg.S3.BucketName = cfg.Name + "-s3-bucket"
		}
		if cfg.S3.BucketLifecycleExpirationDays > 0 && cfg.S3.BucketLifecycleExpirationDays < 3 {
			cfg.S3.BucketLifecycleExpirationDays = 3
		}

	case false: // use existing one
		if cfg.S3.BucketName == "" {
			return errors.New("empty S3.BucketName")
		}
	}
	if cfg.S3.Dir == "" {
		cfg.S3.Dir = cfg.Name
	}

	return nil
}

func (cfg *Config) validateECR() error {
	if cfg.ECR == nil {
		cfg.ECR = getDefaultECR()
	}

	if cfg.ECR.RepoRegion == "" {
		cfg.ECR.RepoRegion = cfg.Region
	}
	if cfg.ECR.RepoName == "" {
		return errors.New("empty ECR.RepoName")
	}
	if cfg.ECR.RepoImageTag == "" {
		cfg.ECR.RepoImageTag = "latest"
	}
	// "ECR.RepoAccountID" is filled with the caller account ID
	// when the launcher creates an AWS session

	return nil
}

func (cfg *Config) validateRole() error {
	if cfg.Role == nil {
		cfg.Role = &Role{}
	}

	needRole := (cfg.Train != nil && cfg.Train.Enable) || (cfg.Infer != nil && cfg.Infer.Enable)
	if needRole && cfg.Role.ARN == "" {
		return errors.New("Role.ARN is empty; SageMaker jobs require an execution role")
	}
	if cfg.Role.ARN != "" && cfg.Role.Name == "" {
		cfg.Role.Name = getNameFromARN(cfg.Role.ARN)
	}

	return nil
}

func (cfg *Config) validatePython() error {
	if cfg.Python == nil {
		cfg.Python = getDefaultPython()
	}

	if cfg.Python.Exec == "" {
		cfg.Python.Exec = "python3"
	}
	if cfg.Python.GraphStormPath == "" {
		cfg.Python.GraphStormPath = DefaultGraphStormPath
	}
	if cfg.Python.PythonPath == "" {
		cfg.Python.PythonPath = filepath.Join(cfg.Python.GraphStormPath, "python")
	}
	if cfg.Python.SageMakerDir == "" {
		cfg.Python.SageMakerDir = filepath.Join(cfg.Python.GraphStormPath, "sagemaker", "launch")
	}

	return nil
}

func (cfg *Config) validateTrain() error {
	if cfg.Train == nil {
		cfg.Train = getDefaultTrain()
	}
	if !cfg.Train.Enable {
		return nil
	}

	cfg.Train.GraphName = strings.ReplaceAll(cfg.Train.GraphName, "GetRef.Name", cfg.Name)
	if cfg.Train.GraphName == "" {
		return errors.New("Train.GraphName is empty")
	}
	switch cfg.Train.TaskType {
	case TaskTypeLinkPrediction,
		TaskTypeNodeClassification,
		TaskTypeNodeRegression,
		TaskTypeEdgeClassification,
		TaskTypeEdgeRegression:
	default:
		return fmt.Errorf("unknown Train.TaskType %q", cfg.Train.TaskType)
	}
	switch cfg.Train.Backend {
	case BackendGloo, BackendNCCL:
	default:
		return fmt.Errorf("unknown Train.Backend %q", cfg.Train.Backend)
	}

	if !strings.HasPrefix(cfg.Train.GraphDataS3, "s3://") {
		return fmt.Errorf("Train.GraphDataS3 %q must start with 's3://'", cfg.Train.GraphDataS3)
	}
	if !strings.HasPrefix(cfg.Train.ModelArtifactS3, "s3://") {
		return fmt.Errorf("Train.ModelArtifactS3 %q must start with 's3://'", cfg.Train.ModelArtifactS3)
	}
	if !strings.HasPrefix(cfg.Train.TrainYamlS3, "s3://") {
		return fmt.Errorf("Train.TrainYamlS3 %q must start with 's3://'", cfg.Train.TrainYamlS3)
	}
	if cfg.Train.TrainYamlName == "" {
		cfg.Train.TrainYamlName = path.Base(cfg.Train.TrainYamlS3)
	}
	if cfg.Train.LocalYamlPath != "" && !fileutil.Exist(cfg.Train.LocalYamlPath) {
		return fmt.Errorf("Train.LocalYamlPath %q does not exist", cfg.Train.LocalYamlPath)
	}

	if cfg.Train.InstanceCount == 0 {
		cfg.Train.InstanceCount = 2
	}
	if cfg.Train.InstanceType == "" {
		cfg.Train.InstanceType = DefaultTrainInstanceType
	}
	if cfg.Train.BatchSize == 0 {
		cfg.Train.BatchSize = 128
	}
	if cfg.Train.NLayers == 0 {
		cfg.Train.NLayers = 1
	}
	if cfg.Train.NHidden == 0 {
		cfg.Train.NHidden = 128
	}

	if cfg.Train.WaitTimeout == time.Duration(0) {
		cfg.Train.WaitTimeout = 3 * time.Hour
	}
	cfg.Train.WaitTimeoutString = cfg.Train.WaitTimeout.String()
	if cfg.Train.PollInterval == time.Duration(0) {
		cfg.Train.PollInterval = 30 * time.Second
	}
	cfg.Train.PollIntervalString = cfg.Train.PollInterval.String()

	return nil
}

func (cfg *Config) validateInfer() error {
	if cfg.Infer == nil {
		cfg.Infer = getDefaultInfer()
	}
	if !cfg.Infer.Enable {
		return nil
	}

	cfg.Infer.GraphName = strings.ReplaceAll(cfg.Infer.GraphName, "GetRef.Name", cfg.Name)
	if cfg.Infer.GraphName == "" {
		return errors.New("Infer.GraphName is empty")
	}
	switch cfg.Infer.TaskType {
	case TaskTypeLinkPrediction,
		TaskTypeNodeClassification,
		TaskTypeNodeRegression,
		TaskTypeEdgeClassification,
		TaskTypeEdgeRegression:
	default:
		return fmt.Errorf("unknown Infer.TaskType %q", cfg.Infer.TaskType)
	}
	switch cfg.Infer.Backend {
	case BackendGloo, BackendNCCL:
	default:
		return fmt.Errorf("unknown Infer.Backend %q", cfg.Infer.Backend)
	}

	if !strings.HasPrefix(cfg.Infer.GraphDataS3, "s3://") {
		return fmt.Errorf("Infer.GraphDataS3 %q must start with 's3://'", cfg.Infer.GraphDataS3)
	}
	if !strings.HasPrefix(cfg.Infer.ModelArtifactS3, "s3://") {
		return fmt.Errorf("Infer.ModelArtifactS3 %q must start with 's3://'", cfg.Infer.ModelArtifactS3)
	}
	if cfg.Infer.ModelCheckpoint == "" {
		return errors.New("Infer.ModelCheckpoint is empty")
	}
	if !strings.HasPrefix(cfg.Infer.InferYamlS3, "s3://") {
		return fmt.Errorf("Infer.InferYamlS3 %q must start with 's3://'", cfg.Infer.InferYamlS3)
	}
	if cfg.Infer.InferYamlName == "" {
		cfg.Infer.InferYamlName = path.Base(cfg.Infer.InferYamlS3)
	}
	if cfg.Infer.LocalYamlPath != "" && !fileutil.Exist(cfg.Infer.LocalYamlPath) {
		return fmt.Errorf("Infer.LocalYamlPath %q does not exist", cfg.Infer.LocalYamlPath)
	}
	if !strings.HasPrefix(cfg.Infer.EmbS3Output, "s3://") {
		return fmt.Errorf("Infer.EmbS3Output %q must start with 's3://'", cfg.Infer.EmbS3Output)
	}

	if cfg.Infer.InstanceCount == 0 {
		cfg.Infer.InstanceCount = 1
	}
	if cfg.Infer.InstanceType == "" {
		cfg.Infer.InstanceType = DefaultInferInstanceType
	}
	if cfg.Infer.BatchSize == 0 {
		cfg.Infer.BatchSize = 128
	}
	if cfg.Infer.NLayers == 0 {
		cfg.Infer.NLayers = 1
	}
	if cfg.Infer.NHidden == 0 {
		cfg.Infer.NHidden = 128
	}

	if cfg.Infer.WaitTimeout == time.Duration(0) {
		cfg.Infer.WaitTimeout = time.Hour
	}
	cfg.Infer.WaitTimeoutString = cfg.Infer.WaitTimeout.String()
	if cfg.Infer.PollInterval == time.Duration(0) {
		cfg.Infer.PollInterval = 30 * time.Second
	}
	cfg.Infer.PollIntervalString = cfg.Infer.PollInterval.String()

	return nil
}

func (cfg *Config) validateRegression() error {
	if cfg.Regression == nil {
		cfg.Regression = getDefaultRegression()
	}
	if !cfg.Regression.Enable {
		return nil
	}

	if cfg.Regression.DataRoot == "" {
		cfg.Regression.DataRoot = DefaultDataRoot
	}
	cfg.Regression.DatasetName = strings.ReplaceAll(cfg.Regression.DatasetName, "GetRef.Name", cfg.Name)
	if cfg.Regression.DatasetName == "" {
		return errors.New("Regression.DatasetName is empty")
	}
	if cfg.Regression.SavePath == "" {
		cfg.Regression.SavePath = filepath.Join(cfg.Regression.DataRoot, cfg.Regression.DatasetName+"-data")
	}
	if cfg.Regression.OutputPath == "" {
		cfg.Regression.OutputPath = filepath.Join(cfg.Regression.DataRoot, cfg.Regression.DatasetName+"-graph")
	}
	if cfg.Regression.GenDatasetScript == "" {
		cfg.Regression.GenDatasetScript = filepath.Join(cfg.Python.GraphStormPath, "tools", fmt.Sprintf("gen_%s_dataset.py", cfg.Regression.DatasetName))
	}
	if cfg.Regression.PartitionScript == "" {
		cfg.Regression.PartitionScript = filepath.Join(cfg.Python.GraphStormPath, "tools", "partition_graph.py")
	}

	if cfg.Regression.PartitionCount == 0 {
		return errors.New("Regression.PartitionCount must be >0")
	}
	if cfg.Regression.TrainersPerMachine == 0 {
		cfg.Regression.TrainersPerMachine = 8
	}
	switch cfg.Regression.PartMethod {
	case PartMethodMetis, PartMethodRandom:
	default:
		return fmt.Errorf("unknown Regression.PartMethod %q", cfg.Regression.PartMethod)
	}
	if cfg.Regression.PredictNodeType == "" {
		return errors.New("Regression.PredictNodeType is empty")
	}
	if cfg.Regression.LabelField == "" {
		return errors.New("Regression.LabelField is empty")
	}

	if cfg.Regression.IPListPath == "" {
		cfg.Regression.IPListPath = filepath.Join(cfg.Regression.DataRoot, "ip_list.txt")
	}
	if cfg.Regression.ClusterTagKey != "" && cfg.Regression.ClusterTagValue == "" {
		cfg.Regression.ClusterTagValue = cfg.Name
	}
	if cfg.Regression.SSHUser == "" {
		cfg.Regression.SSHUser = "ec2-user"
	}
	if cfg.Regression.SSHKeyPath == "" {
		return errors.New("Regression.SSHKeyPath is empty")
	}

	if cfg.Regression.ContainerName == "" {
		cfg.Regression.ContainerName = "regression-test"
	}
	if cfg.Regression.Workdir == "" {
		cfg.Regression.Workdir = cfg.Python.GraphStormPath
	}
	if cfg.Regression.RunCommand == "" {
		return errors.New("Regression.RunCommand is empty")
	}
	if cfg.Regression.CommandTimeout == time.Duration(0) {
		cfg.Regression.CommandTimeout = 6 * time.Hour
	}
	cfg.Regression.CommandTimeoutString = cfg.Regression.CommandTimeout.String()

	if cfg.Regression.QPS == 0 {
		cfg.Regression.QPS = DefaultQPS
	}
	if cfg.Regression.Burst == 0 {
		cfg.Regression.Burst = DefaultBurst
	}

	if cfg.Regression.LogsDir == "" {
		cfg.Regression.LogsDir = filepath.Join(filepath.Dir(cfg.ConfigPath), cfg.Name+"-logs-remote")
	}

	if cfg.Regression.ExpectedMetric == "" {
		cfg.Regression.ExpectedMetric = "accuracy"
	}
	if err := eval.SupportedMetric(cfg.Regression.ExpectedMetric); err != nil {
		return err
	}
	if cfg.Regression.ScoreTolerance < 0 {
		return fmt.Errorf("Regression.ScoreTolerance %v must be >=0", cfg.Regression.ScoreTolerance)
	}
	if cfg.Regression.EvalFrequency < 0 {
		return fmt.Errorf("Regression.EvalFrequency %d must be >=0", cfg.Regression.EvalFrequency)
	}
	if cfg.Regression.EarlyStopWindow == 0 {
		cfg.Regression.EarlyStopWindow = 3
	}
	switch cfg.Regression.EarlyStopStrategy {
	case "":
		cfg.Regression.EarlyStopStrategy = eval.EarlyStopConsecutiveIncrease
	case eval.EarlyStopAverageIncrease, eval.EarlyStopConsecutiveIncrease:
	default:
		return fmt.Errorf("unknown Regression.EarlyStopStrategy %q", cfg.Regression.EarlyStopStrategy)
	}

	if cfg.Regression.MetricsPublish && cfg.Regression.MetricsNamespace == "" {
		cfg.Regression.MetricsNamespace = "graphstorm-tester"
	}

	return nil
}

// get "sagemaker-role" from "arn:aws:iam::123:role/sagemaker-role"
func getNameFromARN(arn string) string {
	if ss := strings.Split(arn, "/"); len(ss) > 0 {
		arn = ss[len(ss)-1]
	}
	return arn
}

func getTS() string {
	now := time.Now()
	return fmt.Sprintf(
		"%04d%02d%02d%02d%02d",
		now.Year(),
		int(now.Month()),
		now.Day(),
		now.Hour(),
		now.Second(),
	)
}
