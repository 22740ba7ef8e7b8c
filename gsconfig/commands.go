package gsconfig

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/kballard/go-shellquote"
)

const (
	launchTrainScript = "launch_train.py"
	launchInferScript = "launch_infer.py"
)

// TrainScriptPath returns the SageMaker training launch script path.
func (cfg *Config) TrainScriptPath() string {
	return filepath.Join(cfg.Python.SageMakerDir, launchTrainScript)
}

// InferScriptPath returns the SageMaker inference launch script path.
func (cfg *Config) InferScriptPath() string {
	return filepath.Join(cfg.Python.SageMakerDir, launchInferScript)
}

// TrainArgs returns the arguments passed to the training launch script.
// The flag order is fixed so generated commands are reproducible.
func (cfg *Config) TrainArgs() []string {
	return []string{
		"--ecr-repo", cfg.ECR.RepoName,
		"--account", cfg.ECR.RepoAccountID,
		"--region", cfg.Region,
		"--role", cfg.Role.ARN,
		"--graph-name", cfg.Train.GraphName,
		"--graph-data-s3", cfg.Train.GraphDataS3,
		"--task-type", cfg.Train.TaskType,
		"--model-artifact-s3", cfg.Train.ModelArtifactS3,
		"--train-yaml-s3", cfg.Train.TrainYamlS3,
		"--train-yaml-name", cfg.Train.TrainYamlName,
		"--instance-count", fmt.Sprintf("%d", cfg.Train.InstanceCount),
		"--instance-type", cfg.Train.InstanceType,
		"--backend", cfg.Train.Backend,
		"--batch-size", fmt.Sprintf("%d", cfg.Train.BatchSize),
		"--n-layers", fmt.Sprintf("%d", cfg.Train.NLayers),
		"--n-hidden", fmt.Sprintf("%d", cfg.Train.NHidden),
	}
}

// InferArgs returns the arguments passed to the inference launch script.
func (cfg *Config) InferArgs() []string {
	return []string{
		"--ecr-repo", cfg.ECR.RepoName,
		"--account", cfg.ECR.RepoAccountID,
		"--region", cfg.Region,
		"--role", cfg.Role.ARN,
		"--graph-name", cfg.Infer.GraphName,
		"--graph-data-s3", cfg.Infer.GraphDataS3,
		"--task-type", cfg.Infer.TaskType,
		"--model-artifact-s3", cfg.Infer.ModelArtifactS3,
		"--model-checkpoint", cfg.Infer.ModelCheckpoint,
		"--infer-yaml-s3", cfg.Infer.InferYamlS3,
		"--infer-yaml-name", cfg.Infer.InferYamlName,
		"--emb-s3-output", cfg.Infer.EmbS3Output,
		"--instance-count", fmt.Sprintf("%d", cfg.Infer.InstanceCount),
		"--instance-type", cfg.Infer.InstanceType,
		"--backend", cfg.Infer.Backend,
		"--batch-size", fmt.Sprintf("%d", cfg.Infer.BatchSize),
		"--n-layers", fmt.Sprintf("%d", cfg.Infer.NLayers),
		"--n-hidden", fmt.Sprintf("%d", cfg.Infer.NHidden),
	}
}

// GenDatasetArgs returns the arguments passed to the dataset builder script.
func (cfg *Config) GenDatasetArgs() []string {
	return []string{
		"--savepath", cfg.Regression.SavePath,
	}
}

// PartitionArgs returns the arguments passed to the graph partition script.
// The partition tools use snake_case flags.
func (cfg *Config) PartitionArgs() []string {
	args := []string{
		"--dataset", cfg.Regression.DatasetName,
		"--input_folder", cfg.Regression.SavePath,
		"--num_parts", fmt.Sprintf("%d", cfg.Regression.PartitionCount),
		"--num_trainers_per_machine", fmt.Sprintf("%d", cfg.Regression.TrainersPerMachine),
		"--predict_ntype", cfg.Regression.PredictNodeType,
		"--nlabel_field", cfg.Regression.PredictNodeType + ":" + cfg.Regression.LabelField,
		"--part_method", cfg.Regression.PartMethod,
	}
	if cfg.Regression.BalanceTrain {
		args = append(args, "--balance_train")
	}
	if cfg.Regression.BalanceEdges {
		args = append(args, "--balance_edges")
	}
	return append(args, "--output", cfg.Regression.OutputPath)
}

// TrainCommand returns the shell command that launches the training job.
func (cfg *Config) TrainCommand() string {
	return cfg.composeCommand(cfg.TrainScriptPath(), cfg.TrainArgs())
}

// InferCommand returns the shell command that launches the inference job.
func (cfg *Config) InferCommand() string {
	return cfg.composeCommand(cfg.InferScriptPath(), cfg.InferArgs())
}

// GenDatasetCommand returns the shell command that generates the dataset.
func (cfg *Config) GenDatasetCommand() string {
	return cfg.composeCommand(cfg.Regression.GenDatasetScript, cfg.GenDatasetArgs())
}

// PartitionCommand returns the shell command that partitions the graph.
func (cfg *Config) PartitionCommand() string {
	return cfg.composeCommand(cfg.Regression.PartitionScript, cfg.PartitionArgs())
}

func (cfg *Config) composeCommand(script string, args []string) string {
	ss := []string{"PYTHONPATH=" + cfg.Python.PythonPath, cfg.Python.Exec, script}
	ss = append(ss, args...)
	return shellquote.Join(ss...)
}

// DistRunCommand returns the command run on every regression cluster host.
// The command runs inside the GraphStorm container with PYTHONPATH set.
// If "command" is empty, "Regression.RunCommand" is used.
func (cfg *Config) DistRunCommand(command string) string {
	if command == "" {
		command = cfg.Regression.RunCommand
	}
	inner := fmt.Sprintf("cd %s && PYTHONPATH=%s %s", cfg.Regression.Workdir, cfg.Python.PythonPath, command)
	return fmt.Sprintf("docker exec %s /bin/bash -c %s", cfg.Regression.ContainerName, shellquote.Join(inner))
}

// LaunchCommands returns the generated launch commands.
func (cfg *Config) LaunchCommands() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.unsafeLaunchCommands()
}

func (cfg *Config) unsafeLaunchCommands() (s string) {
	if cfg.ECR == nil || cfg.Role == nil || cfg.Python == nil {
		return ""
	}

	buf := bytes.NewBuffer(nil)
	buf.WriteByte('\n')

	if cfg.Train != nil && cfg.Train.Enable {
		buf.WriteString("# launch SageMaker training job\n")
		buf.WriteString(cfg.TrainCommand())
		buf.WriteString("\n\n")
	}
	if cfg.Infer != nil && cfg.Infer.Enable {
		buf.WriteString("# launch SageMaker inference job\n")
		buf.WriteString(cfg.InferCommand())
		buf.WriteString("\n\n")
	}
	if cfg.Regression != nil && cfg.Regression.Enable {
		buf.WriteString("# generate dataset\n")
		buf.WriteString(cfg.GenDatasetCommand())
		buf.WriteString("\n\n")
		buf.WriteString("# partition graph\n")
		buf.WriteString(cfg.PartitionCommand())
		buf.WriteString("\n\n")
		buf.WriteString("# distributed run on every cluster host\n")
		buf.WriteString(cfg.DistRunCommand(""))
		buf.WriteString("\n\n")
	}
	return buf.String()
}

// SSHCommands returns the SSH commands for the regression cluster hosts.
func (cfg *Config) SSHCommands() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.unsafeSSHCommands()
}

func (cfg *Config) unsafeSSHCommands() (s string) {
	if cfg.Regression == nil || len(cfg.Regression.Hosts) == 0 {
		return ""
	}

	buf := bytes.NewBuffer(nil)
	buf.WriteByte('\n')
	fmt.Fprintf(buf, `# change SSH key permission
chmod 400 %s
`, cfg.Regression.SSHKeyPath)

	for rank, cur := range cfg.Regression.Hosts {
		addr := cur.PublicDNSName
		if addr == "" {
			addr = cur.PrivateIP
		}
		fmt.Fprintf(buf, `# SSH into rank %d (instance ID %q, public IP %q, private IP %q)
ssh -o "StrictHostKeyChecking no" -i %s %s@%s
`,
			rank, cur.InstanceID, cur.PublicIP, cur.PrivateIP,
			cfg.Regression.SSHKeyPath, cfg.Regression.SSHUser, addr,
		)
	}
	return buf.String()
}
