package sagemaker

import (
	"fmt"
	"os"

	"github.com/aws/graphstorm-tester/gsconfig"
	"github.com/aws/graphstorm-tester/internal/launcher"
	"github.com/aws/graphstorm-tester/pkg/fileutil"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func newTrain() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Launch a GraphStorm SageMaker training job",
		Long:  "Configuration values are overwritten by environment variables.",
		Run:   trainFunc,
	}
}

func newInfer() *cobra.Command {
	return &cobra.Command{
		Use:   "infer",
		Short: "Launch a GraphStorm SageMaker inference job",
		Long:  "Configuration values are overwritten by environment variables.",
		Run:   inferFunc,
	}
}

func loadConfig() *gsconfig.Config {
	if !fileutil.Exist(path) {
		fmt.Fprintf(os.Stderr, "cannot find configuration %q\n", path)
		os.Exit(1)
	}

	cfg, err := gsconfig.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration %q (%v)\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("\n*********************************\n")
	fmt.Printf("overwriting config file from environment variables...\n")
	if err = cfg.UpdateFromEnvs(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from environment variables: %v\n", err)
		os.Exit(1)
	}

	if err = cfg.ValidateAndSetDefaults(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate configuration %q (%v)\n", path, err)
		os.Exit(1)
	}

	txt, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read configuration %q (%v)\n", path, err)
		os.Exit(1)
	}
	println()
	fmt.Println(string(txt))
	println()

	return cfg
}

func promptContinue(action string) bool {
	if !enablePrompt {
		return true
	}
	prompt := promptui.Select{
		Label: fmt.Sprintf("Ready to %s, should we continue?", action),
		Items: []string{
			"No, cancel it!",
			"Yes, let's launch!",
		},
	}
	idx, answer, err := prompt.Run()
	if err != nil {
		panic(err)
	}
	if idx != 1 {
		fmt.Printf("cancelled %q [index %d, answer %q]\n", action, idx, answer)
		return false
	}
	return true
}

func trainFunc(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if !promptContinue("launch SageMaker training") {
		return
	}

	ts, err := launcher.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create launcher %v\n", err)
		os.Exit(1)
	}

	if err = ts.Train(); err != nil {
		fmt.Printf("\n*********************************\n")
		fmt.Printf("'graphstorm-tester sagemaker train' fail %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n*********************************\n")
	fmt.Printf("'graphstorm-tester sagemaker train' success\n")
}

func inferFunc(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if !promptContinue("launch SageMaker inference") {
		return
	}

	ts, err := launcher.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create launcher %v\n", err)
		os.Exit(1)
	}

	if err = ts.Infer(); err != nil {
		fmt.Printf("\n*********************************\n")
		fmt.Printf("'graphstorm-tester sagemaker infer' fail %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n*********************************\n")
	fmt.Printf("'graphstorm-tester sagemaker infer' success\n")
}
