package regression

import (
	"fmt"
	"os"

	"github.com/aws/graphstorm-tester/gsconfig"
	"github.com/aws/graphstorm-tester/internal/regression"
	"github.com/aws/graphstorm-tester/pkg/fileutil"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func newRun() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full GraphStorm regression test",
		Long:  "Configuration values are overwritten by environment variables.",
		Run:   runFunc,
	}
}

var command string

func newDistRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dist-run",
		Short: "Run a command on every regression cluster host",
		Long:  "Configuration values are overwritten by environment variables.",
		Run:   distRunFunc,
	}
	cmd.PersistentFlags().StringVarP(&command, "command", "c", "", "command to run on every cluster host; empty to use the configured run command")
	return cmd
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
			"Yes, let's run!",
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

func runFunc(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if !promptContinue("run the regression test") {
		return
	}

	ts, err := regression.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create regression tester %v\n", err)
		os.Exit(1)
	}

	if err = ts.Run(); err != nil {
		fmt.Printf("\n*********************************\n")
		fmt.Printf("'graphstorm-tester regression run' fail %v\n", err)
		os.Exit(1)
	}

	fmt.Println(cfg.SSHCommands())

	fmt.Printf("\n*********************************\n")
	fmt.Printf("'graphstorm-tester regression run' success\n")
}

func distRunFunc(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if !promptContinue("run the command on every cluster host") {
		return
	}

	ts, err := regression.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create regression tester %v\n", err)
		os.Exit(1)
	}

	if err = ts.DistRun(command); err != nil {
		fmt.Printf("\n*********************************\n")
		fmt.Printf("'graphstorm-tester regression dist-run' fail %v\n", err)
		os.Exit(1)
	}

	fmt.Println(cfg.SSHCommands())

	fmt.Printf("\n*********************************\n")
	fmt.Printf("'graphstorm-tester regression dist-run' success\n")
}
