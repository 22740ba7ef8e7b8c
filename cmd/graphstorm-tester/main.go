// graphstorm-tester is a set of GraphStorm test commands.
package main

import (
	"fmt"
	"os"

	"github.com/aws/graphstorm-tester/cmd/graphstorm-tester/regression"
	"github.com/aws/graphstorm-tester/cmd/graphstorm-tester/sagemaker"
	"github.com/aws/graphstorm-tester/cmd/graphstorm-tester/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:        "graphstorm-tester",
	Short:      "GraphStorm test CLI",
	SuggestFor: []string{"gstester", "graphstorm-test"},
}

func init() {
	cobra.EnablePrefixMatching = true
	// optional .env carrying GRAPHSTORM_TESTER_* overrides
	godotenv.Load()
}

func init() {
	rootCmd.AddCommand(
		sagemaker.NewCommand(),
		regression.NewCommand(),
		version.NewCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "graphstorm-tester failed %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}
