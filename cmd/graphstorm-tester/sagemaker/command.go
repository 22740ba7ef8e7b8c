// Package sagemaker implements SageMaker launch commands.
package sagemaker

import "github.com/spf13/cobra"

var (
	path         string
	enablePrompt bool
)

// NewCommand implements "graphstorm-tester sagemaker" command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:        "sagemaker",
		Short:      "SageMaker launch commands",
		SuggestFor: []string{"sagemakr", "sage-maker"},
	}
	cmd.PersistentFlags().StringVarP(&path, "path", "p", "", "graphstorm-tester configuration file path")
	cmd.PersistentFlags().BoolVarP(&enablePrompt, "enable-prompt", "e", true, "'true' to enable prompt mode")
	cmd.AddCommand(
		newCreate(),
		newTrain(),
		newInfer(),
	)
	return cmd
}
