// Package regression implements regression test commands.
package regression

import "github.com/spf13/cobra"

var (
	path         string
	enablePrompt bool
)

// NewCommand implements "graphstorm-tester regression" command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:        "regression",
		Short:      "Regression test commands",
		SuggestFor: []string{"regresion", "regress"},
	}
	cmd.PersistentFlags().StringVarP(&path, "path", "p", "", "graphstorm-tester configuration file path")
	cmd.PersistentFlags().BoolVarP(&enablePrompt, "enable-prompt", "e", true, "'true' to enable prompt mode")
	cmd.AddCommand(
		newCreate(),
		newRun(),
		newDistRun(),
	)
	return cmd
}
