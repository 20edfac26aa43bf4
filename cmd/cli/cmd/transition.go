package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var transitionCmd = &cobra.Command{
	Use:   "transition <project-id> <name>",
	Short: "Fire a lifecycle transition on a project",
	Long: `Fire a lifecycle transition (scope, introduce, sign, start, finish,
drop) on a project. When a message template is bound to the transition, the
templated reply is sent to the project's manager.`,
	Args: cobra.ExactArgs(2),
	RunE: runTransition,
}

func init() {
	rootCmd.AddCommand(transitionCmd)
}

func runTransition(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid project ID: %s", args[0])
	}

	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	result, err := client.ApplyTransition(id, args[1])
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	formatter.PrintSuccess(fmt.Sprintf("Project %d is now %s", result.Project.ID, result.Project.State))
	if result.Dispatched {
		formatter.PrintInfo("Templated reply sent to the project manager")
	} else if result.DispatchWarning != "" {
		formatter.PrintInfo("Reply not sent: " + result.DispatchWarning)
	}

	return nil
}
