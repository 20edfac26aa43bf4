package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <project-id>",
	Short: "Show a project",
	Long:  `Show a single project with its state and available transitions.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid project ID: %s", args[0])
	}

	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	project, err := client.GetProject(id)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintProject(project)
}
