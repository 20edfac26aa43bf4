package cmd

import (
	"github.com/spf13/cobra"
)

var (
	listState       string
	listInteractive bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	Long:    `List CRM projects, optionally filtered by lifecycle state.`,
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "Filter by lifecycle state (requested, scoped, ...)")
	listCmd.Flags().BoolVarP(&listInteractive, "interactive", "i", false, "Browse projects in an interactive table")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	projects, err := client.GetProjects(listState)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if listInteractive {
		return runInteractiveTable(projects, client, formatter, config)
	}

	return formatter.PrintProjects(projects)
}
