package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var messagesCmd = &cobra.Command{
	Use:   "messages <project-id>",
	Short: "Show a project's conversation",
	Long:  `Show the inbound messages recorded for a project, oldest first.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runMessages,
}

func init() {
	rootCmd.AddCommand(messagesCmd)
}

func runMessages(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid project ID: %s", args[0])
	}

	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	messages, err := client.GetProjectMessages(id)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintMessages(messages)
}
