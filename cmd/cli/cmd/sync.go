package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger a mailbox synchronization",
	Long:  `Ask the server to synchronize its configured mail accounts now.`,
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	result, err := client.TriggerSync()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	formatter.PrintSuccess(fmt.Sprintf("Sync complete: %d new, %d already known, %d failed",
		result.Processed, result.Skipped, result.Failed))
	if len(result.AccountErrors) > 0 {
		formatter.PrintInfo("Account errors: " + strings.Join(result.AccountErrors, "; "))
	}

	return nil
}
