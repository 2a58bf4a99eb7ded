package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wisp-notify/wisp/internal/core"
	"github.com/wisp-notify/wisp/internal/store"
)

var clearCmd = &cobra.Command{
	Use:   "clear by (name|class|id) <value>",
	Short: "Clear active popups",
	Long: `Clear active popups matching a name, class, or record id.

Each match is asked to shut down with SIGTERM; a popup that does not
remove its own record within a short grace period has its record
force-removed. Matching nothing is not an error.

Examples:
  # Clear the popup tagged --name timer
  wisp clear by name timer

  # Clear every popup in a class
  wisp clear by class reminder

  # Clear one popup by its record id
  wisp clear by id 01JC5R8KQY3F7W2M9XVGT4BNZD`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 3 || args[0] != "by" {
			return fmt.Errorf("usage: wisp clear by (name|class|id) <value>")
		}
		switch args[1] {
		case "name", "class", "id":
			return nil
		}
		return fmt.Errorf("unknown selector %q (name, class, id)", args[1])
	},
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	sel := store.Selector{Value: args[2]}
	switch args[1] {
	case "name":
		sel.By = store.ByName
	case "class":
		sel.By = store.ByClass
	case "id":
		sel.By = store.ByID
	}

	results, err := core.NewClearer(stateStore, logger).Clear(sel)
	if err != nil {
		return fmt.Errorf("failed to clear: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching popups")
		return nil
	}

	failed := 0
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to clear %s: %v\n", res.Record.ID, res.Err)
		case res.Forced:
			fmt.Printf("cleared %s (forced)\n", res.Record.ID)
		default:
			fmt.Printf("cleared %s\n", res.Record.ID)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d popups could not be cleared", failed, len(results))
	}
	return nil
}
