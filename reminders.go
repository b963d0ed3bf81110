package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRemindersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reminders",
		Short: "List open reminders",
		Long: `List open reminders from visible reminder lists, ordered by priority and
then due time. Completed reminders are never shown.`,
		RunE: runReminders,
	}
}

func runReminders(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if err := cc.Engine.EnsureAuthorized(ctx); err != nil {
		return err
	}

	if err := cc.Engine.Reload(ctx); err != nil {
		return fmt.Errorf("loading reminders: %w", err)
	}

	rems := cc.Engine.Reminders()

	if len(rems) == 0 {
		fmt.Fprintln(os.Stdout, "(no open reminders)")
		return nil
	}

	loc := cc.Window.Location()

	for _, r := range rems {
		fmt.Fprintf(os.Stdout, "%s %-30s %s\n", priorityMarker(r.Priority), r.Title, formatDue(r.Due, loc))
	}

	return nil
}
