package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"daycal/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authorization state, cache statistics, and window bounds",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	stats := cc.Engine.Stats()

	fmt.Fprintf(os.Stdout, "Authorization:  %s\n", authLabel(stats.Authorization))
	fmt.Fprintf(os.Stdout, "Config:         %s\n", cc.CfgPath)
	fmt.Fprintf(os.Stdout, "Store:          %s\n", cc.Cfg.DBPath())
	fmt.Fprintf(os.Stdout, "Time zone:      %s\n", cc.Window.Location())

	if stats.Authorization != store.AuthGranted {
		return nil
	}

	if err := cc.Engine.Reload(ctx); err != nil {
		return fmt.Errorf("loading window: %w", err)
	}

	stats = cc.Engine.Stats()

	now := time.Now().In(cc.Window.Location())
	windowStart, _ := cc.Window.DayInterval(now.AddDate(0, -1, 0))
	_, windowEnd := cc.Window.DayInterval(now.AddDate(0, 2, 0))

	fmt.Fprintf(os.Stdout, "Window:         %s .. %s\n",
		windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"))
	fmt.Fprintf(os.Stdout, "Events:         %d\n", stats.WorkingSetSize)
	fmt.Fprintf(os.Stdout, "Reminders:      %d\n", stats.ReminderCount)
	fmt.Fprintf(os.Stdout, "Cached months:  %d\n", stats.CachedMonths)

	return nil
}

func authLabel(s store.AuthorizationStatus) string {
	switch s {
	case store.AuthGranted:
		return "granted"
	case store.AuthDenied:
		return "denied"
	default:
		return "undetermined"
	}
}
