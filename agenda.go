package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"daycal/internal/store"
)

func newAgendaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agenda [date]",
		Short: "Show the agenda for a day",
		Long: `Show every event overlapping the given day (default today), sorted by
start time. Events from hidden calendars are excluded.

Examples:
  daycal agenda
  daycal agenda 2026-09-01
  daycal agenda --week`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAgenda,
	}

	cmd.Flags().Bool("week", false, "show the whole week containing the date")

	return cmd
}

func runAgenda(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if err := cc.Engine.EnsureAuthorized(ctx); err != nil {
		return err
	}

	loc := cc.Window.Location()

	day := time.Now().In(loc)

	if len(args) > 0 {
		parsed, err := parseDay(args[0], loc)
		if err != nil {
			return err
		}

		day = parsed
	}

	colors, err := calendarColors(ctx, cc)
	if err != nil {
		return err
	}

	week, _ := cmd.Flags().GetBool("week")
	if !week {
		return printAgendaDay(ctx, cc, day, colors)
	}

	weekStart, weekEnd := cc.Window.WeekInterval(day)
	for d := weekStart; d.Before(weekEnd); d = d.AddDate(0, 0, 1) {
		if err := printAgendaDay(ctx, cc, d, colors); err != nil {
			return err
		}
	}

	return nil
}

func printAgendaDay(ctx context.Context, cc *CLIContext, day time.Time, colors map[string]string) error {
	items, err := cc.Engine.EventsOn(ctx, day)
	if err != nil {
		return fmt.Errorf("loading agenda for %s: %w", day.Format("2006-01-02"), err)
	}

	fmt.Fprintln(os.Stdout, formatDay(day))

	if len(items) == 0 {
		fmt.Fprintln(os.Stdout, "  (no events)")
		return nil
	}

	loc := cc.Window.Location()

	for _, it := range items {
		line := fmt.Sprintf("  %s %-13s %s", calendarDot(colors[it.CalendarID]), formatEventSpan(it, loc), it.Title)
		if it.Location != "" {
			line += " @ " + it.Location
		}

		fmt.Fprintln(os.Stdout, line)
	}

	return nil
}

// calendarColors maps calendar ID to its configured color for display.
func calendarColors(ctx context.Context, cc *CLIContext) (map[string]string, error) {
	cals, _, err := cc.Engine.Calendars(ctx, store.KindEvent)
	if err != nil {
		return nil, fmt.Errorf("listing calendars: %w", err)
	}

	colors := make(map[string]string, len(cals))
	for _, c := range cals {
		colors[c.ID] = c.Color
	}

	return colors, nil
}
