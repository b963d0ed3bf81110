package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"daycal/internal/store"
)

func newCalendarsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List calendars and toggle their visibility",
		RunE:  runCalendarsList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <calendar-id>",
		Short: "Make a calendar visible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setCalendarVisibility(cmd, args[0], true)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "hide <calendar-id>",
		Short: "Hide a calendar from the agenda",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setCalendarVisibility(cmd, args[0], false)
		},
	})

	return cmd
}

func runCalendarsList(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if err := cc.Engine.EnsureAuthorized(ctx); err != nil {
		return err
	}

	var rows [][]string

	for _, kind := range []store.CalendarKind{store.KindEvent, store.KindReminder} {
		cals, visible, err := cc.Engine.Calendars(ctx, kind)
		if err != nil {
			return fmt.Errorf("listing calendars: %w", err)
		}

		for i, c := range cals {
			vis := "hidden"
			if visible[i] {
				vis = "visible"
			}

			writable := "yes"
			if !c.AllowsModification {
				writable = "no"
			}

			rows = append(rows, []string{
				calendarDot(c.Color) + " " + c.ID, c.Title, kindLabel(kind), vis, writable,
			})
		}
	}

	printTable(os.Stdout, []string{"ID", "TITLE", "KIND", "VISIBILITY", "WRITABLE"}, rows)

	return nil
}

func kindLabel(kind store.CalendarKind) string {
	if kind == store.KindReminder {
		return "reminders"
	}

	return "events"
}

// setCalendarVisibility toggles only when the current state differs from the
// requested one, so repeated "show" calls stay idempotent.
func setCalendarVisibility(cmd *cobra.Command, calendarID string, visible bool) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if err := cc.Engine.EnsureAuthorized(ctx); err != nil {
		return err
	}

	if cc.Cfg.IsSelected(calendarID) == visible {
		cc.Statusf("Calendar %s already %s\n", calendarID, visibilityWord(visible))
		return nil
	}

	if err := cc.Engine.ToggleCalendarVisibility(ctx, calendarID); err != nil {
		return fmt.Errorf("toggling calendar %s: %w", calendarID, err)
	}

	cc.Statusf("Calendar %s now %s\n", calendarID, visibilityWord(visible))

	return nil
}

func visibilityWord(visible bool) string {
	if visible {
		return "visible"
	}

	return "hidden"
}
