package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"daycal/internal/engine"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title or free text>",
		Short: "Create an event",
		Long: `Create an event. With --start (and optionally --end) the arguments are
the literal title. Without --start the whole argument string is handed to the
quick-entry path: unparseable text becomes the title of a one-hour event on
the next full hour.

Examples:
  daycal add "Dentist" --start "2026-09-01 10:00" --end "2026-09-01 11:00"
  daycal add "Standup" --start 09:15 --calendar work
  daycal add lunch with sam`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAdd,
	}

	cmd.Flags().String("start", "", "start time (YYYY-MM-DD HH:MM, or HH:MM for today)")
	cmd.Flags().String("end", "", "end time; defaults to one hour after start")
	cmd.Flags().String("calendar", "", "target calendar ID; defaults to the configured default")
	cmd.Flags().String("notes", "", "event notes")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if err := cc.Engine.EnsureAuthorized(ctx); err != nil {
		return err
	}

	text := strings.Join(args, " ")

	startFlag, _ := cmd.Flags().GetString("start")
	if startFlag == "" {
		item, err := cc.Engine.CreateFromText(ctx, text)
		if err != nil {
			return fmt.Errorf("creating event: %w", err)
		}

		cc.Statusf("Created %q %s (%s)\n", item.Title,
			formatEventSpan(*item, cc.Window.Location()), item.Identifier)

		return nil
	}

	loc := cc.Window.Location()
	now := time.Now()

	start, err := parseWhen(startFlag, now, loc)
	if err != nil {
		return err
	}

	end := start.Add(time.Hour)

	if endFlag, _ := cmd.Flags().GetString("end"); endFlag != "" {
		end, err = parseWhen(endFlag, now, loc)
		if err != nil {
			return err
		}
	}

	if !end.After(start) {
		return fmt.Errorf("end %s is not after start %s", end.Format("15:04"), start.Format("15:04"))
	}

	calendarID, _ := cmd.Flags().GetString("calendar")
	notes, _ := cmd.Flags().GetString("notes")

	item, err := cc.Engine.Create(ctx, text, start, end, calendarID, notes)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}

	cc.Statusf("Created %q %s (%s)\n", item.Title, formatEventSpan(*item, loc), item.Identifier)

	return nil
}

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <identifier or title>",
		Short: "Edit an event",
		Long: `Edit an event resolved by identifier, or by title when the identifier is
unknown. Only the fields given as flags change; everything else is left as
the store currently has it, so edits made elsewhere are not clobbered.`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}

	cmd.Flags().String("title", "", "new title")
	cmd.Flags().String("start", "", "new start time")
	cmd.Flags().String("end", "", "new end time")
	cmd.Flags().String("notes", "", "new notes")
	cmd.Flags().String("location", "", "new location")
	cmd.Flags().String("calendar", "", "new calendar ID")

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	ref, err := resolveRef(ctx, cc, args[0])
	if err != nil {
		return err
	}

	loc := cc.Window.Location()
	now := time.Now()

	var fields engine.Fields

	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		fields.Title = &v
	}

	if cmd.Flags().Changed("start") {
		v, _ := cmd.Flags().GetString("start")

		t, err := parseWhen(v, now, loc)
		if err != nil {
			return err
		}

		fields.Start = &t
	}

	if cmd.Flags().Changed("end") {
		v, _ := cmd.Flags().GetString("end")

		t, err := parseWhen(v, now, loc)
		if err != nil {
			return err
		}

		fields.End = &t
	}

	if cmd.Flags().Changed("notes") {
		v, _ := cmd.Flags().GetString("notes")
		fields.Notes = &v
	}

	if cmd.Flags().Changed("location") {
		v, _ := cmd.Flags().GetString("location")
		fields.Location = &v
	}

	if cmd.Flags().Changed("calendar") {
		v, _ := cmd.Flags().GetString("calendar")
		fields.CalendarID = &v
	}

	item, err := cc.Engine.Update(ctx, ref, fields)
	if err != nil {
		return fmt.Errorf("editing event: %w", err)
	}

	cc.Statusf("Updated %q %s\n", item.Title, formatEventSpan(*item, loc))

	return nil
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <identifier or title> <new-start>",
		Short: "Reschedule an event, keeping its duration",
		Args:  cobra.ExactArgs(2),
		RunE:  runMv,
	}
}

func runMv(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	ref, err := resolveRef(ctx, cc, args[0])
	if err != nil {
		return err
	}

	loc := cc.Window.Location()

	newStart, err := parseWhen(args[1], time.Now(), loc)
	if err != nil {
		return err
	}

	item, err := cc.Engine.Move(ctx, ref, newStart)
	if err != nil {
		return fmt.Errorf("moving event: %w", err)
	}

	cc.Statusf("Moved %q to %s\n", item.Title, item.Start.In(loc).Format("Jan _2 15:04"))

	return nil
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <identifier or title>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

func runRm(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	ref, err := resolveRef(ctx, cc, args[0])
	if err != nil {
		return err
	}

	if err := cc.Engine.Delete(ctx, ref); err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}

	cc.Statusf("Deleted\n")

	return nil
}

// resolveRef turns a CLI argument into an event reference. An exact
// identifier match in the current window wins; otherwise a unique
// case-insensitive title match. Anything else is handed to the engine as a
// bare identifier and resolves (or fails) there.
func resolveRef(ctx context.Context, cc *CLIContext, arg string) (engine.Reference, error) {
	if err := cc.Engine.EnsureAuthorized(ctx); err != nil {
		return engine.Reference{}, err
	}

	if err := cc.Engine.Reload(ctx); err != nil {
		return engine.Reference{}, fmt.Errorf("loading events: %w", err)
	}

	items := cc.Engine.Events()

	for i := range items {
		if items[i].Identifier == arg {
			return engine.RefFromItem(&items[i]), nil
		}
	}

	var matches []int

	for i := range items {
		if strings.EqualFold(items[i].Title, arg) {
			matches = append(matches, i)
		}
	}

	switch len(matches) {
	case 1:
		return engine.RefFromItem(&items[matches[0]]), nil
	case 0:
		return engine.Reference{Identifier: arg}, nil
	default:
		return engine.Reference{}, fmt.Errorf("%q matches %d events; use the identifier", arg, len(matches))
	}
}
