package main

import (
	"fmt"
	"os"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the rolling window as an iCalendar file",
		Long: `Export every visible event in the rolling window (one month back, two
months forward) as a VCALENDAR. Writes to stdout unless --out is given.`,
		RunE: runExport,
	}

	cmd.Flags().String("out", "", "output file path (default stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if err := cc.Engine.EnsureAuthorized(ctx); err != nil {
		return err
	}

	if err := cc.Engine.Reload(ctx); err != nil {
		return fmt.Errorf("loading events: %w", err)
	}

	items := cc.Engine.Events()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//daycal//daycal " + version + "//EN")

	stamp := time.Now().UTC()

	for _, it := range items {
		ev := cal.AddEvent(it.Identifier)
		ev.SetDtStampTime(stamp)
		ev.SetSummary(it.Title)

		if it.AllDay {
			ev.SetAllDayStartAt(it.Start)
			ev.SetAllDayEndAt(it.End)
		} else {
			ev.SetStartAt(it.Start)
			ev.SetEndAt(it.End)
		}

		if it.Notes != "" {
			ev.SetDescription(it.Notes)
		}

		if it.Location != "" {
			ev.SetLocation(it.Location)
		}
	}

	serialized := cal.Serialize()

	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		fmt.Fprint(os.Stdout, serialized)
		return nil
	}

	if err := os.WriteFile(outPath, []byte(serialized), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	cc.Statusf("Exported %d events to %s\n", len(items), outPath)

	return nil
}
