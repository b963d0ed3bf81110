package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"daycal/internal/store"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Statusf prints a status message to stderr unless quiet mode is set.
// Method form of statusf — avoids threading `quiet bool` through call chains.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Flags.Quiet, format, args...)
}

// calendarPalette maps color names to terminal colors, with the RGB anchor
// each one approximates. Calendar colors arrive as hex RGB from the store and
// resolve to the nearest anchor; names are accepted too. fatih/color disables
// itself automatically when stdout is not a terminal.
var calendarPalette = map[string]paletteEntry{
	"red":    {color.New(color.FgRed), 0xcc, 0x33, 0x33},
	"green":  {color.New(color.FgGreen), 0x33, 0x99, 0x33},
	"yellow": {color.New(color.FgYellow), 0xcc, 0xcc, 0x33},
	"blue":   {color.New(color.FgBlue), 0x33, 0x66, 0xcc},
	"purple": {color.New(color.FgMagenta), 0x99, 0x33, 0xcc},
	"cyan":   {color.New(color.FgCyan), 0x33, 0xcc, 0xcc},
	"orange": {color.New(color.FgHiYellow), 0xdd, 0x88, 0x22},
	"gray":   {color.New(color.FgHiBlack), 0x88, 0x88, 0x88},
}

type paletteEntry struct {
	c       *color.Color
	r, g, b int
}

// lookupColor resolves a calendar color (a name or "#rrggbb" hex) to a
// terminal color, or nil when it cannot be interpreted.
func lookupColor(calendarColor string) *color.Color {
	s := strings.ToLower(strings.TrimSpace(calendarColor))

	if e, ok := calendarPalette[s]; ok {
		return e.c
	}

	var r, g, b int
	if n, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil || n != 3 {
		return nil
	}

	var (
		best     *color.Color
		bestDist = math.MaxInt
	)

	for _, e := range calendarPalette {
		dr, dg, db := r-e.r, g-e.g, b-e.b

		if d := dr*dr + dg*dg + db*db; d < bestDist {
			bestDist = d
			best = e.c
		}
	}

	return best
}

// calendarDot returns a colored bullet for the calendar, or a plain one when
// the color is unknown.
func calendarDot(calendarColor string) string {
	if c := lookupColor(calendarColor); c != nil {
		return c.Sprint("●")
	}

	return "●"
}

// formatEventSpan renders an item's time range for agenda output. All-day
// items render as a label rather than a clock range; spans crossing midnight
// include the end date.
func formatEventSpan(it store.Item, loc *time.Location) string {
	if it.AllDay {
		return "all day"
	}

	start := it.Start.In(loc)
	end := it.End.In(loc)

	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s–%s", start.Format("15:04"), end.Format("15:04"))
	}

	return fmt.Sprintf("%s–%s", start.Format("Jan _2 15:04"), end.Format("Jan _2 15:04"))
}

// formatDay renders a date heading like "Saturday, March 14".
func formatDay(t time.Time) string {
	return t.Format("Monday, January _2")
}

// formatDue renders a reminder due instant relative to the current year.
func formatDue(due *time.Time, loc *time.Location) string {
	if due == nil {
		return "no due date"
	}

	d := due.In(loc)

	if d.Year() == time.Now().In(loc).Year() {
		return d.Format("Jan _2 15:04")
	}

	return d.Format("Jan _2 2006 15:04")
}

// priorityMarker renders a reminder's priority band as exclamation marks, the
// convention most reminder apps use.
func priorityMarker(p store.PriorityBand) string {
	switch p {
	case store.PriorityHigh:
		return "!!!"
	case store.PriorityMedium:
		return "!! "
	case store.PriorityLow:
		return "!  "
	default:
		return "   "
	}
}

// parseDay parses a date argument in YYYY-MM-DD form, interpreted in the
// configured time zone.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}

	return t, nil
}

// whenLayouts are accepted by parseWhen, most specific first.
var whenLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"15:04",
}

// parseWhen parses a point-in-time argument. A bare clock time lands on
// today; a bare date lands on midnight.
func parseWhen(s string, now time.Time, loc *time.Location) (time.Time, error) {
	for _, layout := range whenLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}

		if layout == "15:04" {
			n := now.In(loc)
			t = time.Date(n.Year(), n.Month(), n.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		}

		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid time %q (want YYYY-MM-DD, YYYY-MM-DD HH:MM, or HH:MM)", s)
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}
