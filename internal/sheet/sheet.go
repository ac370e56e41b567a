// Package sheet renders tickets and free text into fixed-width lines for
// receipt printers and consoles.
package sheet

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/pkg/util/errorutil"
)

const (
	DefaultWidth         = 32
	DefaultFreeTextWidth = 42
	DefaultSheetWidth    = 46

	todayWidth     = 40
	todayNoteWidth = 38
	todayMaxItems  = 20
	todayMaxNotes  = 4
)

// Formatter holds the column widths used for each kind of output.
type Formatter struct {
	Width         int
	FreeTextWidth int
	SheetWidth    int
}

// New returns a formatter with the given ticket width and default widths
// for free text and sheets. A non-positive width selects DefaultWidth.
func New(width int) Formatter {
	if width <= 0 {
		width = DefaultWidth
	}
	return Formatter{Width: width, FreeTextWidth: DefaultFreeTextWidth, SheetWidth: DefaultSheetWidth}
}

// Ticket renders a single ticket block.
func (f Formatter) Ticket(t domain.Ticket) []string {
	inner := f.Width - 4
	sep := strings.Repeat("*", inner)

	header := fmt.Sprintf("P%d", t.Priority)
	if t.Tags != nil && *t.Tags != "" {
		header += " [" + strings.ToUpper(*t.Tags) + "]"
	}

	lines := []string{sep, Center(header, inner), ""}
	for _, l := range Wrap(strings.ToUpper(t.Title), f.Width) {
		lines = append(lines, Center(l, inner))
	}
	lines = append(lines, "")
	if t.DueAt != nil {
		lines = append(lines, Center("DUE "+t.DueDate(), inner))
	}
	return append(lines, sep, "")
}

// FreeText frames arbitrary text between rules, wrapped and centered.
func (f Formatter) FreeText(text string) ([]string, error) {
	words := Wrap(text, f.FreeTextWidth)
	if len(words) == 0 {
		return nil, errorutil.NewValidationError("text to print is required", nil)
	}
	sep := strings.Repeat("=", f.FreeTextWidth)
	lines := []string{sep}
	for _, l := range words {
		lines = append(lines, Center(l, f.FreeTextWidth))
	}
	return append(lines, sep), nil
}

// Week renders the weekly sheet for the range [start, end].
func (f Formatter) Week(start, end time.Time, tickets []domain.Ticket) []string {
	rule := strings.Repeat("=", f.SheetWidth)
	title := fmt.Sprintf("WEEK %s - %s", start.Format("Jan 02"), end.Format("Jan 02"))
	lines := []string{rule, Center(title, f.SheetWidth), rule, ""}
	if len(tickets) == 0 {
		lines = append(lines, Center("No tasks this week", f.SheetWidth), "")
	}
	for _, t := range tickets {
		lines = append(lines, f.Ticket(t)...)
	}
	return append(lines, rule)
}

// Today renders the daily worksheet: what is due, room for next actions,
// and a notes block at the bottom.
func (f Formatter) Today(now time.Time, tickets []domain.Ticket) []string {
	rule := strings.Repeat("-", todayWidth)
	lines := []string{
		"TODAY - TICKETS",
		now.Format("Monday 02 Jan 2006 15:04"),
		strings.Repeat("=", todayWidth),
	}
	if len(tickets) == 0 {
		lines = append(lines, "No open tickets for today.")
	}
	if len(tickets) > todayMaxItems {
		tickets = tickets[:todayMaxItems]
	}
	for _, t := range tickets {
		due := "no due time"
		if t.DueAt != nil {
			due = t.DueAt.Format("2006-01-02 15:04")
		}
		lines = append(lines, fmt.Sprintf("#%s  [P%d]  (%s)", t.ShortID(), t.Priority, due))
		lines = append(lines, "  "+t.Title)
		if t.Notes != nil {
			notes := Wrap(*t.Notes, todayNoteWidth)
			if len(notes) > todayMaxNotes {
				notes = notes[:todayMaxNotes]
			}
			for _, n := range notes {
				lines = append(lines, "  - "+n)
			}
		}
		lines = append(lines, "  [ ] next action: ______________________", rule)
	}
	return append(lines,
		"",
		"NOTES / BRAIN DUMP:",
		strings.Repeat("_", todayWidth),
		strings.Repeat("_", todayWidth),
	)
}

// Text joins lines into newline-terminated output.
func Text(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Wrap greedily packs words into lines no longer than width. A word that is
// longer than width on its own is kept whole on its own line.
func Wrap(text string, width int) []string {
	var lines []string
	line := ""
	for _, w := range strings.Fields(text) {
		if runeLen(line)+runeLen(w)+1 <= width {
			if line == "" {
				line = w
			} else {
				line += " " + w
			}
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		line = w
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Center pads s on both sides to width; the extra space goes on the right.
func Center(s string, width int) string {
	pad := width - runeLen(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
