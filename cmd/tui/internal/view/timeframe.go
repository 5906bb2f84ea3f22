package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// Timeframe represents a predefined or custom date range selection.
type Timeframe int

const (
	TimeframeThisWeek  Timeframe = 0
	TimeframeLastWeek  Timeframe = 1
	TimeframeThisMonth Timeframe = 2
	TimeframeLastMonth Timeframe = 3
	TimeframeAll       Timeframe = 4
	TimeframeCustom    Timeframe = 5
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeThisWeek:
		return "This Week"
	case TimeframeLastWeek:
		return "Last Week"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeAll:
		return "All Time"
	case TimeframeCustom:
		return "Custom Range"
	}

	return "Unknown"
}

func timeframeToDateRange(tf Timeframe, loc *time.Location) (time.Time, time.Time) {
	now := time.Now().In(loc)

	var start, end time.Time

	switch tf {
	case TimeframeThisWeek:
		offset := int(now.Weekday())
		if offset == 0 {
			offset = 7
		}

		start = now.AddDate(0, 0, -offset+1)
		end = now
	case TimeframeLastWeek:
		offset := int(now.Weekday())
		if offset == 0 {
			offset = 7
		}

		end = now.AddDate(0, 0, -offset)
		start = end.AddDate(0, 0, -6)
	case TimeframeThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = now
	case TimeframeLastMonth:
		lastMonth := now.AddDate(0, -1, 0)
		start = time.Date(lastMonth.Year(), lastMonth.Month(), 1, 0, 0, 0, 0, lastMonth.Location())
		end = start.AddDate(0, 1, -1)
	}

	return start, end
}

// normalizeDateRange widens the range to whole days in loc.
func normalizeDateRange(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc),
		time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}

// TimeframeSelectedMsg is emitted once the operator picked a range.
// Start and End are zero values when All is true.
type TimeframeSelectedMsg struct {
	Start time.Time
	End   time.Time
	All   bool
}

type timeframeInput struct {
	frame Timeframe
	start string
	end   string
}

// TimeframePicker selects the date range a transaction listing covers.
type TimeframePicker struct {
	minFrame Timeframe
	loc      *time.Location
	in       *timeframeInput
	form     *huh.Form
}

// NewTimeframePicker offers the frames from minFrame on. Ranges are
// whole days in loc.
func NewTimeframePicker(minFrame Timeframe, loc *time.Location) TimeframePicker {
	if loc == nil {
		loc = time.Local
	}

	m := TimeframePicker{minFrame: minFrame, loc: loc}
	m.Reset()

	return m
}

// Reset rebuilds the form with the default frame selected.
func (m *TimeframePicker) Reset() {
	m.in = &timeframeInput{frame: m.minFrame}
	in, loc := m.in, m.loc

	options := make([]huh.Option[Timeframe], 0, TimeframeCustom-m.minFrame+1)
	for tf := m.minFrame; tf <= TimeframeCustom; tf++ {
		options = append(options, huh.NewOption(timeframeLabel(tf, loc), tf))
	}

	custom := func() bool { return in.frame != TimeframeCustom }

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Timeframe]().
				Title("Select Timeframe").
				Options(options...).
				Value(&in.frame),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Start date").
				Placeholder("YYYY-MM-DD").
				CharLimit(10).
				Value(&in.start).
				Validate(func(s string) error { return validateDate(s, loc) }),
			huh.NewInput().
				Title("End date").
				Placeholder("YYYY-MM-DD").
				CharLimit(10).
				Value(&in.end).
				Validate(func(s string) error {
					if err := validateDate(s, loc); err != nil {
						return err
					}

					start, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(in.start), loc)
					if err == nil && parseDate(s, loc).Before(start) {
						return errors.New("end date is before start date")
					}

					return nil
				}),
		).WithHideFunc(custom),
	).WithWidth(50).WithShowHelp(false)
}

func (m TimeframePicker) Init() tea.Cmd {
	return m.form.Init()
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	selected := m.selection()
	m.Reset()

	return m, tea.Batch(m.form.Init(), func() tea.Msg { return selected })
}

func (m TimeframePicker) selection() TimeframeSelectedMsg {
	switch m.in.frame {
	case TimeframeAll:
		return TimeframeSelectedMsg{All: true}
	case TimeframeCustom:
		start, end := normalizeDateRange(parseDate(m.in.start, m.loc), parseDate(m.in.end, m.loc), m.loc)
		return TimeframeSelectedMsg{Start: start, End: end}
	}

	start, end := timeframeToDateRange(m.in.frame, m.loc)
	start, end = normalizeDateRange(start, end, m.loc)

	return TimeframeSelectedMsg{Start: start, End: end}
}

func (m TimeframePicker) View() string {
	return m.form.View() + "\n\n" + faintStyle.Render("(Enter to select, Esc to back)")
}

// IsSelecting reports whether the operator is still on the frame list
// rather than typing a custom range.
func (m TimeframePicker) IsSelecting() bool {
	return m.in.frame != TimeframeCustom
}

// timeframeLabel shows the frame with the days it currently covers.
func timeframeLabel(tf Timeframe, loc *time.Location) string {
	if tf == TimeframeAll || tf == TimeframeCustom {
		return tf.String()
	}

	start, end := timeframeToDateRange(tf, loc)

	return fmt.Sprintf("%-12s %s to %s", tf.String(), FormatDate(start), FormatDate(end))
}

func validateDate(s string, loc *time.Location) error {
	if _, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc); err != nil {
		return errors.New("use YYYY-MM-DD")
	}

	return nil
}

func parseDate(s string, loc *time.Location) time.Time {
	t, _ := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	return t
}
