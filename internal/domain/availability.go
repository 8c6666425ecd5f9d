package domain

import (
	"fmt"
	"time"
)

// Reasons reported by Availability.Evaluate when a time is not bookable.
const (
	ReasonDoctorUnavailable = "doctor_unavailable"
	ReasonDayClosed         = "day_closed"
	ReasonOutsideHours      = "outside_hours"
	ReasonOnBreak           = "on_break"
	ReasonBooked            = "booked"
)

const defaultBreakReason = "Break"

// DayWindow is the bookable range [Start, End) of one weekday.
type DayWindow struct {
	Start       Clock `json:"start"`
	End         Clock `json:"end"`
	IsAvailable bool  `json:"isAvailable"`
}

func (w DayWindow) contains(c Clock) bool {
	return w.IsAvailable && c >= w.Start && c < w.End
}

// Schedule holds exactly one window per weekday.
type Schedule struct {
	Monday    DayWindow `json:"monday"`
	Tuesday   DayWindow `json:"tuesday"`
	Wednesday DayWindow `json:"wednesday"`
	Thursday  DayWindow `json:"thursday"`
	Friday    DayWindow `json:"friday"`
	Saturday  DayWindow `json:"saturday"`
	Sunday    DayWindow `json:"sunday"`
}

func (s Schedule) Day(d time.Weekday) DayWindow {
	switch d {
	case time.Monday:
		return s.Monday
	case time.Tuesday:
		return s.Tuesday
	case time.Wednesday:
		return s.Wednesday
	case time.Thursday:
		return s.Thursday
	case time.Friday:
		return s.Friday
	case time.Saturday:
		return s.Saturday
	default:
		return s.Sunday
	}
}

func (s Schedule) days() []DayWindow {
	return []DayWindow{s.Monday, s.Tuesday, s.Wednesday, s.Thursday, s.Friday, s.Saturday, s.Sunday}
}

// Break carves [Start, End) out of Date.
type Break struct {
	Date   Date   `json:"date"`
	Start  Clock  `json:"start"`
	End    Clock  `json:"end"`
	Reason string `json:"reason,omitempty"`
}

func (b Break) covers(d Date, c Clock) bool {
	return b.Date == d && c >= b.Start && c < b.End
}

// Availability describes when a doctor accepts appointments. TimeZone is an
// IANA name; empty means UTC.
type Availability struct {
	IsAvailable bool     `json:"isAvailable"`
	TimeZone    string   `json:"timeZone,omitempty"`
	Schedule    Schedule `json:"schedule"`
	Breaks      []Break  `json:"breaks"`
}

// Bookability is the outcome of evaluating a candidate time.
type Bookability struct {
	Bookable bool   `json:"bookable"`
	Reason   string `json:"reason,omitempty"`
}

// DefaultAvailability opens Monday to Friday 09:00-17:00.
func DefaultAvailability() Availability {
	weekday := DayWindow{Start: NewClock(9, 0), End: NewClock(17, 0), IsAvailable: true}
	weekend := DayWindow{Start: NewClock(9, 0), End: NewClock(17, 0), IsAvailable: false}
	return Availability{
		IsAvailable: true,
		Schedule: Schedule{
			Monday:    weekday,
			Tuesday:   weekday,
			Wednesday: weekday,
			Thursday:  weekday,
			Friday:    weekday,
			Saturday:  weekend,
			Sunday:    weekend,
		},
		Breaks: []Break{},
	}
}

// Location resolves TimeZone, falling back to UTC.
func (a Availability) Location() *time.Location {
	if a.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Evaluate decides whether t is bookable. The global flag wins over the
// weekday window, which wins over breaks.
func (a Availability) Evaluate(t time.Time) Bookability {
	if !a.IsAvailable {
		return Bookability{Reason: ReasonDoctorUnavailable}
	}
	local := t.In(a.Location())
	window := a.Schedule.Day(local.Weekday())
	if !window.IsAvailable {
		return Bookability{Reason: ReasonDayClosed}
	}
	c := ClockOf(local)
	if !window.contains(c) {
		return Bookability{Reason: ReasonOutsideHours}
	}
	d := DateOf(local)
	for _, b := range a.Breaks {
		if b.covers(d, c) {
			return Bookability{Reason: ReasonOnBreak}
		}
	}
	return Bookability{Bookable: true}
}

// Slot is one candidate start time on a day.
type Slot struct {
	Start time.Time
	Bookability
}

// Slots steps through the weekday window of date in increments of step. A
// closed day has no slots.
func (a Availability) Slots(date Date, step time.Duration) []Slot {
	if step <= 0 {
		return nil
	}
	loc := a.Location()
	window := a.Schedule.Day(date.Weekday())
	if !window.IsAvailable || window.Start >= window.End {
		return nil
	}
	start := date.At(window.Start, loc)
	end := date.At(window.End, loc)

	var slots []Slot
	for t := start; t.Before(end); t = t.Add(step) {
		slots = append(slots, Slot{Start: t, Bookability: a.Evaluate(t)})
	}
	return slots
}

// Normalized fills defaults: nil breaks become empty and a missing break
// reason becomes "Break".
func (a Availability) Normalized() Availability {
	out := a.Clone()
	if out.Breaks == nil {
		out.Breaks = []Break{}
	}
	for i := range out.Breaks {
		if out.Breaks[i].Reason == "" {
			out.Breaks[i].Reason = defaultBreakReason
		}
	}
	return out
}

// Validate checks time zone, weekday windows and breaks. Breaks are not
// required to fall inside the weekday window.
func (a Availability) Validate() error {
	if a.TimeZone != "" {
		if _, err := time.LoadLocation(a.TimeZone); err != nil {
			return fmt.Errorf("%w: unknown time zone %q", ErrInvalidAvailability, a.TimeZone)
		}
	}
	for i, w := range a.Schedule.days() {
		if w.IsAvailable && w.Start >= w.End {
			return fmt.Errorf("%w: %s window must start before it ends",
				ErrInvalidAvailability, time.Weekday((i+1)%7))
		}
	}
	for i, b := range a.Breaks {
		if b.Date.IsZero() {
			return fmt.Errorf("%w: break %d has no date", ErrInvalidAvailability, i)
		}
		if b.Start >= b.End {
			return fmt.Errorf("%w: break %d must start before it ends", ErrInvalidAvailability, i)
		}
	}
	return nil
}

func (a Availability) Clone() Availability {
	out := a
	if a.Breaks != nil {
		out.Breaks = append([]Break(nil), a.Breaks...)
	}
	return out
}
