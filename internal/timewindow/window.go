// Package timewindow turns user supplied date/time strings into comparable
// half-open intervals in the platform time zone. It has no side effects.
package timewindow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/types"
)

// Bounds allowed reservation length
type Bounds struct {
	MinDuration time.Duration
	MaxDuration time.Duration
}

// DefaultBounds 30..120 minutes
func DefaultBounds() Bounds {
	return Bounds{
		MinDuration: domain.DefaultMinDurationMinutes * time.Minute,
		MaxDuration: domain.DefaultMaxDurationMinutes * time.Minute,
	}
}

// Request raw window as it arrives from a client.
// Exactly one of EndTime and DurationMinutes must be set.
type Request struct {
	Date            string
	StartTime       string
	EndTime         string
	DurationMinutes int
}

// Interval half-open range [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether two half-open intervals intersect.
// Adjacent intervals (a.End == b.Start) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// Window normalized reservation window
type Window struct {
	Date      time.Time
	StartTime types.TimeString
	EndTime   types.TimeString
	Interval
}

// Minutes length of the window in whole minutes
func (w Window) Minutes() int {
	return int(w.Duration() / time.Minute)
}

// Parse validates the request and produces a window in loc.
// A duration may carry the window past midnight; an explicit end time may not.
func Parse(req Request, bounds Bounds, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}

	date, err := ParseDate(req.Date, loc)
	if err != nil {
		return Window{}, err
	}

	start, err := types.NewTimeStringFromString(strings.TrimSpace(req.StartTime))
	if err != nil {
		return Window{}, fmt.Errorf("%w: startTime %q", ErrInvalidTime, req.StartTime)
	}

	hasEnd := strings.TrimSpace(req.EndTime) != ""
	hasDuration := req.DurationMinutes != 0
	if hasEnd == hasDuration {
		return Window{}, ErrAmbiguousEnd
	}

	startsAt := start.On(date, loc)

	var endsAt time.Time
	if hasEnd {
		end, err := types.NewTimeStringFromString(strings.TrimSpace(req.EndTime))
		if err != nil {
			return Window{}, fmt.Errorf("%w: endTime %q", ErrInvalidTime, req.EndTime)
		}
		endsAt = end.On(date, loc)
	} else {
		if req.DurationMinutes < 0 {
			return Window{}, fmt.Errorf("%w: duration %d", ErrInvalidRange, req.DurationMinutes)
		}
		endsAt = startsAt.Add(time.Duration(req.DurationMinutes) * time.Minute)
	}

	if !startsAt.Before(endsAt) {
		return Window{}, fmt.Errorf("%w: %s >= %s", ErrInvalidRange, startsAt.Format(domain.TimeFormat), endsAt.Format(domain.TimeFormat))
	}

	interval := Interval{Start: startsAt, End: endsAt}
	if err := bounds.Check(interval.Duration()); err != nil {
		return Window{}, err
	}

	return Window{
		Date:      date,
		StartTime: start,
		EndTime:   types.NewTimeString(endsAt),
		Interval:  interval,
	}, nil
}

// Check validates a duration against the bounds; zero bounds are not enforced
func (b Bounds) Check(d time.Duration) error {
	if b.MinDuration > 0 && d < b.MinDuration {
		return fmt.Errorf("%w: %d min, minimum is %d", ErrDurationOutOfBounds, int(d.Minutes()), int(b.MinDuration.Minutes()))
	}
	if b.MaxDuration > 0 && d > b.MaxDuration {
		return fmt.Errorf("%w: %d min, maximum is %d", ErrDurationOutOfBounds, int(d.Minutes()), int(b.MaxDuration.Minutes()))
	}
	return nil
}

// ParseDate parses YYYY-MM-DD as midnight in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation(domain.DateFormat, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return date, nil
}

// Day returns the interval covering the whole calendar date in loc
func Day(date time.Time, loc *time.Location) Interval {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// Sort orders intervals by start, then by end
func Sort(intervals []Interval) {
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].End.Before(intervals[j].End)
		}
		return intervals[i].Start.Before(intervals[j].Start)
	})
}

// FreeWindows returns the gaps of day not covered by busy
func FreeWindows(day Interval, busy []Interval) []Interval {
	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	Sort(sorted)

	free := make([]Interval, 0, len(sorted)+1)
	cursor := day.Start
	for _, b := range sorted {
		if !b.End.After(cursor) {
			continue
		}
		if b.Start.After(cursor) {
			end := b.Start
			if end.After(day.End) {
				end = day.End
			}
			if cursor.Before(end) {
				free = append(free, Interval{Start: cursor, End: end})
			}
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(day.End) {
			return free
		}
	}

	if cursor.Before(day.End) {
		free = append(free, Interval{Start: cursor, End: day.End})
	}
	return free
}
