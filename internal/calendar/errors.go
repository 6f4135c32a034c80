package calendar

import "errors"

var (
	// ErrOutOfCalendar is returned when the loaded trade-day horizon ends
	// before a query can be answered. Refresh the store and rebuild.
	ErrOutOfCalendar = errors.New("calendar: out of calendar, trade days need updating")

	// ErrUnsupportedInterval is returned for an interval that is neither in
	// the calendar's grid nor one of Daily, Weekly or Monthly.
	ErrUnsupportedInterval = errors.New("calendar: unsupported interval")

	// ErrInvalidSession is returned at construction for a session template
	// that is empty, unsorted, overlapping or longer than one day.
	ErrInvalidSession = errors.New("calendar: invalid session template")

	// ErrInvalidInterval is returned at construction for a configured interval
	// that cannot be placed on a grid.
	ErrInvalidInterval = errors.New("calendar: invalid interval")

	// ErrTooManyBars is returned by BarTimesMax when a range holds more bars
	// than the caller allows.
	ErrTooManyBars = errors.New("calendar: too many bars in range")

	// ErrInvalidConfig covers the remaining construction errors.
	ErrInvalidConfig = errors.New("calendar: invalid config")
)
