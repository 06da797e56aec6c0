package models

// AcademicCalendar mirrors the academic calendar definition file. Date
// strings are free text ("Dec 25", "Oct 28 - 31", "Mar 10 - Apr 2") and
// are parsed by the optimizer's constraint compiler.
type AcademicCalendar struct {
	AcademicYear          string                        `json:"academic_year"`
	HecticPeriods         []CalendarEntry               `json:"hectic_periods"`
	UnavailableDates      UnavailableDates              `json:"unavailable_dates"`
	SchedulingConstraints CalendarSchedulingConstraints `json:"scheduling_constraints"`
}

// CalendarEntry names a single dated calendar item.
type CalendarEntry struct {
	Event string `json:"event"`
	Name  string `json:"name"`
	Date  string `json:"date"`
}

// UnavailableDates groups blackout entries by category.
type UnavailableDates struct {
	NationalHolidays    []CalendarEntry `json:"national_holidays"`
	SchoolHolidayBreaks []CalendarEntry `json:"school_holidays_breaks"`
	ExaminationPeriods  []CalendarEntry `json:"examination_periods"`
}

// CalendarSchedulingConstraints carries the standard venue blockage table,
// keyed by "<VenueClass>_weekday" or "<VenueClass>_weekend_<Day>".
type CalendarSchedulingConstraints struct {
	StandardVenueBlockages map[string][]VenueBlockageWindow `json:"standard_venue_blockages"`
}

// VenueBlockageWindow is one local time-of-day closure window. Day, when
// set, restricts the window to a single weekday name.
type VenueBlockageWindow struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Day       string `json:"day,omitempty"`
}
