package models

import "time"

// DayOrderState is the outcome of resolving a department's academic day. Holiday and
// DayOrder are mutually exclusive: DayOrder is nil whenever Holiday is true.
type DayOrderState struct {
	Department  string  `json:"department"`
	Date        Date    `json:"date"`
	Holiday     bool    `json:"is_holiday"`
	HolidayName *string `json:"holiday_name,omitempty"`
	DayOrder    *int    `json:"day_order,omitempty"`
	Fallback    bool    `json:"fallback,omitempty"`
}

// HolidayState builds a holiday resolution.
func HolidayState(department string, date Date, name string) DayOrderState {
	state := DayOrderState{Department: department, Date: date, Holiday: true}
	if name != "" {
		state.HolidayName = &name
	}
	return state
}

// WorkingDayState builds a non-holiday resolution.
func WorkingDayState(department string, date Date, dayOrder int) DayOrderState {
	return DayOrderState{Department: department, Date: date, DayOrder: &dayOrder}
}

// DayOrderEntry is one row of the academic day-order calendar.
type DayOrderEntry struct {
	Department  string    `db:"department" json:"department"`
	Date        Date      `db:"date" json:"date"`
	DayOrder    *int      `db:"day_order" json:"day_order,omitempty"`
	IsHoliday   bool      `db:"is_holiday" json:"is_holiday"`
	HolidayName *string   `db:"holiday_name" json:"holiday_name,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// State converts a calendar row into a resolution.
func (e DayOrderEntry) State() DayOrderState {
	if e.IsHoliday {
		name := ""
		if e.HolidayName != nil {
			name = *e.HolidayName
		}
		return HolidayState(e.Department, e.Date, name)
	}
	order := 0
	if e.DayOrder != nil {
		order = *e.DayOrder
	}
	return WorkingDayState(e.Department, e.Date, order)
}

// DayOrderCalendarFilter bounds calendar listings.
type DayOrderCalendarFilter struct {
	Department string
	From       *Date
	To         *Date
}
