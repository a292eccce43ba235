package dto

// DayOrderServiceResponse is the wire contract of the day-order service:
// {success, isHoliday: true, holidayName} on holidays and {success, dayOrder} otherwise.
type DayOrderServiceResponse struct {
	Success     bool    `json:"success"`
	IsHoliday   bool    `json:"isHoliday,omitempty"`
	HolidayName *string `json:"holidayName,omitempty"`
	DayOrder    *int    `json:"dayOrder,omitempty"`
	Date        string  `json:"date,omitempty"`
	Department  string  `json:"department,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// DayOrderCalendarRequest upserts one calendar day.
type DayOrderCalendarRequest struct {
	Department  string  `json:"department" validate:"required,max=32"`
	Date        string  `json:"date" validate:"required,yyyymmdd"`
	IsHoliday   bool    `json:"is_holiday"`
	HolidayName *string `json:"holiday_name" validate:"omitempty,max=120"`
	DayOrder    *int    `json:"day_order" validate:"omitempty,min=1"`
}
