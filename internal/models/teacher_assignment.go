package models

import "time"

// TeacherAssignment is a standing timetable row binding a teacher to a class and subject
// in one day-order slot. Times are 24-hour HH:MM.
type TeacherAssignment struct {
	ID                 string    `db:"id" json:"id"`
	TeacherID          string    `db:"teacher_id" json:"teacher_id"`
	ClassID            string    `db:"class_id" json:"class_id"`
	SubjectID          string    `db:"subject_id" json:"subject_id"`
	DayOrder           int       `db:"day_order" json:"day_order"`
	StartTime          string    `db:"start_time" json:"start_time"`
	EndTime            string    `db:"end_time" json:"end_time"`
	AutoSessionEnabled bool      `db:"auto_session_enabled" json:"auto_session_enabled"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherAssignmentDetail enriches assignments with descriptive fields.
type TeacherAssignmentDetail struct {
	TeacherAssignment
	ClassName    string `db:"class_name" json:"class_name"`
	ClassSection string `db:"class_section" json:"class_section"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
}

// ScheduledSession is an assignment active for the resolved day order, with a 12-hour display time.
type ScheduledSession struct {
	TeacherAssignmentDetail
	DisplayTime string `json:"display_time"`
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	TeacherID string
	ClassID   string
	DayOrder  *int
}

// ScheduledSessions is the matcher result for one teacher and day.
type ScheduledSessions struct {
	IsHoliday         bool               `json:"is_holiday"`
	HolidayName       *string            `json:"holiday_name,omitempty"`
	CurrentDayOrder   *int               `json:"current_day_order,omitempty"`
	Fallback          bool               `json:"day_order_fallback,omitempty"`
	ScheduledSessions []ScheduledSession `json:"scheduled_sessions"`
	Count             int                `json:"count"`
}
