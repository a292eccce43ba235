package dto

// AssignmentRequest creates or replaces a timetable assignment.
type AssignmentRequest struct {
	TeacherID          string `json:"teacher_id" validate:"required"`
	ClassID            string `json:"class_id" validate:"required"`
	SubjectID          string `json:"subject_id" validate:"required"`
	DayOrder           int    `json:"day_order" validate:"required,min=1"`
	StartTime          string `json:"start_time" validate:"required,hhmm"`
	EndTime            string `json:"end_time" validate:"required,hhmm"`
	AutoSessionEnabled bool   `json:"auto_session_enabled"`
}
