package dto

// OpenSessionRequest starts an attendance session for a class and subject.
type OpenSessionRequest struct {
	TeacherID       string `json:"teacher_id" validate:"required"`
	ClassID         string `json:"class_id" validate:"required"`
	SubjectID       string `json:"subject_id" validate:"required"`
	AssignmentID    string `json:"assignment_id"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1,max=240"`
}

// AutoSessionRequest starts every auto-session assignment scheduled for the teacher today.
type AutoSessionRequest struct {
	TeacherID  string `json:"teacher_id" validate:"required"`
	Department string `json:"department"`
}

// MarkAttendanceRequest is submitted by a student after scanning a session QR code.
type MarkAttendanceRequest struct {
	Token string `json:"token" validate:"required"`
}
