package models

import "time"

// AttendanceSessionStatus describes whether students may still mark attendance.
type AttendanceSessionStatus string

const (
	SessionStatusOpen   AttendanceSessionStatus = "open"
	SessionStatusClosed AttendanceSessionStatus = "closed"
)

// AttendanceRecordStatus is the recorded presence of one student.
type AttendanceRecordStatus string

const (
	RecordStatusPresent AttendanceRecordStatus = "present"
	RecordStatusOD      AttendanceRecordStatus = "od"
)

// AttendanceSession is one class meeting during which students mark attendance.
type AttendanceSession struct {
	ID           string                  `db:"id" json:"id"`
	TeacherID    string                  `db:"teacher_id" json:"teacher_id"`
	ClassID      string                  `db:"class_id" json:"class_id"`
	SubjectID    string                  `db:"subject_id" json:"subject_id"`
	AssignmentID *string                 `db:"assignment_id" json:"assignment_id,omitempty"`
	SessionDate  Date                    `db:"session_date" json:"session_date"`
	DayOrder     *int                    `db:"day_order" json:"day_order,omitempty"`
	Status       AttendanceSessionStatus `db:"status" json:"status"`
	OpenedAt     time.Time               `db:"opened_at" json:"opened_at"`
	ClosesAt     time.Time               `db:"closes_at" json:"closes_at"`
	ClosedAt     *time.Time              `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt    time.Time               `db:"created_at" json:"created_at"`
}

// AcceptsMarks reports whether students can still mark attendance at now.
func (s AttendanceSession) AcceptsMarks(now time.Time) bool {
	return s.Status == SessionStatusOpen && now.Before(s.ClosesAt)
}

// AttendanceRecord stores one student's mark for a session.
type AttendanceRecord struct {
	ID        string                 `db:"id" json:"id"`
	SessionID string                 `db:"session_id" json:"session_id"`
	StudentID string                 `db:"student_id" json:"student_id"`
	Status    AttendanceRecordStatus `db:"status" json:"status"`
	MarkedAt  time.Time              `db:"marked_at" json:"marked_at"`
}

// AttendanceRecordDetail adds the student's identity for rosters.
type AttendanceRecordDetail struct {
	AttendanceRecord
	RegisterNo  string `db:"register_no" json:"register_no"`
	StudentName string `db:"student_name" json:"student_name"`
}

// SessionTicket carries the signed token students scan to mark attendance.
type SessionTicket struct {
	Session   AttendanceSession `json:"session"`
	Token     string            `json:"token"`
	URL       string            `json:"url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// AutoSessionResult summarises an auto-start run for one teacher.
type AutoSessionResult struct {
	DayOrder DayOrderState       `json:"day_order"`
	Created  []AttendanceSession `json:"created"`
	Skipped  []string            `json:"skipped_assignment_ids"`
}
