package models

import "time"

// AbsenceStatusActive is the status assigned to newly recorded absences.
const AbsenceStatusActive = "active"

// TeacherAbsence records a teacher being unavailable over an inclusive date range.
type TeacherAbsence struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	StartDate Date      `db:"start_date" json:"start_date"`
	EndDate   Date      `db:"end_date" json:"end_date"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClassTransfer hands one class/subject to a substitute for a single date.
type ClassTransfer struct {
	ID                  string    `db:"id" json:"id"`
	AbsenceID           string    `db:"absence_id" json:"absence_id"`
	OriginalTeacherID   string    `db:"original_teacher_id" json:"original_teacher_id"`
	SubstituteTeacherID string    `db:"substitute_teacher_id" json:"substitute_teacher_id"`
	ClassID             string    `db:"class_id" json:"class_id"`
	SubjectID           string    `db:"subject_id" json:"subject_id"`
	TransferDate        Date      `db:"transfer_date" json:"transfer_date"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// ClassTransferDetail denormalises display fields for a transfer.
type ClassTransferDetail struct {
	ClassTransfer
	SubstituteName  string `db:"substitute_name" json:"substitute_name"`
	SubstituteEmail string `db:"substitute_email" json:"substitute_email"`
	ClassName       string `db:"class_name" json:"class_name"`
	ClassSection    string `db:"class_section" json:"class_section"`
	SubjectName     string `db:"subject_name" json:"subject_name"`
	SubjectCode     string `db:"subject_code" json:"subject_code"`
}

// TeacherAbsenceDetail is an absence with its nested transfers.
type TeacherAbsenceDetail struct {
	TeacherAbsence
	Transfers []ClassTransferDetail `json:"transfers"`
}

// AbsenceFilter narrows absence listings. StartDate is a lower bound on the absence start
// and EndDate an upper bound on the absence end.
type AbsenceFilter struct {
	TeacherID string
	StartDate *Date
	EndDate   *Date
}

// TransferFilter narrows transfer listings for substitutes.
type TransferFilter struct {
	SubstituteTeacherID string
	Date                *Date
}

// TransferRequest is one class/subject handed to a substitute on the listed dates.
type TransferRequest struct {
	ClassID             string `json:"classId" validate:"required"`
	SubjectID           string `json:"subjectId" validate:"required"`
	SubstituteTeacherID string `json:"substituteTeacherId" validate:"required"`
	Dates               []Date `json:"dates" validate:"required"`
}

// RecordAbsenceRequest is the absence submission payload.
type RecordAbsenceRequest struct {
	TeacherID string            `json:"teacherId" validate:"required"`
	StartDate *Date             `json:"startDate" validate:"required"`
	EndDate   *Date             `json:"endDate" validate:"required"`
	Reason    *string           `json:"reason,omitempty" validate:"omitempty,max=500"`
	Transfers []TransferRequest `json:"transfers" validate:"dive"`
}

// RecordAbsenceResult reports the created absence and how many transfers were written.
// Warning is set when the absence was stored but its transfers were not.
type RecordAbsenceResult struct {
	AbsenceID     string  `json:"absenceId"`
	TransferCount int     `json:"transferCount"`
	Warning       *string `json:"warning,omitempty"`
	ErrorCode     string  `json:"errorCode,omitempty"`
}
