package models

import "time"

// ODStatus is the decision state of an on-duty request.
type ODStatus string

const (
	ODStatusPending  ODStatus = "pending"
	ODStatusApproved ODStatus = "approved"
	ODStatusRejected ODStatus = "rejected"
)

// ODRequest is a student's request to be marked on duty for an event.
type ODRequest struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	EventName  string     `db:"event_name" json:"event_name"`
	Reason     string     `db:"reason" json:"reason"`
	StartDate  Date       `db:"start_date" json:"start_date"`
	EndDate    Date       `db:"end_date" json:"end_date"`
	Status     ODStatus   `db:"status" json:"status"`
	DecidedBy  *string    `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt  *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	Remarks    *string    `db:"remarks" json:"remarks,omitempty"`
	VerifiedBy *string    `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// ODRequestDetail adds student identity for reviewers and security staff.
type ODRequestDetail struct {
	ODRequest
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	RegisterNo   string `db:"register_no" json:"register_no"`
}

// ODFilter narrows OD request listings.
type ODFilter struct {
	StudentID string
	Status    ODStatus
	Page      int
	PageSize  int
}

// ODVerification is the security desk's view of a request.
type ODVerification struct {
	Valid   bool            `json:"valid"`
	Reason  string          `json:"reason,omitempty"`
	Request ODRequestDetail `json:"request"`
}
