package models

import "time"

// Student represents a learner registered in a class.
type Student struct {
	ID         string    `db:"id" json:"id"`
	RegisterNo string    `db:"register_no" json:"register_no"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	ClassID    string    `db:"class_id" json:"class_id"`
	Department string    `db:"department" json:"department"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
