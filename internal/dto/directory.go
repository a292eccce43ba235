package dto

// CreateTeacherRequest registers a teacher.
type CreateTeacherRequest struct {
	FullName   string `json:"full_name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required,max=32"`
}

// CreateClassRequest registers a class section.
type CreateClassRequest struct {
	Name       string `json:"name" validate:"required,max=80"`
	Section    string `json:"section" validate:"max=8"`
	Department string `json:"department" validate:"required,max=32"`
}

// CreateSubjectRequest registers a subject.
type CreateSubjectRequest struct {
	Code string `json:"code" validate:"required,max=16"`
	Name string `json:"name" validate:"required,max=120"`
}
