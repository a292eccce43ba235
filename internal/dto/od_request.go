package dto

// CreateODRequest submits an on-duty request.
type CreateODRequest struct {
	EventName string `json:"event_name" validate:"required,max=200"`
	Reason    string `json:"reason" validate:"required,max=1000"`
	StartDate string `json:"start_date" validate:"required,yyyymmdd"`
	EndDate   string `json:"end_date" validate:"required,yyyymmdd"`
}

// ODDecisionRequest approves or rejects a request.
type ODDecisionRequest struct {
	Status  string  `json:"status" validate:"required,oneof=approved rejected"`
	Remarks *string `json:"remarks" validate:"omitempty,max=500"`
}
