package dto

// CreateWorkshopRequest is the payload of POST /workshops.
// Date is an ISO-8601 string; a zone-less value is read as UTC.
type CreateWorkshopRequest struct {
	Title       string `json:"title" binding:"required,max=200" example:"Intro to Rust"`
	Description string `json:"description" binding:"required,max=5000" example:"Ownership, borrowing and lifetimes"`
	Date        string `json:"date" binding:"required" example:"2024-01-01T10:00:00"`
}

// CastVoteRequest is the payload of POST /workshops/{id}/vote.
// Approved is a pointer so a missing field fails validation instead of reading as false.
type CastVoteRequest struct {
	Approved *bool `json:"approved" binding:"required" example:"true"`
}

// UpdateStatusRequest is the payload of PATCH /workshops/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved rejected" example:"approved" enums:"pending,approved,rejected"`
}
