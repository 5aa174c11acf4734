package models

// Role defines the user role type
type Role string

const (
	RoleLecturer Role = "lecturer"
	RoleStudent  Role = "student"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleLecturer || r == RoleStudent
}

// WorkshopStatus is the lecturer-controlled lifecycle state of a workshop.
type WorkshopStatus string

const (
	StatusPending  WorkshopStatus = "pending"
	StatusApproved WorkshopStatus = "approved"
	StatusRejected WorkshopStatus = "rejected"
)

// WorkshopStatuses lists every accepted status value.
var WorkshopStatuses = []WorkshopStatus{StatusPending, StatusApproved, StatusRejected}

// IsValid reports whether s is one of pending, approved or rejected.
func (s WorkshopStatus) IsValid() bool {
	for _, status := range WorkshopStatuses {
		if s == status {
			return true
		}
	}
	return false
}
