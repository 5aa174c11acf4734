package models

import "time"

// Workshop is a lecturer's proposal that students vote on.
type Workshop struct {
	ID          int64          `json:"id" db:"id" example:"1"`
	Title       string         `json:"title" db:"title" example:"Intro to Rust"`
	Description string         `json:"description" db:"description" example:"Ownership, borrowing and lifetimes"`
	LecturerID  int64          `json:"lecturerId" db:"lecturer_id" example:"1"`
	Status      WorkshopStatus `json:"status" db:"status" example:"pending" enums:"pending,approved,rejected"`
	Date        time.Time      `json:"date" db:"date" example:"2024-01-01T10:00:00Z"`
}

// StudentVote records one student's approve/decline decision on a workshop.
type StudentVote struct {
	ID         int64 `json:"id" db:"id" example:"1"`
	WorkshopID int64 `json:"workshopId" db:"workshop_id" example:"1"`
	StudentID  int64 `json:"studentId" db:"student_id" example:"2"`
	Approved   bool  `json:"approved" db:"approved" example:"true"`
}

// VotingStats is the tally derived from a workshop's votes.
type VotingStats struct {
	Total    int `json:"total" example:"2"`
	Approved int `json:"approved" example:"1"`
	Declined int `json:"declined" example:"1"`
}

// ComputeVotingStats counts votes; Declined is always Total - Approved.
func ComputeVotingStats(votes []*StudentVote) VotingStats {
	stats := VotingStats{Total: len(votes)}
	for _, v := range votes {
		if v.Approved {
			stats.Approved++
		}
	}
	stats.Declined = stats.Total - stats.Approved
	return stats
}

// WorkshopWithStats is a workshop enriched with its current tally.
type WorkshopWithStats struct {
	Workshop
	VotingStats VotingStats `json:"votingStats"`
}
