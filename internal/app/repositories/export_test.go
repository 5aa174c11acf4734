package repositories

var VoteConstraintError = voteConstraintError

const StudentWorkshopConstraint = studentWorkshopConstraint
