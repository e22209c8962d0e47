package models

import "time"

// Invitation statuses. Rejected is terminal; a fresh invitation row is
// created if the owner invites the same user again.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
)

type GroupInvitation struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	UserID    string    `json:"user_id"`
	InvitedBy string    `json:"invited_by"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type InviteRequest struct {
	GroupID string `json:"groupId" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
}
