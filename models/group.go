package models

import "time"

type Group struct {
	ID            string    `json:"id"`
	GroupName     string    `json:"group_name"`
	Collaborators string    `json:"collaborators,omitempty"`
	UserID        string    `json:"user_id"` // owner
	CreatedAt     time.Time `json:"created_at"`
}

type GroupMember struct {
	ID       string    `json:"id"`
	GroupID  string    `json:"group_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
	User     *User     `json:"user,omitempty"`
}

type GroupRequest struct {
	GroupName     string `json:"group_name" binding:"required"`
	Collaborators string `json:"collaborators"`
}
