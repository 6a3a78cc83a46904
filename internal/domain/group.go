package domain

import "time"

const MaxGroupNameLen = 100

type Group struct {
	ID        GroupID   `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	OwnerID   UserID    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type GroupMembership struct {
	GroupID  GroupID   `json:"group_id"`
	UserID   UserID    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}
