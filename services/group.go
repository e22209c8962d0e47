package services

import "database/sql"

type GroupService struct {
	DB *sql.DB
}

func NewGroupService(db *sql.DB) *GroupService {
	return &GroupService{DB: db}
}

// HasAccess reports whether the user owns the group or holds a membership
// row. The owner never has a group_members row; ownership alone grants
// access.
func (s *GroupService) HasAccess(groupID, userID string) (bool, error) {
	var hasAccess bool
	err := s.DB.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM groups WHERE id = $1 AND user_id = $2
			UNION
			SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2
		)
	`, groupID, userID).Scan(&hasAccess)
	if err != nil {
		return false, err
	}
	return hasAccess, nil
}

// IsOwner reports whether the user owns the group. Membership is not enough
// for rename, delete, invite or the driver roster.
func (s *GroupService) IsOwner(groupID, userID string) (bool, error) {
	var isOwner bool
	err := s.DB.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM groups WHERE id = $1 AND user_id = $2
		)
	`, groupID, userID).Scan(&isOwner)
	if err != nil {
		return false, err
	}
	return isOwner, nil
}
