package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veerly/veerly-api/middleware"
	"github.com/veerly/veerly-api/models"
	"github.com/veerly/veerly-api/services"
)

type GroupHandler struct {
	DB     *sql.DB
	Groups *services.GroupService
}

func NewGroupHandler(db *sql.DB) *GroupHandler {
	return &GroupHandler{DB: db, Groups: services.NewGroupService(db)}
}

// GetGroups returns the groups the caller owns plus the ones joined through
// an accepted invitation, each flagged is_owner.
func (h *GroupHandler) GetGroups(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT g.id, g.group_name, COALESCE(g.collaborators, ''), g.user_id, g.created_at
		FROM groups g
		WHERE g.user_id = $1
		   OR EXISTS(SELECT 1 FROM group_members gm WHERE gm.group_id = g.id AND gm.user_id = $1)
		ORDER BY g.created_at DESC
	`, userID)

	if err != nil {
		log.Printf("Error fetching groups for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}
	defer rows.Close()

	groups := []map[string]interface{}{}
	for rows.Next() {
		var group models.Group
		if err := rows.Scan(&group.ID, &group.GroupName, &group.Collaborators, &group.UserID, &group.CreatedAt); err != nil {
			continue
		}

		groups = append(groups, map[string]interface{}{
			"id":            group.ID,
			"group_name":    group.GroupName,
			"collaborators": group.Collaborators,
			"user_id":       group.UserID,
			"created_at":    group.CreatedAt,
			"is_owner":      group.UserID == userID,
		})
	}

	c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) AddGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Group name is required"})
		return
	}

	var groupID string
	err := h.DB.QueryRow(`
		INSERT INTO groups (group_name, collaborators, user_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, req.GroupName, req.Collaborators, userID).Scan(&groupID)

	if err != nil {
		log.Printf("Error creating group: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	log.Printf("✅ Group %s created by user %s", groupID, userID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Group created successfully",
		"group": gin.H{
			"id":            groupID,
			"group_name":    req.GroupName,
			"collaborators": req.Collaborators,
			"user_id":       userID,
		},
	})
}

// GetGroup returns a group's details and member roster. Owner or member
// only; anyone else gets the same 404 as a missing group.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)
	groupID := c.Param("id")

	hasAccess, err := h.Groups.HasAccess(groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check access"})
		return
	}
	if !hasAccess {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found or not authorized"})
		return
	}

	var group models.Group
	err = h.DB.QueryRow(`
		SELECT id, group_name, COALESCE(collaborators, ''), user_id, created_at
		FROM groups
		WHERE id = $1
	`, groupID).Scan(&group.ID, &group.GroupName, &group.Collaborators, &group.UserID, &group.CreatedAt)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found or not authorized"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}

	members := []map[string]interface{}{}
	rows, err := h.DB.Query(`
		SELECT gm.user_id, u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), gm.joined_at
		FROM group_members gm
		INNER JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at ASC
	`, groupID)

	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var memberID, email, firstName, lastName string
			var joinedAt sql.NullTime
			if err := rows.Scan(&memberID, &email, &firstName, &lastName, &joinedAt); err != nil {
				continue
			}
			members = append(members, map[string]interface{}{
				"user_id":    memberID,
				"email":      email,
				"first_name": firstName,
				"last_name":  lastName,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            group.ID,
		"group_name":    group.GroupName,
		"collaborators": group.Collaborators,
		"user_id":       group.UserID,
		"created_at":    group.CreatedAt,
		"is_owner":      group.UserID == userID,
		"members":       members,
	})
}

// UpdateGroup renames a group. Owner only; the conditional UPDATE makes a
// non-owner indistinguishable from a missing group.
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)
	groupID := c.Param("id")

	var req models.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Group name is required"})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE groups
		SET group_name = $1, collaborators = $2
		WHERE id = $3 AND user_id = $4
	`, req.GroupName, req.Collaborators, groupID, userID)

	if err != nil {
		log.Printf("Error updating group %s: %v", groupID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found or not authorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Group updated successfully",
		"group": gin.H{
			"id":            groupID,
			"group_name":    req.GroupName,
			"collaborators": req.Collaborators,
			"user_id":       userID,
		},
	})
}

// DeleteGroup removes a group; courses, memberships and invitations go with
// it through the CASCADE constraints.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)
	groupID := c.Param("id")

	result, err := h.DB.Exec(`
		DELETE FROM groups WHERE id = $1 AND user_id = $2
	`, groupID, userID)

	if err != nil {
		log.Printf("Error deleting group %s: %v", groupID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete group"})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found or not authorized"})
		return
	}

	log.Printf("✅ Group %s deleted by user %s", groupID, userID)

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted successfully"})
}
