package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/veerly/veerly-api/middleware"
	"github.com/veerly/veerly-api/models"
	"github.com/veerly/veerly-api/services"
)

type InvitationHandler struct {
	DB     *sql.DB
	Groups *services.GroupService
	Email  *services.EmailService
}

func NewInvitationHandler(db *sql.DB, email *services.EmailService) *InvitationHandler {
	return &InvitationHandler{DB: db, Groups: services.NewGroupService(db), Email: email}
}

// InviteUser invites an existing user into a group. Owner only; the invited
// email must belong to a registered account.
func (h *InvitationHandler) InviteUser(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isOwner, err := h.Groups.IsOwner(req.GroupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check ownership"})
		return
	}
	if !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the group owner can invite"})
		return
	}

	// L'invité doit déjà avoir un compte
	var invitedUserID string
	err = h.DB.QueryRow(`SELECT id FROM users WHERE email = $1`, req.Email).Scan(&invitedUserID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "No user registered with this email"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if invitedUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot invite yourself"})
		return
	}

	var alreadyMember bool
	err = h.DB.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM group_members
			WHERE group_id = $1 AND user_id = $2
		)
	`, req.GroupID, invitedUserID).Scan(&alreadyMember)

	if err == nil && alreadyMember {
		c.JSON(http.StatusConflict, gin.H{"error": "User is already a member"})
		return
	}

	// Only pending invitations block a new one; a rejected invitation can be
	// followed by a fresh invite.
	var pendingInvitation bool
	err = h.DB.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM group_invitations
			WHERE group_id = $1 AND user_id = $2 AND status = 'pending'
		)
	`, req.GroupID, invitedUserID).Scan(&pendingInvitation)

	if err == nil && pendingInvitation {
		c.JSON(http.StatusConflict, gin.H{"error": "Invitation already sent"})
		return
	}

	token := uuid.New().String()

	var invitationID string
	err = h.DB.QueryRow(`
		INSERT INTO group_invitations (group_id, user_id, invited_by, email, token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, req.GroupID, invitedUserID, userID, req.Email, token).Scan(&invitationID)

	if err != nil {
		log.Printf("Error creating invitation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invitation"})
		return
	}

	var groupName, inviterFirstName, inviterLastName string
	err = h.DB.QueryRow(`
		SELECT g.group_name, COALESCE(u.first_name, ''), COALESCE(u.last_name, '')
		FROM groups g, users u
		WHERE g.id = $1 AND u.id = $2
	`, req.GroupID, userID).Scan(&groupName, &inviterFirstName, &inviterLastName)

	inviterName := inviterFirstName + " " + inviterLastName
	if err != nil {
		inviterName = "Un chauffeur"
		groupName = "un groupe"
	}

	if err := h.Email.SendInvitation(req.Email, inviterName, groupName, token); err != nil {
		log.Printf("⚠️ Invitation email to %s failed: %v", req.Email, err)
		c.JSON(http.StatusCreated, gin.H{
			"id":      invitationID,
			"message": "Invitation created but email failed to send",
			"warning": "The invitee will still see the invitation in the app",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      invitationID,
		"message": "Invitation sent successfully",
	})
}

// GetInvitations returns the caller's pending invitations with group and
// inviter names for display.
func (h *InvitationHandler) GetInvitations(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT i.id, i.group_id, g.group_name, i.status, i.created_at,
		       COALESCE(u.first_name, ''), COALESCE(u.last_name, '')
		FROM group_invitations i
		INNER JOIN groups g ON i.group_id = g.id
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.user_id = $1 AND i.status = 'pending'
		ORDER BY i.created_at DESC
	`, userID)

	if err != nil {
		log.Printf("Error fetching invitations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invitations"})
		return
	}
	defer rows.Close()

	invitations := []map[string]interface{}{}
	for rows.Next() {
		var inv models.GroupInvitation
		var groupName, inviterFirstName, inviterLastName string
		err := rows.Scan(&inv.ID, &inv.GroupID, &groupName, &inv.Status, &inv.CreatedAt,
			&inviterFirstName, &inviterLastName)
		if err != nil {
			continue
		}

		invitations = append(invitations, map[string]interface{}{
			"id":           inv.ID,
			"group_id":     inv.GroupID,
			"group_name":   groupName,
			"status":       inv.Status,
			"created_at":   inv.CreatedAt,
			"inviter_name": inviterFirstName + " " + inviterLastName,
		})
	}

	c.JSON(http.StatusOK, invitations)
}

// AcceptInvitation flips a pending invitation to accepted and inserts the
// membership. The conditional UPDATE is the idempotency guard: a second
// accept matches zero rows and cannot create a second membership.
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	invitationID := c.Param("id")

	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var groupID string
	err := h.DB.QueryRow(`
		UPDATE group_invitations
		SET status = 'accepted'
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
		RETURNING group_id
	`, invitationID, userID).Scan(&groupID)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found or already processed"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept invitation"})
		return
	}

	_, err = h.DB.Exec(`
		INSERT INTO group_members (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID)

	if err != nil {
		log.Printf("Error adding member after accept: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
		return
	}

	log.Printf("✅ User %s joined group %s", userID, groupID)

	c.JSON(http.StatusOK, gin.H{
		"message":  "Invitation accepted successfully",
		"group_id": groupID,
	})
}

// RejectInvitation flips a pending invitation to rejected. Terminal; the
// owner has to send a new invitation to retry.
func (h *InvitationHandler) RejectInvitation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	invitationID := c.Param("id")

	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE group_invitations
		SET status = 'rejected'
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
	`, invitationID, userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject invitation"})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found or already processed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation rejected"})
}
