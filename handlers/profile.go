package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/veerly/veerly-api/middleware"
	"github.com/veerly/veerly-api/models"
	"github.com/veerly/veerly-api/utils"
)

type ProfileHandler struct {
	DB *sql.DB
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	err := h.DB.QueryRow(`
		SELECT id, email,
		       COALESCE(first_name, ''),
		       COALESCE(last_name, ''),
		       COALESCE(vehicle_type, ''),
		       COALESCE(license_plate, ''),
		       COALESCE(capacity, 0),
		       totp_enabled, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.VehicleType,
		&user.LicensePlate,
		&user.Capacity,
		&user.TOTPEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	if err != nil {
		log.Printf("Error fetching profile: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile applies a partial update: only the fields present in the
// request body are written.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := []string{}
	values := []interface{}{}

	addUpdate := func(column string, value interface{}) {
		values = append(values, value)
		updates = append(updates, fmt.Sprintf("%s = $%d", column, len(values)))
	}

	if req.Email != "" {
		if !emailPattern.MatchString(req.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
			return
		}
		addUpdate("email", req.Email)
	}
	if req.FirstName != "" {
		addUpdate("first_name", req.FirstName)
	}
	if req.LastName != "" {
		addUpdate("last_name", req.LastName)
	}
	if req.VehicleType != "" {
		addUpdate("vehicle_type", req.VehicleType)
	}
	if req.LicensePlate != "" {
		addUpdate("license_plate", req.LicensePlate)
	}
	if req.Capacity > 0 {
		addUpdate("capacity", req.Capacity)
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	values = append(values, userID)
	query := fmt.Sprintf(
		"UPDATE users SET %s, updated_at = NOW() WHERE id = $%d",
		strings.Join(updates, ", "), len(values),
	)

	if _, err := h.DB.Exec(query, values...); err != nil {
		log.Printf("Error updating profile for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	log.Printf("✅ Profile updated for user %s", userID)

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

func (h *ProfileHandler) UpdatePassword(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var currentHash string
	err := h.DB.QueryRow(`
		SELECT password_hash FROM users WHERE id = $1
	`, userID).Scan(&currentHash)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}

	if !utils.CheckPassword(req.CurrentPassword, currentHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
		return
	}

	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash new password"})
		return
	}

	_, err = h.DB.Exec(`
		UPDATE users
		SET password_hash = $1, updated_at = NOW()
		WHERE id = $2
	`, newHash, userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	log.Printf("✅ Password updated for user %s", userID)

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// GetCourseHistory returns the courses the caller drove, most recent first.
func (h *ProfileHandler) GetCourseHistory(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, client_name, client_number, date, departure_location, arrival_location,
		       schedule, vehicle_type, number_of_people, number_of_bags,
		       COALESCE(bag_type, ''), COALESCE(additional_notes, ''),
		       status, start_time, end_time, price, created_at
		FROM courses
		WHERE user_id = $1
		ORDER BY date DESC, schedule ASC
	`, userID)

	if err != nil {
		log.Printf("Error fetching course history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch course history"})
		return
	}
	defer rows.Close()

	courses := []map[string]interface{}{}
	for rows.Next() {
		var course models.Course
		err := rows.Scan(&course.ID, &course.ClientName, &course.ClientNumber, &course.Date,
			&course.DepartureLocation, &course.ArrivalLocation, &course.Schedule,
			&course.VehicleType, &course.NumberOfPeople, &course.NumberOfBags,
			&course.BagType, &course.AdditionalNotes,
			&course.Status, &course.StartTime, &course.EndTime, &course.Price, &course.CreatedAt)
		if err != nil {
			continue
		}
		courses = append(courses, courseToMap(course))
	}

	c.JSON(http.StatusOK, courses)
}

// ============================================================================
// 2FA MANAGEMENT
// ============================================================================

func (h *ProfileHandler) SetupTOTP(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var email string
	err := h.DB.QueryRow(`SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}

	secret, qrCode, err := utils.GenerateTOTPSecret(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate TOTP"})
		return
	}

	_, err = h.DB.Exec(`
		UPDATE users
		SET totp_secret = $1, updated_at = NOW()
		WHERE id = $2
	`, secret, userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store TOTP secret"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret":  secret,
		"qr_code": qrCode,
	})
}

func (h *ProfileHandler) VerifyTOTP(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.VerifyTOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var secret sql.NullString
	err := h.DB.QueryRow(`
		SELECT totp_secret FROM users WHERE id = $1
	`, userID).Scan(&secret)

	if err != nil || !secret.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "TOTP not set up"})
		return
	}

	valid, err := utils.VerifyTOTP(secret.String, req.Code)
	if err != nil || !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid TOTP code"})
		return
	}

	_, err = h.DB.Exec(`
		UPDATE users
		SET totp_enabled = TRUE, updated_at = NOW()
		WHERE id = $1
	`, userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enable 2FA"})
		return
	}

	log.Printf("✅ 2FA enabled for user %s", userID)

	c.JSON(http.StatusOK, gin.H{"message": "2FA enabled successfully", "enabled": true})
}

func (h *ProfileHandler) DisableTOTP(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.DisableTOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var passwordHash string
	var secret sql.NullString
	err := h.DB.QueryRow(`
		SELECT password_hash, totp_secret FROM users WHERE id = $1
	`, userID).Scan(&passwordHash, &secret)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify credentials"})
		return
	}

	if !utils.CheckPassword(req.Password, passwordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	if secret.Valid {
		valid, err := utils.VerifyTOTP(secret.String, req.Code)
		if err != nil || !valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid 2FA code"})
			return
		}
	}

	_, err = h.DB.Exec(`
		UPDATE users
		SET totp_enabled = FALSE, totp_secret = NULL, updated_at = NOW()
		WHERE id = $1
	`, userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disable 2FA"})
		return
	}

	log.Printf("✅ 2FA disabled for user %s", userID)

	c.JSON(http.StatusOK, gin.H{"message": "2FA disabled successfully", "enabled": false})
}
