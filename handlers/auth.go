package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veerly/veerly-api/models"
	"github.com/veerly/veerly-api/utils"
)

type AuthHandler struct {
	DB *sql.DB
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var exists bool
	err := h.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", req.Email).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	var userID string
	err = h.DB.QueryRow(`
		INSERT INTO users (email, password_hash, first_name, last_name, vehicle_type, license_plate, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, req.Email, passwordHash, req.FirstName, req.LastName, req.VehicleType, req.LicensePlate, req.Capacity).Scan(&userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	log.Printf("✅ User %s registered", userID)

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "id": userID})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID, passwordHash string
	var totpSecret sql.NullString
	var totpEnabled bool

	err := h.DB.QueryRow(`
		SELECT id, password_hash, totp_secret, totp_enabled
		FROM users
		WHERE email = $1
	`, req.Email).Scan(&userID, &passwordHash, &totpSecret, &totpEnabled)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !utils.CheckPassword(req.Password, passwordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if totpEnabled {
		if req.TOTPCode == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "2FA code required", "requires_2fa": true})
			return
		}

		if totpSecret.Valid {
			valid, err := utils.VerifyTOTP(totpSecret.String, req.TOTPCode)
			if err != nil || !valid {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid 2FA code"})
				return
			}
		}
	}

	token, err := utils.GenerateAccessToken(userID, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	log.Printf("✅ User %s logged in", req.Email)

	c.JSON(http.StatusOK, gin.H{"token": token})
}
