package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	VehicleType  string    `json:"vehicle_type,omitempty"`
	LicensePlate string    `json:"license_plate,omitempty"`
	Capacity     int       `json:"capacity,omitempty"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	TOTPSecret   string    `json:"-"` // Never expose in JSON
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	VehicleType  string `json:"vehicle_type"`
	LicensePlate string `json:"license_plate"`
	Capacity     int    `json:"capacity"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type UpdateProfileRequest struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	VehicleType  string `json:"vehicle_type"`
	LicensePlate string `json:"license_plate"`
	Capacity     int    `json:"capacity"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

type VerifyTOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

type DisableTOTPRequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}
