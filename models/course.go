package models

import (
	"database/sql"
	"time"
)

// Course statuses, kept in French as displayed by the client.
const (
	StatusAvailable  = "Disponible"
	StatusAssigned   = "Prise en charge"
	StatusInProgress = "En cours"
	StatusCompleted  = "Terminée"
)

type Course struct {
	ID                string         `json:"id"`
	ClientName        string         `json:"client_name"`
	ClientNumber      string         `json:"client_number"`
	Date              time.Time      `json:"date"`
	DepartureLocation string         `json:"departure_location"`
	ArrivalLocation   string         `json:"arrival_location"`
	Schedule          string         `json:"schedule"`
	VehicleType       string         `json:"vehicle_type"`
	NumberOfPeople    int            `json:"number_of_people"`
	NumberOfBags      int            `json:"number_of_bags"`
	BagType           string         `json:"bag_type,omitempty"`
	AdditionalNotes   string         `json:"additional_notes,omitempty"`
	GroupID           sql.NullString `json:"-"`
	UserID            sql.NullString `json:"-"`
	Status            string         `json:"status"`
	StartTime         sql.NullTime   `json:"-"`
	EndTime           sql.NullTime   `json:"-"`
	Price             sql.NullString `json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
}

type CourseRequest struct {
	ClientName        string `json:"client_name" binding:"required"`
	ClientNumber      string `json:"client_number" binding:"required"`
	Date              string `json:"date" binding:"required"`
	DepartureLocation string `json:"departure_location" binding:"required"`
	ArrivalLocation   string `json:"arrival_location" binding:"required"`
	Schedule          string `json:"schedule" binding:"required"`
	VehicleType       string `json:"vehicle_type" binding:"required"`
	NumberOfPeople    int    `json:"number_of_people" binding:"required"`
	NumberOfBags      int    `json:"number_of_bags" binding:"required"`
	BagType           string `json:"bag_type"`
	AdditionalNotes   string `json:"additional_notes"`
}

type SendReceiptRequest struct {
	Price string `json:"price" binding:"required"`
}

// Receipt is the projection of a completed course joined with its driver
// and group, shaped for the printable booking receipt.
type Receipt struct {
	ID                string  `json:"id"`
	ClientName        string  `json:"client_name"`
	ClientNumber      string  `json:"client_number"`
	Date              string  `json:"date"`
	Schedule          string  `json:"schedule"`
	DepartureLocation string  `json:"departure_location"`
	ArrivalLocation   string  `json:"arrival_location"`
	VehicleType       string  `json:"vehicle_type"`
	NumberOfPeople    int     `json:"number_of_people"`
	NumberOfBags      int     `json:"number_of_bags"`
	Status            string  `json:"status"`
	Price             *string `json:"price"`
	DriverFirstName   string  `json:"driver_first_name"`
	DriverLastName    string  `json:"driver_last_name"`
	GroupName         string  `json:"group_name,omitempty"`
}
