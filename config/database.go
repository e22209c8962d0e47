package config

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func InitDB() (*sql.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(255),
			last_name VARCHAR(255),
			vehicle_type VARCHAR(100),
			license_plate VARCHAR(50),
			capacity INTEGER,
			totp_secret VARCHAR(255),
			totp_enabled BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS groups (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			group_name VARCHAR(255) NOT NULL,
			collaborators TEXT,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS group_members (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			group_id UUID REFERENCES groups(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(group_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS group_invitations (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			group_id UUID REFERENCES groups(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			invited_by UUID REFERENCES users(id),
			email VARCHAR(255) NOT NULL,
			token VARCHAR(255) UNIQUE NOT NULL,
			status VARCHAR(50) DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		// group_id reste NULL pour les anciennes courses hors groupe
		`CREATE TABLE IF NOT EXISTS courses (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			client_name VARCHAR(255) NOT NULL,
			client_number VARCHAR(50) NOT NULL,
			date DATE NOT NULL,
			departure_location VARCHAR(255) NOT NULL,
			arrival_location VARCHAR(255) NOT NULL,
			schedule VARCHAR(50) NOT NULL,
			vehicle_type VARCHAR(100) NOT NULL,
			number_of_people INTEGER NOT NULL,
			number_of_bags INTEGER NOT NULL,
			bag_type VARCHAR(100),
			additional_notes TEXT,
			group_id UUID REFERENCES groups(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id) ON DELETE SET NULL,
			status VARCHAR(50) DEFAULT 'Disponible',
			start_time TIMESTAMP,
			end_time TIMESTAMP,
			price NUMERIC(10,2),
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_invitations_user_id ON group_invitations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_invitations_token ON group_invitations(token)`,
		`CREATE INDEX IF NOT EXISTS idx_courses_group_id ON courses(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_courses_user_id ON courses(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_courses_status ON courses(status)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
