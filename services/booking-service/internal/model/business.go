package model

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Business is the tenant root. Timezone is stored for display only.
type Business struct {
	ID        string
	OwnerID   string
	Name      string
	Slug      string
	Industry  string
	Email     string
	Phone     string
	Address   string
	Timezone  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Customer struct {
	ID         string
	BusinessID string
	Name       string
	Email      string
	Phone      string
	Notes      string
	CreatedAt  time.Time
}
