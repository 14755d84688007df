package domain

import "time"

// User represents a person registered at a cultivation site.
type User struct {
	ID        string
	SiteID    string
	Name      string
	Role      string
	Token     string
	IsActive  bool
	CreatedAt time.Time
}

// Site represents a cultivation facility. Tasks, users, and compliance
// records are all scoped to a site.
type Site struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}
