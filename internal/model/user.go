package model

import (
	"strings"
	"time"
)

// Role distinguishes administrators from applicants.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Category is the intake a user account belongs to.  The same email may be
// registered once per category.
type Category string

const (
	CategoryHostel Category = "hostel"
	CategorySchool Category = "school"
)

// ParseCategory normalises raw and reports whether it is known.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	return c, c == CategoryHostel || c == CategorySchool
}

// User represents a row of the users table.
//
// Fields:
//
//	ID           – primary key identifier.
//	FullName     – display name.
//	Email        – lower-cased email, unique together with Category.
//	Mobile       – optional phone number.
//	PasswordHash – bcrypt hash.
//	Role         – admin or user.
//	Category     – hostel or school.
//	CreatedAt    – creation timestamp.
//	LastLogin    – last successful login, nil if never.
type User struct {
	ID           int64
	FullName     string
	Email        string
	Mobile       string
	PasswordHash string
	Role         Role
	Category     Category
	CreatedAt    time.Time
	LastLogin    *time.Time
}
