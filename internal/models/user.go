package models

import "time"

type User struct {
	ID                string
	Username          string
	Email             string
	FullName          string
	PasswordHash      []byte
	RoleID            string
	Role              Role
	IsActive          bool
	IsLocked          bool
	FailedLoginCount  int
	LastLoginAt       *time.Time
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
