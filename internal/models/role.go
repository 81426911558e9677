package models

import "time"

type Role struct {
	ID          string
	Code        string
	Name        string
	Description string
	IsSystem    bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Permission struct {
	ID        string
	Code      string
	Name      string
	Module    string
	IsActive  bool
	CreatedAt time.Time
}

type RolePermission struct {
	RoleID       string
	PermissionID string
}
