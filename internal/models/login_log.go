package models

import "time"

type LoginType string

const (
	LoginTypeSuccess LoginType = "success"
	LoginTypeFailed  LoginType = "failed"
)

// LoginLog is an append-only audit record of a login attempt. UserID is nil
// when the submitted username matched no account.
type LoginLog struct {
	ID           string
	UserID       *string
	Username     string
	LoginType    LoginType
	IPAddress    string
	UserAgent    string
	FailedReason string
	CreatedAt    time.Time
}
