package domain

import "time"

// SessionData is what the server keeps for one session id.
type SessionData struct {
	UserID    int64     `json:"user_id,omitempty"`
	UserName  string    `json:"user_name,omitempty"`
	UserEmail string    `json:"user_email,omitempty"`
	UserRole  string    `json:"user_role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Authenticated is true iff both the user id and email are present.
func (d SessionData) Authenticated() bool {
	return d.UserID != 0 && d.UserEmail != ""
}
