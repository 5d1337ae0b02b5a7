package domain

// DefaultRole is stored for users created without an explicit role. It is never checked.
const DefaultRole = "user"

// User is a credential record. Users are created out-of-band and never mutated by the web app.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
}
