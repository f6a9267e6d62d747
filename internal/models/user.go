package models

// User is an operator allowed to drive the controller through the remote API.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // never exposed
}
