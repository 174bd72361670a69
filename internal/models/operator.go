package models

// Operator is an account allowed to use the admin API.
type Operator struct {
	ID           int    `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"` // don’t expose hash
}
