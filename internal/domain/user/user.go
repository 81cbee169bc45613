package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate covers a uniqueness violation on username, email or
	// phone number.
	ErrDuplicate = errors.New("username, email or phone number already exists")
)

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PhoneNumber  string    `json:"phoneNumber"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateRequest carries the attributes of a new account. The password
// is already hashed by the time this reaches a store.
type CreateRequest struct {
	FirstName    string
	LastName     string
	PhoneNumber  string
	Email        string
	Username     string
	PasswordHash string
}

// Profile is the client-facing shape of a user record. It carries every
// stored attribute except the password hash.
type Profile struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	PhoneNumber string    `json:"phoneNumber"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		Username:    u.Username,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
