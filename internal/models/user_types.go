package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account kinds. Suppliers own a shop and upload price lists; buyers build
// baskets and place orders.
const (
	UserTypeShop  = "shop"
	UserTypeBuyer = "buyer"
)

// User is the model for the 'users' table.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	FullName     string `json:"fullName" db:"full_name"`
	Type         string `json:"type" db:"type"`
	IsVerified   bool   `json:"isVerified" db:"is_verified"`

	VerificationToken *string `json:"-" db:"verification_token"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Contact is a delivery contact attached to a placed order.
type Contact struct {
	ID        int64   `json:"id" db:"id"`
	UserID    int64   `json:"userId" db:"user_id"`
	City      string  `json:"city" db:"city"`
	Street    string  `json:"street" db:"street"`
	House     string  `json:"house" db:"house"`
	Apartment *string `json:"apartment,omitempty" db:"apartment"`
	Phone     string  `json:"phone" db:"phone"`
}

// Password wraps bcrypt hashing so handlers never touch the raw library.
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
