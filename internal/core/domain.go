package core

import (
	"errors"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record. The category
	// descriptor is denormalized onto the record at creation time so the
	// display stays stable even if the client's category set changes later.
	Transaction struct {
		ID            string
		UserID        string
		Amount        Money
		IsIncome      bool
		CategoryID    string
		CategoryName  string
		CategoryIcon  string
		CategoryColor string
		Note          string
		Date          time.Time // day of the event
		Time          time.Time // wall-clock instant of the event
		Image         string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	User struct {
		ID                   string
		Username             string
		Email                string
		Name                 string
		PasswordHash         string
		InitialBalance       Money
		HasSetInitialBalance bool
		CreatedAt            time.Time
		UpdatedAt            time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingCategory = errors.New("missing category")
	ErrMissingDate     = errors.New("missing date")
	ErrEmptyUsername   = errors.New("empty username")
	ErrEmptyPassword   = errors.New("empty password")
	ErrNoteTooLong     = errors.New("note too long (max 500 characters)")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the fields a client must supply. Amounts are always
// positive; whether the transaction adds or subtracts is carried by IsIncome.
func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.CategoryID) == "" || strings.TrimSpace(t.CategoryName) == "" {
		return ErrMissingCategory
	}
	if t.Date.IsZero() || t.Time.IsZero() {
		return ErrMissingDate
	}
	if len(t.Note) > 500 {
		return ErrNoteTooLong
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if u.PasswordHash == "" {
		return ErrEmptyPassword
	}
	return nil
}
