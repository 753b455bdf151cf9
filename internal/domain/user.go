package domain

import (
	"strings"
	"time"
)

// DefaultUserName is used when a buyer arrives without a name.
const DefaultUserName = "Cliente"

// User is a buyer identity. A non-empty phone, CPF or email belongs to
// at most one user.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CPF       string    `json:"cpf"`
	Email     string    `json:"email"`
	BirthDate string    `json:"birthDate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserQuery carries the identifiers a lookup may match on. A user
// matches when ANY supplied identifier is equal after normalization.
type UserQuery struct {
	Phone string
	CPF   string
	Email string
}

// Empty reports whether no identifier was supplied.
func (q UserQuery) Empty() bool {
	return q.Phone == "" && q.CPF == "" && q.Email == ""
}

// Normalize returns the query with every identifier in stored form.
func (q UserQuery) Normalize() UserQuery {
	return UserQuery{
		Phone: OnlyDigits(q.Phone),
		CPF:   OnlyDigits(q.CPF),
		Email: NormalizeEmail(q.Email),
	}
}

// UserInput is the mutable buyer payload accepted by the upsert.
type UserInput struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CPF       string `json:"cpf"`
	Email     string `json:"email"`
	BirthDate string `json:"birthDate"`
}

// Normalize cleans the input into stored form: digits-only phone and
// CPF, lowercased trimmed email, defaulted name.
func (in UserInput) Normalize() UserInput {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = DefaultUserName
	}

	return UserInput{
		Name:      name,
		Phone:     OnlyDigits(in.Phone),
		CPF:       OnlyDigits(in.CPF),
		Email:     NormalizeEmail(in.Email),
		BirthDate: strings.TrimSpace(in.BirthDate),
	}
}

// Query returns the identifier set of the input.
func (in UserInput) Query() UserQuery {
	return UserQuery{Phone: in.Phone, CPF: in.CPF, Email: in.Email}.Normalize()
}

// OnlyDigits strips everything but decimal digits.
func OnlyDigits(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
