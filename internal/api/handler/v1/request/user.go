package request

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rifadigital/raffle-api/internal/domain"
)

// UpsertUserRequest accepts the buyer payload shape but requires at
// least one identifier so the upsert has something to match on.
type UpsertUserRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CPF       string `json:"cpf"`
	Email     string `json:"email"`
	BirthDate string `json:"birthDate"`
}

func (req *UpsertUserRequest) Validate() error {
	if req.Phone == "" && req.CPF == "" && req.Email == "" {
		return validation.NewError("request_no_identifier", "at least one of phone, cpf or email is required")
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Length(0, 255)),
		validation.Field(&req.Phone, validation.By(digitsRule(phonePattern, "invalid phone"))),
		validation.Field(&req.CPF, validation.By(digitsRule(cpfPattern, "invalid cpf"))),
		validation.Field(&req.Email, validation.Length(0, 255)),
	)
}

func (req *UpsertUserRequest) Input() domain.UserInput {
	return domain.UserInput{
		Name:      req.Name,
		Phone:     req.Phone,
		CPF:       req.CPF,
		Email:     req.Email,
		BirthDate: req.BirthDate,
	}
}
