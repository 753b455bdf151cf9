package request

import (
	"errors"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rifadigital/raffle-api/internal/domain"
)

// Lookahead patterns reject lazily typed identifiers that are the
// right length but all one digit.
var (
	phonePattern = regexp2.MustCompile(`^(?!(\d)\1+$)\d{10,13}$`, regexp2.None)
	cpfPattern   = regexp2.MustCompile(`^(?!(\d)\1{10}$)\d{11}$`, regexp2.None)
)

type Buyer struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CPF       string `json:"cpf"`
	Email     string `json:"email"`
	BirthDate string `json:"birthDate"`
}

func (b Buyer) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Name, validation.Length(0, 255)),
		validation.Field(&b.Phone, validation.Required, validation.By(digitsRule(phonePattern, "invalid phone"))),
		validation.Field(&b.CPF, validation.By(digitsRule(cpfPattern, "invalid cpf"))),
		validation.Field(&b.Email, validation.Length(0, 255)),
	)
}

// Input maps the request buyer onto the domain payload.
func (b Buyer) Input() domain.UserInput {
	return domain.UserInput{
		Name:      b.Name,
		Phone:     b.Phone,
		CPF:       b.CPF,
		Email:     b.Email,
		BirthDate: b.BirthDate,
	}
}

type CreateChargeRequest struct {
	Amount      float64 `json:"amount"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description"`
	Buyer       Buyer   `json:"buyer"`
}

func (req *CreateChargeRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Amount, validation.Required, validation.Min(0.01)),
		validation.Field(&req.Quantity, validation.Required, validation.Min(domain.MinPurchase)),
		validation.Field(&req.Description, validation.Length(0, 255)),
	)
	if err != nil {
		return err
	}

	return req.Buyer.Validate()
}

// digitsRule validates the digits-only form of an identifier so
// formatting characters ("+55 (11) 99999-0000") never fail a valid
// value. Empty values pass; pair with Required when mandatory.
func digitsRule(pattern *regexp2.Regexp, msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}

		ok, err := pattern.MatchString(domain.OnlyDigits(s))
		if err != nil || !ok {
			return errors.New(msg)
		}

		return nil
	}
}
