package request

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rifadigital/raffle-api/internal/domain"
)

type SetConfigRequest struct {
	TotalTickets int `json:"totalTickets"`
}

func (req *SetConfigRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.TotalTickets, validation.Required, validation.Min(1), validation.Max(domain.MaxTotalTickets)),
	)
}
