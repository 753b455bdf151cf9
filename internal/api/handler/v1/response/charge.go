package response

import (
	"github.com/rifadigital/raffle-api/internal/domain"
)

// CreateChargeResponse is what the checkout screen needs to render the
// payment step; the charge's internals stay server-side.
type CreateChargeResponse struct {
	ID               string  `json:"id"`
	TransactionID    string  `json:"transactionId"`
	PixCode          string  `json:"pixCode"`
	QRCodeImage      string  `json:"qrCodeImage"`
	ExpiresInSeconds float64 `json:"expiresInSeconds"`
}

func NewCreateChargeResponse(charge domain.Charge) CreateChargeResponse {
	return CreateChargeResponse{
		ID:               charge.ID,
		TransactionID:    charge.TransactionID,
		PixCode:          charge.PixCode,
		QRCodeImage:      charge.QRCodeImage,
		ExpiresInSeconds: domain.ChargeTTL.Seconds(),
	}
}

type ChargeStatusResponse struct {
	ID     string              `json:"id"`
	Status domain.ChargeStatus `json:"status"`
}

type PurchaseResponse struct {
	Purchase domain.Purchase `json:"purchase"`
}

type PurchasesResponse struct {
	Purchases []domain.Purchase `json:"purchases"`
}

type UserResponse struct {
	User *domain.User `json:"user"`
}

// AdminPurchasesResponse pairs the grouped buyer view with live stats.
type AdminPurchasesResponse struct {
	Users []domain.UserPurchases `json:"users"`
	Stats domain.RaffleStats     `json:"stats"`
}
