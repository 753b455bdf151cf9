package domain

import "time"

type ChargeStatus string

const (
	ChargePending ChargeStatus = "pending"
	ChargePaid    ChargeStatus = "paid"
	ChargeExpired ChargeStatus = "expired"
)

const (
	// MinPurchase is the smallest quantity of tickets a single charge may buy.
	MinPurchase = 5

	// ChargeTTL is how long a pending charge stays payable.
	ChargeTTL = 580 * time.Second
)

// Charge is a time-boxed payment intent for a quantity of tickets.
// Only Status ever changes after creation.
type Charge struct {
	ID            string       `json:"id"`
	TransactionID string       `json:"transactionId"`
	UserID        string       `json:"userId"`
	Amount        float64      `json:"amount"`
	Quantity      int          `json:"quantity"`
	Description   string       `json:"description"`
	Status        ChargeStatus `json:"status"`
	PixCode       string       `json:"pixCode"`
	QRCodeImage   string       `json:"qrCodeImage"`
	CreatedAt     time.Time    `json:"createdAt"`
	ExpiresAt     time.Time    `json:"expiresAt"`
}

// ExpiredAt reports whether the charge is pending past its deadline.
func (c *Charge) ExpiredAt(now time.Time) bool {
	return c.Status == ChargePending && now.After(c.ExpiresAt)
}
