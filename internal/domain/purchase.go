package domain

import "time"

// Purchase is the immutable record of a paid ticket allocation.
// Buyer fields are a snapshot taken at confirmation time, so later
// user edits never rewrite history.
type Purchase struct {
	ID            string       `json:"id"`
	ChargeID      string       `json:"chargeId"`
	TransactionID string       `json:"transactionId"`
	UserID        string       `json:"userId"`
	UserName      string       `json:"userName"`
	CPF           string       `json:"cpf"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone"`
	Amount        float64      `json:"amount"`
	Quantity      int          `json:"quantity"`
	Status        ChargeStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	Tickets       []string     `json:"tickets"`
}

// UserPurchases groups one buyer's purchases for the admin view.
type UserPurchases struct {
	UserID    string     `json:"userId"`
	Name      string     `json:"name"`
	CPF       string     `json:"cpf"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	Purchases []Purchase `json:"purchases"`
}
