package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/pkg/pix"
	"github.com/rifadigital/raffle-api/internal/repository"
)

var (
	ErrChargeNotFound      = repository.ErrChargeNotFound
	ErrChargeExpired       = repository.ErrChargeExpired
	ErrInvalidChargeStatus = repository.ErrInvalidChargeStatus
	ErrSoldOut             = repository.ErrSoldOut
	ErrInsufficientTickets = repository.ErrInsufficientTickets

	ErrQuantityBelowMinimum = errors.New("quantity below minimum purchase")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrMissingPhone         = errors.New("buyer phone is required")
)

// DefaultChargeDescription labels charges created without one.
const DefaultChargeDescription = "Rifa"

type ChargeStore interface {
	CreateCharge(ctx context.Context, charge domain.Charge, buyer domain.UserInput) (domain.Charge, error)
	GetCharge(ctx context.Context, id string) (domain.Charge, error)
	AllocateAndRecordPurchase(ctx context.Context, chargeID string) (domain.Purchase, error)
}

// ChargeService owns the payment-intent lifecycle. Confirmation is
// caller-triggered and never retried here; every failure surfaces so
// the caller decides whether to re-poll or restart checkout.
type ChargeService struct {
	store ChargeStore
	now   func() time.Time
}

func NewChargeService(store ChargeStore) *ChargeService {
	return &ChargeService{
		store: store,
		now:   time.Now,
	}
}

type CreateChargeInput struct {
	Amount      float64
	Quantity    int
	Description string
	Buyer       domain.UserInput
}

// CreateCharge validates the intent, mints its identifiers and payment
// payload, and persists it pending with the fixed TTL. The remaining
// pool check here is optimistic; confirmation re-verifies under lock.
func (s *ChargeService) CreateCharge(ctx context.Context, in CreateChargeInput) (domain.Charge, error) {
	if in.Quantity < domain.MinPurchase {
		return domain.Charge{}, ErrQuantityBelowMinimum
	}
	if in.Amount <= 0 {
		return domain.Charge{}, ErrInvalidAmount
	}

	buyer := in.Buyer.Normalize()
	if buyer.Phone == "" {
		return domain.Charge{}, ErrMissingPhone
	}

	description := in.Description
	if description == "" {
		description = DefaultChargeDescription
	}

	now := s.now()
	payload := pix.NewPayload(buyer.Name, now)

	charge := domain.Charge{
		ID:            pix.NewID("charge"),
		TransactionID: pix.NewTransactionCode(),
		Amount:        domain.Round2(in.Amount),
		Quantity:      in.Quantity,
		Description:   description,
		Status:        domain.ChargePending,
		PixCode:       payload,
		QRCodeImage:   pix.QRImageURL(payload),
		CreatedAt:     now,
		ExpiresAt:     now.Add(domain.ChargeTTL),
	}

	created, err := s.store.CreateCharge(ctx, charge, buyer)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientTickets) {
			return domain.Charge{}, ErrInsufficientTickets
		}

		return domain.Charge{}, fmt.Errorf("s.store.CreateCharge -> %w", err)
	}

	return created, nil
}

// GetStatus returns the charge after lazy expiry.
func (s *ChargeService) GetStatus(ctx context.Context, id string) (domain.Charge, error) {
	charge, err := s.store.GetCharge(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrChargeNotFound) {
			return domain.Charge{}, ErrChargeNotFound
		}

		return domain.Charge{}, fmt.Errorf("s.store.GetCharge -> %w", err)
	}

	return charge, nil
}

// ConfirmPayment settles a charge exactly once. Repeat calls return
// the original purchase unchanged.
func (s *ChargeService) ConfirmPayment(ctx context.Context, id string) (domain.Purchase, error) {
	purchase, err := s.store.AllocateAndRecordPurchase(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrChargeNotFound),
			errors.Is(err, repository.ErrChargeExpired),
			errors.Is(err, repository.ErrInvalidChargeStatus),
			errors.Is(err, repository.ErrSoldOut):
			return domain.Purchase{}, err
		}

		return domain.Purchase{}, fmt.Errorf("s.store.AllocateAndRecordPurchase -> %w", err)
	}

	return purchase, nil
}
