// Package repository defines the storage contract shared by the
// transactional Postgres backend and the single-writer file backend.
// Both implementations must give AllocateAndRecordPurchase the same
// guarantees: concurrent calls for one charge yield exactly one
// purchase, and no ticket code is ever assigned twice.
package repository

import (
	"context"
	"errors"

	"github.com/rifadigital/raffle-api/internal/domain"
)

var (
	ErrChargeNotFound      = errors.New("charge not found")
	ErrChargeExpired       = errors.New("charge expired")
	ErrInvalidChargeStatus = errors.New("charge is not payable")
	ErrSoldOut             = errors.New("not enough tickets available")
	ErrInsufficientTickets = errors.New("requested quantity exceeds remaining tickets")
	ErrLowerThanSold       = errors.New("total tickets cannot be lower than sold count")
	ErrUserNotFound        = errors.New("user not found")
)

// Store is the atomicity substrate for the charge/purchase lifecycle.
// Implementations own the exclusion needed by each method; callers
// never take additional locks.
type Store interface {
	// FindUser matches any supplied identifier. A nil user with a nil
	// error means no match.
	FindUser(ctx context.Context, q domain.UserQuery) (*domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	UpsertUser(ctx context.Context, in domain.UserInput) (domain.User, error)

	// CreateCharge persists a fully built pending charge after an
	// optimistic remaining-pool check, upserting the buyer in the same
	// atomic step. Returns ErrInsufficientTickets when the pool is
	// already too small.
	CreateCharge(ctx context.Context, charge domain.Charge, buyer domain.UserInput) (domain.Charge, error)

	// GetCharge lazily expires a pending charge past its deadline
	// before returning it.
	GetCharge(ctx context.Context, id string) (domain.Charge, error)

	// AllocateAndRecordPurchase confirms payment of a charge: it draws
	// the charge's quantity of tickets, records the purchase and flips
	// the charge to paid, all atomically. Repeat calls for an already
	// confirmed charge return the original purchase and draw nothing.
	AllocateAndRecordPurchase(ctx context.Context, chargeID string) (domain.Purchase, error)

	// ListPurchases filters by buyer identifier; method is one of
	// "phone", "email", "cpf".
	ListPurchases(ctx context.Context, method, query string) ([]domain.Purchase, error)
	ListAllPurchases(ctx context.Context) ([]domain.Purchase, error)

	GetStats(ctx context.Context) (domain.RaffleStats, error)

	// SetTotalTickets replaces the pool bound, failing with
	// ErrLowerThanSold when the new bound undercuts tickets already
	// sold; the comparison and the update are one atomic step.
	SetTotalTickets(ctx context.Context, total int) (domain.RaffleStats, error)

	// SoldTicketCodes returns every assigned code in numeric order.
	SoldTicketCodes(ctx context.Context) ([]string, error)

	IsAdmin(ctx context.Context, cpf string) (bool, error)

	Close() error
}
