package service

import (
	"context"
	"fmt"

	"github.com/rifadigital/raffle-api/internal/domain"
)

type UserStore interface {
	FindUser(ctx context.Context, q domain.UserQuery) (*domain.User, error)
	UpsertUser(ctx context.Context, in domain.UserInput) (domain.User, error)
}

// UserService resolves buyer identities. Matching is OR across the
// three identifiers, which can merge two people who share one (a
// family phone, a recycled email); the source system behaves the same
// way and nothing here disambiguates.
type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{
		store: store,
	}
}

// FindUser returns nil without error when nothing matches.
func (s *UserService) FindUser(ctx context.Context, q domain.UserQuery) (*domain.User, error) {
	user, err := s.store.FindUser(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("s.store.FindUser -> %w", err)
	}

	return user, nil
}

// UpsertUser creates or updates by identifier match, last write wins
// on mutable fields.
func (s *UserService) UpsertUser(ctx context.Context, in domain.UserInput) (domain.User, error) {
	user, err := s.store.UpsertUser(ctx, in)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.store.UpsertUser -> %w", err)
	}

	return user, nil
}
