package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/repository"
	"github.com/rifadigital/raffle-api/internal/ticket"
)

var (
	ErrLowerThanSold   = repository.ErrLowerThanSold
	ErrTotalOutOfRange = errors.New("total tickets out of range")
)

// DefaultSampleLimit caps the availability sample lists.
const DefaultSampleLimit = 40

type RaffleStore interface {
	GetStats(ctx context.Context) (domain.RaffleStats, error)
	SetTotalTickets(ctx context.Context, total int) (domain.RaffleStats, error)
	SoldTicketCodes(ctx context.Context) ([]string, error)
	IsAdmin(ctx context.Context, cpf string) (bool, error)
}

type RaffleService struct {
	store RaffleStore
	now   func() time.Time
}

func NewRaffleService(store RaffleStore) *RaffleService {
	return &RaffleService{
		store: store,
		now:   time.Now,
	}
}

func (s *RaffleService) GetStats(ctx context.Context) (domain.RaffleStats, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return domain.RaffleStats{}, fmt.Errorf("s.store.GetStats -> %w", err)
	}

	return stats, nil
}

// SetTotalTickets replaces the pool bound. The lower-than-sold check
// happens inside the store, atomically with the sold count.
func (s *RaffleService) SetTotalTickets(ctx context.Context, total int) (domain.RaffleStats, error) {
	if total < 1 || total > domain.MaxTotalTickets {
		return domain.RaffleStats{}, ErrTotalOutOfRange
	}

	stats, err := s.store.SetTotalTickets(ctx, total)
	if err != nil {
		if errors.Is(err, repository.ErrLowerThanSold) {
			return domain.RaffleStats{}, ErrLowerThanSold
		}

		return domain.RaffleStats{}, fmt.Errorf("s.store.SetTotalTickets -> %w", err)
	}

	return stats, nil
}

// IsAdmin checks the administrator allowlist.
func (s *RaffleService) IsAdmin(ctx context.Context, cpf string) (bool, error) {
	admin, err := s.store.IsAdmin(ctx, cpf)
	if err != nil {
		return false, fmt.Errorf("s.store.IsAdmin -> %w", err)
	}

	return admin, nil
}

// AvailabilitySample builds the diagnostic ticket-status view: the
// last limit sold codes and the first limit free codes. It reads
// without allocation locks, so the result may lag in-flight sales.
func (s *RaffleService) AvailabilitySample(ctx context.Context, limit int) (domain.AvailabilitySample, error) {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}

	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return domain.AvailabilitySample{}, fmt.Errorf("s.store.GetStats -> %w", err)
	}

	sold, err := s.store.SoldTicketCodes(ctx)
	if err != nil {
		return domain.AvailabilitySample{}, fmt.Errorf("s.store.SoldTicketCodes -> %w", err)
	}

	soldSample := sold
	if len(soldSample) > limit {
		soldSample = soldSample[len(soldSample)-limit:]
	}

	soldSet := make(map[string]struct{}, len(sold))
	for _, code := range sold {
		soldSet[code] = struct{}{}
	}

	available := make([]string, 0, limit)
	for n := 1; n <= stats.TotalTickets && len(available) < limit; n++ {
		code := ticket.Format(n)
		if _, taken := soldSet[code]; !taken {
			available = append(available, code)
		}
	}

	return domain.AvailabilitySample{
		RaffleStats:            stats,
		SoldTicketsSample:      append([]string{}, soldSample...),
		AvailableTicketsSample: available,
		UpdatedAt:              s.now(),
	}, nil
}
