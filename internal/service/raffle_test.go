package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifadigital/raffle-api/internal/domain"
)

func TestSetTotalTickets_RangeCheck(t *testing.T) {
	svc := NewRaffleService(newTestStore(t))
	ctx := context.Background()

	_, err := svc.SetTotalTickets(ctx, 0)
	require.ErrorIs(t, err, ErrTotalOutOfRange)

	_, err = svc.SetTotalTickets(ctx, domain.MaxTotalTickets+1)
	require.ErrorIs(t, err, ErrTotalOutOfRange)

	stats, err := svc.SetTotalTickets(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, stats.TotalTickets)
}

func TestIsAdmin(t *testing.T) {
	svc := NewRaffleService(newTestStore(t))
	ctx := context.Background()

	admin, err := svc.IsAdmin(ctx, domain.DefaultAdminCPF)
	require.NoError(t, err)
	assert.True(t, admin)

	admin, err = svc.IsAdmin(ctx, "11111111111")
	require.NoError(t, err)
	assert.False(t, admin)
}

func TestAvailabilitySample(t *testing.T) {
	store := newTestStore(t)
	svc := NewRaffleService(store)
	ctx := context.Background()

	_, err := svc.SetTotalTickets(ctx, 50)
	require.NoError(t, err)

	purchase := confirmPurchase(t, store, domain.UserInput{Name: "Maria", Phone: "11999990000"}, 10)

	sample, err := svc.AvailabilitySample(ctx, 15)
	require.NoError(t, err)

	assert.Equal(t, 50, sample.TotalTickets)
	assert.Equal(t, 10, sample.SoldTickets)
	assert.Equal(t, 40, sample.RemainingTickets)

	assert.ElementsMatch(t, purchase.Tickets, sample.SoldTicketsSample)
	require.Len(t, sample.AvailableTicketsSample, 15)
	for _, code := range sample.AvailableTicketsSample {
		assert.NotContains(t, purchase.Tickets, code)
	}
	assert.False(t, sample.UpdatedAt.IsZero())
}

func TestAvailabilitySample_DefaultLimit(t *testing.T) {
	store := newTestStore(t)
	svc := NewRaffleService(store)
	ctx := context.Background()

	_, err := svc.SetTotalTickets(ctx, 100)
	require.NoError(t, err)

	sample, err := svc.AvailabilitySample(ctx, 0)
	require.NoError(t, err)

	assert.Empty(t, sample.SoldTicketsSample)
	assert.Len(t, sample.AvailableTicketsSample, DefaultSampleLimit)
}
