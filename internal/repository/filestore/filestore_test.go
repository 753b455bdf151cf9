package filestore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/pkg/pix"
	"github.com/rifadigital/raffle-api/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "raffle.json"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func newPendingCharge(quantity int, now time.Time) domain.Charge {
	return domain.Charge{
		ID:            pix.NewID("charge"),
		TransactionID: pix.NewTransactionCode(),
		Amount:        float64(quantity) * 2,
		Quantity:      quantity,
		Description:   "Rifa",
		Status:        domain.ChargePending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(domain.ChargeTTL),
	}
}

func testBuyer() domain.UserInput {
	return domain.UserInput{
		Name:  "Maria",
		Phone: "11999990000",
		CPF:   "52998224725",
		Email: "maria@example.com",
	}
}

func TestOpen_SeedsDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxTotalTickets, stats.TotalTickets)
	assert.Equal(t, 0, stats.SoldTickets)

	admin, err := s.IsAdmin(ctx, domain.DefaultAdminCPF)
	require.NoError(t, err)
	assert.True(t, admin)

	admin, err = s.IsAdmin(ctx, "00000000000")
	require.NoError(t, err)
	assert.False(t, admin)
}

func TestFindUser_NoMatchReturnsNil(t *testing.T) {
	s := newTestStore(t)

	user, err := s.FindUser(context.Background(), domain.UserQuery{Phone: "11888887777"})
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUpsertUser_MergesByPhone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertUser(ctx, domain.UserInput{Name: "Maria", Phone: "11999990000"})
	require.NoError(t, err)

	second, err := s.UpsertUser(ctx, domain.UserInput{
		Name:  "Maria Silva",
		Phone: "(11) 99999-0000",
		Email: "Maria@Example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Maria Silva", second.Name)
	assert.Equal(t, "11999990000", second.Phone)
	assert.Equal(t, "maria@example.com", second.Email)

	found, err := s.FindUser(ctx, domain.UserQuery{Email: "maria@example.com"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestConfirm_AllocatesDistinctTickets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var purchases []domain.Purchase
	for i := 0; i < 3; i++ {
		charge := newPendingCharge(5, time.Now())
		_, err := s.CreateCharge(ctx, charge, testBuyer())
		require.NoError(t, err)

		p, err := s.AllocateAndRecordPurchase(ctx, charge.ID)
		require.NoError(t, err)
		require.Len(t, p.Tickets, 5)
		purchases = append(purchases, p)
	}

	seen := make(map[string]string)
	for _, p := range purchases {
		for _, code := range p.Tickets {
			assert.Regexp(t, `^\d{5}$`, code)
			other, dup := seen[code]
			assert.False(t, dup, "ticket %s assigned to both %s and %s", code, other, p.ID)
			seen[code] = p.ID
		}
	}

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, stats.SoldTickets)
}

func TestConfirm_IdempotentUnderConcurrency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	charge := newPendingCharge(5, time.Now())
	_, err := s.CreateCharge(ctx, charge, testBuyer())
	require.NoError(t, err)

	const callers = 8
	results := make([]domain.Purchase, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.AllocateAndRecordPurchase(ctx, charge.ID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
		assert.Equal(t, results[0].Tickets, results[i].Tickets)
	}

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.SoldTickets)
}

func TestConfirm_SoldOutLeavesCountUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SetTotalTickets(ctx, 10)
	require.NoError(t, err)

	sold := newPendingCharge(8, time.Now())
	_, err = s.CreateCharge(ctx, sold, testBuyer())
	require.NoError(t, err)
	_, err = s.AllocateAndRecordPurchase(ctx, sold.ID)
	require.NoError(t, err)

	over := newPendingCharge(3, time.Now())
	_, err = s.CreateCharge(ctx, over, testBuyer())
	require.ErrorIs(t, err, repository.ErrInsufficientTickets)

	// Force the charge in regardless so the confirm-time check runs.
	over = newPendingCharge(3, time.Now())
	require.NoError(t, s.run(func(doc *document) (bool, error) {
		user := doc.upsertUser(testBuyer(), s.now())
		over.UserID = user.ID
		doc.Charges = append(doc.Charges, over)
		return true, nil
	}))

	_, err = s.AllocateAndRecordPurchase(ctx, over.ID)
	require.ErrorIs(t, err, repository.ErrSoldOut)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.SoldTickets)
	assert.Equal(t, 2, stats.RemainingTickets)
}

func TestConfirm_ExpiredChargeFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Now()
	charge := newPendingCharge(5, start)
	_, err := s.CreateCharge(ctx, charge, testBuyer())
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(domain.ChargeTTL + time.Second) }

	_, err = s.AllocateAndRecordPurchase(ctx, charge.ID)
	require.ErrorIs(t, err, repository.ErrChargeExpired)

	// Still expired on retry.
	_, err = s.AllocateAndRecordPurchase(ctx, charge.ID)
	require.ErrorIs(t, err, repository.ErrChargeExpired)

	got, err := s.GetCharge(ctx, charge.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeExpired, got.Status)
}

func TestConfirm_ReplayWinsOverExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Now()
	charge := newPendingCharge(5, start)
	_, err := s.CreateCharge(ctx, charge, testBuyer())
	require.NoError(t, err)

	original, err := s.AllocateAndRecordPurchase(ctx, charge.ID)
	require.NoError(t, err)

	// Past the deadline a recorded purchase still wins.
	s.now = func() time.Time { return start.Add(domain.ChargeTTL + time.Minute) }

	replay, err := s.AllocateAndRecordPurchase(ctx, charge.ID)
	require.NoError(t, err)
	assert.Equal(t, original.ID, replay.ID)
	assert.Equal(t, original.Tickets, replay.Tickets)

	got, err := s.GetCharge(ctx, charge.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChargePaid, got.Status)
}

func TestGetCharge_LazyExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Now()
	charge := newPendingCharge(5, start)
	_, err := s.CreateCharge(ctx, charge, testBuyer())
	require.NoError(t, err)

	got, err := s.GetCharge(ctx, charge.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChargePending, got.Status)

	s.now = func() time.Time { return start.Add(domain.ChargeTTL + time.Second) }

	got, err = s.GetCharge(ctx, charge.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeExpired, got.Status)
}

func TestGetCharge_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetCharge(context.Background(), "charge-missing")
	require.ErrorIs(t, err, repository.ErrChargeNotFound)
}

func TestSetTotalTickets_LowerThanSold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	charge := newPendingCharge(10, time.Now())
	_, err := s.CreateCharge(ctx, charge, testBuyer())
	require.NoError(t, err)
	_, err = s.AllocateAndRecordPurchase(ctx, charge.ID)
	require.NoError(t, err)

	_, err = s.SetTotalTickets(ctx, 9)
	require.ErrorIs(t, err, repository.ErrLowerThanSold)

	stats, err := s.SetTotalTickets(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 500, stats.TotalTickets)
	assert.Equal(t, 10, stats.SoldTickets)
}

func TestListPurchases_ByIdentifier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	charge := newPendingCharge(5, time.Now())
	_, err := s.CreateCharge(ctx, charge, testBuyer())
	require.NoError(t, err)
	_, err = s.AllocateAndRecordPurchase(ctx, charge.ID)
	require.NoError(t, err)

	byPhone, err := s.ListPurchases(ctx, "phone", "11999990000")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)

	byEmail, err := s.ListPurchases(ctx, "email", "MARIA@example.com")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)

	byCPF, err := s.ListPurchases(ctx, "cpf", "529.982.247-25")
	require.NoError(t, err)
	require.Len(t, byCPF, 1)

	none, err := s.ListPurchases(ctx, "phone", "11000000000")
	require.NoError(t, err)
	assert.Empty(t, none)

	unknown, err := s.ListPurchases(ctx, "address", "anything")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raffle.json")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)

	charge := newPendingCharge(5, time.Now())
	_, err = s.CreateCharge(ctx, charge, testBuyer())
	require.NoError(t, err)
	original, err := s.AllocateAndRecordPurchase(ctx, charge.ID)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	stats, err := reopened.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.SoldTickets)

	purchases, err := reopened.ListAllPurchases(ctx)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, original.ID, purchases[0].ID)
	assert.Equal(t, original.Tickets, purchases[0].Tickets)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.GetStats(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
