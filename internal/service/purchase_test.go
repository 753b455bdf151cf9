package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/repository"
)

func confirmPurchase(t *testing.T, store repository.Store, buyer domain.UserInput, quantity int) domain.Purchase {
	t.Helper()

	svc := NewChargeService(store)
	ctx := context.Background()

	charge, err := svc.CreateCharge(ctx, CreateChargeInput{
		Amount:   float64(quantity) * 2,
		Quantity: quantity,
		Buyer:    buyer,
	})
	require.NoError(t, err)

	purchase, err := svc.ConfirmPayment(ctx, charge.ID)
	require.NoError(t, err)

	return purchase
}

func TestListByFilter(t *testing.T) {
	store := newTestStore(t)
	svc := NewPurchaseService(store)
	ctx := context.Background()

	maria := domain.UserInput{Name: "Maria", Phone: "11999990000"}
	joao := domain.UserInput{Name: "João", Phone: "21888880000"}

	confirmPurchase(t, store, maria, 5)
	confirmPurchase(t, store, maria, 6)
	confirmPurchase(t, store, joao, 5)

	mine, err := svc.ListByFilter(ctx, "phone", "11999990000")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, p := range mine {
		assert.Equal(t, "11999990000", p.Phone)
	}

	none, err := svc.ListByFilter(ctx, "unknown-method", "whatever")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGroupedByUser(t *testing.T) {
	store := newTestStore(t)
	svc := NewPurchaseService(store)

	maria := domain.UserInput{Name: "Maria", Phone: "11999990000"}
	joao := domain.UserInput{Name: "João", Phone: "21888880000"}

	confirmPurchase(t, store, maria, 5)
	confirmPurchase(t, store, joao, 5)
	confirmPurchase(t, store, maria, 6)

	grouped, err := svc.GroupedByUser(context.Background())
	require.NoError(t, err)
	require.Len(t, grouped, 2)

	byName := make(map[string]domain.UserPurchases)
	for _, g := range grouped {
		byName[g.Name] = g
	}

	require.Contains(t, byName, "Maria")
	require.Contains(t, byName, "João")
	assert.Len(t, byName["Maria"].Purchases, 2)
	assert.Len(t, byName["João"].Purchases, 1)
}

func TestExportRows(t *testing.T) {
	store := newTestStore(t)
	svc := NewPurchaseService(store)

	maria := domain.UserInput{Name: "Maria", Phone: "11999990000", CPF: "52998224725"}
	purchase := confirmPurchase(t, store, maria, 5)

	rows, err := svc.ExportRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ExportHeader, rows[0])

	row := rows[1]
	require.Len(t, row, len(ExportHeader))
	assert.Equal(t, purchase.UserID, row[0])
	assert.Equal(t, "Maria", row[1])
	assert.Equal(t, "52998224725", row[2])
	assert.Equal(t, purchase.ID, row[6])
	assert.Equal(t, purchase.ChargeID, row[7])
	assert.Equal(t, "paid", row[9])
	assert.Equal(t, "5", row[11])
	assert.Equal(t, "10.00", row[12])
	assert.ElementsMatch(t, purchase.Tickets, strings.Split(row[13], "|"))
}
