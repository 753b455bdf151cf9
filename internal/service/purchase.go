package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/repository"
)

// ExportHeader is the column order of the flat purchase projection,
// kept identical to the legacy report so downstream spreadsheets keep
// working.
var ExportHeader = []string{
	"user_id",
	"nome",
	"cpf",
	"telefone",
	"email",
	"user_created_at",
	"purchase_id",
	"charge_id",
	"transaction_id",
	"purchase_status",
	"purchase_created_at",
	"quantidade",
	"valor",
	"tickets",
}

type PurchaseStore interface {
	ListPurchases(ctx context.Context, method, query string) ([]domain.Purchase, error)
	ListAllPurchases(ctx context.Context) ([]domain.Purchase, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
}

type PurchaseService struct {
	store PurchaseStore
}

func NewPurchaseService(store PurchaseStore) *PurchaseService {
	return &PurchaseService{
		store: store,
	}
}

// ListByFilter returns purchases matching one buyer identifier;
// method is "phone", "email" or "cpf". Unknown methods yield an empty
// list, not an error.
func (s *PurchaseService) ListByFilter(ctx context.Context, method, query string) ([]domain.Purchase, error) {
	purchases, err := s.store.ListPurchases(ctx, method, query)
	if err != nil {
		return nil, fmt.Errorf("s.store.ListPurchases -> %w", err)
	}

	return purchases, nil
}

// GroupedByUser groups every purchase under its buyer, newest buyers
// first, for the admin view.
func (s *PurchaseService) GroupedByUser(ctx context.Context) ([]domain.UserPurchases, error) {
	purchases, err := s.store.ListAllPurchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.store.ListAllPurchases -> %w", err)
	}

	grouped := []domain.UserPurchases{}
	index := make(map[string]int)
	for _, p := range purchases {
		i, ok := index[p.UserID]
		if !ok {
			i = len(grouped)
			index[p.UserID] = i
			grouped = append(grouped, domain.UserPurchases{
				UserID: p.UserID,
				Name:   p.UserName,
				CPF:    p.CPF,
				Phone:  p.Phone,
				Email:  p.Email,
			})
		}
		grouped[i].Purchases = append(grouped[i].Purchases, p)
	}

	return grouped, nil
}

// ExportRows renders the flat tabular projection of every purchase:
// header row first, tickets joined with "|". Archive-format encoding
// is the caller's concern.
func (s *PurchaseService) ExportRows(ctx context.Context) ([][]string, error) {
	purchases, err := s.store.ListAllPurchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.store.ListAllPurchases -> %w", err)
	}

	userCreated := make(map[string]string)
	rows := make([][]string, 0, len(purchases)+1)
	rows = append(rows, ExportHeader)

	for _, p := range purchases {
		created, ok := userCreated[p.UserID]
		if !ok {
			user, err := s.store.GetUser(ctx, p.UserID)
			switch {
			case err == nil:
				created = user.CreatedAt.Format(time.RFC3339)
			case errors.Is(err, repository.ErrUserNotFound):
				created = ""
			default:
				return nil, fmt.Errorf("s.store.GetUser -> %w", err)
			}
			userCreated[p.UserID] = created
		}

		rows = append(rows, []string{
			p.UserID,
			p.UserName,
			p.CPF,
			p.Phone,
			p.Email,
			created,
			p.ID,
			p.ChargeID,
			p.TransactionID,
			string(p.Status),
			p.CreatedAt.Format(time.RFC3339),
			strconv.Itoa(p.Quantity),
			strconv.FormatFloat(p.Amount, 'f', 2, 64),
			strings.Join(p.Tickets, "|"),
		})
	}

	return rows, nil
}
