// Package filestore implements the storage contract on a single JSON
// document. Every operation is pushed onto a strict FIFO queue served
// by one goroutine, so at most one runs process-wide at a time. Each
// operation reloads the durable snapshot before running and mutations
// replace the file via write-to-temp-then-rename, so a crash loses at
// most the in-flight operation.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/pkg/pix"
	"github.com/rifadigital/raffle-api/internal/repository"
	"github.com/rifadigital/raffle-api/internal/ticket"
)

// ErrClosed is returned for operations issued after Close.
var ErrClosed = errors.New("filestore: store is closed")

// document is the whole dataset as persisted: entity arrays plus the
// flat list of assigned ticket codes, which is the authoritative sold
// set.
type document struct {
	TotalTickets int               `json:"totalTickets"`
	AdminCPFs    []string          `json:"adminCpfs"`
	Users        []domain.User     `json:"users"`
	Charges      []domain.Charge   `json:"charges"`
	Purchases    []domain.Purchase `json:"purchases"`
	Tickets      []string          `json:"tickets"`
}

type Store struct {
	path  string
	queue chan func()

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	now func() time.Time
}

// Open starts the writer goroutine and verifies the snapshot loads.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("filestore.Open -> %w", err)
	}

	s := &Store{
		path:    path,
		queue:   make(chan func()),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		now:     time.Now,
	}

	if _, err := s.load(); err != nil {
		return nil, fmt.Errorf("filestore.Open -> %w", err)
	}

	go s.serve()

	return s, nil
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
	})

	return nil
}

func (s *Store) serve() {
	defer close(s.stopped)

	for {
		select {
		case fn := <-s.queue:
			fn()
		case <-s.done:
			return
		}
	}
}

// run executes fn at its queue position against a freshly loaded
// snapshot, persisting only when fn reports a change.
func (s *Store) run(fn func(doc *document) (changed bool, err error)) error {
	result := make(chan error, 1)

	task := func() {
		doc, err := s.load()
		if err != nil {
			result <- err
			return
		}

		changed, err := fn(doc)
		if err != nil {
			result <- err
			return
		}
		if changed {
			result <- s.save(doc)
			return
		}

		result <- nil
	}

	select {
	case s.queue <- task:
		return <-result
	case <-s.done:
		return ErrClosed
	}
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{
				TotalTickets: domain.MaxTotalTickets,
				AdminCPFs:    []string{domain.DefaultAdminCPF},
			}, nil
		}

		return nil, err
	}

	var doc document
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", s.path, err)
	}

	return &doc, nil
}

func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}

func (s *Store) FindUser(_ context.Context, q domain.UserQuery) (*domain.User, error) {
	q = q.Normalize()
	if q.Empty() {
		return nil, nil
	}

	var found *domain.User
	err := s.run(func(doc *document) (bool, error) {
		if i := doc.findUser(q); i >= 0 {
			u := doc.Users[i]
			found = &u
		}

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	var user domain.User

	err := s.run(func(doc *document) (bool, error) {
		for _, u := range doc.Users {
			if u.ID == id {
				user = u
				return false, nil
			}
		}

		return false, repository.ErrUserNotFound
	})
	if err != nil {
		return domain.User{}, err
	}

	return user, nil
}

func (s *Store) UpsertUser(_ context.Context, in domain.UserInput) (domain.User, error) {
	var user domain.User

	err := s.run(func(doc *document) (bool, error) {
		user = doc.upsertUser(in, s.now())

		return true, nil
	})
	if err != nil {
		return domain.User{}, err
	}

	return user, nil
}

func (s *Store) CreateCharge(_ context.Context, charge domain.Charge, buyer domain.UserInput) (domain.Charge, error) {
	err := s.run(func(doc *document) (bool, error) {
		stats := doc.stats()
		if stats.RemainingTickets < charge.Quantity {
			return false, repository.ErrInsufficientTickets
		}

		user := doc.upsertUser(buyer, s.now())
		charge.UserID = user.ID
		doc.Charges = append(doc.Charges, charge)

		return true, nil
	})
	if err != nil {
		return domain.Charge{}, err
	}

	return charge, nil
}

func (s *Store) GetCharge(_ context.Context, id string) (domain.Charge, error) {
	var charge domain.Charge

	err := s.run(func(doc *document) (bool, error) {
		i := doc.findCharge(id)
		if i < 0 {
			return false, repository.ErrChargeNotFound
		}

		expired := doc.expireIfDue(i, s.now())
		charge = doc.Charges[i]

		return expired, nil
	})
	if err != nil {
		return domain.Charge{}, err
	}

	return charge, nil
}

func (s *Store) AllocateAndRecordPurchase(_ context.Context, chargeID string) (domain.Purchase, error) {
	var purchase domain.Purchase

	err := s.run(func(doc *document) (bool, error) {
		i := doc.findCharge(chargeID)
		if i < 0 {
			return false, repository.ErrChargeNotFound
		}

		changed := doc.expireIfDue(i, s.now())
		charge := &doc.Charges[i]

		// Idempotent replay: a purchase recorded by an earlier call wins
		// over the expiry failure.
		if existing := doc.findPurchaseByCharge(charge.ID); existing != nil {
			if charge.Status != domain.ChargePaid {
				charge.Status = domain.ChargePaid
				changed = true
			}
			purchase = *existing

			return changed, nil
		}

		if charge.Status == domain.ChargeExpired {
			return changed, repository.ErrChargeExpired
		}
		if charge.Status != domain.ChargePending {
			return changed, repository.ErrInvalidChargeStatus
		}

		stats := doc.stats()
		if stats.SoldTickets+charge.Quantity > stats.TotalTickets {
			return changed, repository.ErrSoldOut
		}

		buyerIdx := -1
		for j, u := range doc.Users {
			if u.ID == charge.UserID {
				buyerIdx = j
				break
			}
		}
		if buyerIdx < 0 {
			return changed, repository.ErrUserNotFound
		}
		buyer := doc.Users[buyerIdx]

		sold := doc.soldSet()
		codes, err := ticket.Draw(charge.Quantity, stats.TotalTickets, func(code string) (bool, error) {
			_, taken := sold[code]
			return taken, nil
		})
		if err != nil {
			if errors.Is(err, ticket.ErrPoolExhausted) {
				return changed, repository.ErrSoldOut
			}

			return changed, err
		}
		sort.Strings(codes)

		purchase = domain.Purchase{
			ID:            pix.NewID("purchase"),
			ChargeID:      charge.ID,
			TransactionID: charge.TransactionID,
			UserID:        buyer.ID,
			UserName:      buyer.Name,
			CPF:           buyer.CPF,
			Email:         buyer.Email,
			Phone:         buyer.Phone,
			Amount:        charge.Amount,
			Quantity:      charge.Quantity,
			Status:        domain.ChargePaid,
			CreatedAt:     s.now(),
			Tickets:       codes,
		}

		doc.Purchases = append(doc.Purchases, purchase)
		doc.Tickets = append(doc.Tickets, codes...)
		charge.Status = domain.ChargePaid

		return true, nil
	})
	if err != nil {
		return domain.Purchase{}, err
	}

	return purchase, nil
}

func (s *Store) ListPurchases(_ context.Context, method, query string) ([]domain.Purchase, error) {
	var match func(p domain.Purchase) bool

	switch method {
	case "phone":
		value := strings.TrimSpace(query)
		match = func(p domain.Purchase) bool { return p.Phone == value }
	case "email":
		value := domain.NormalizeEmail(query)
		match = func(p domain.Purchase) bool { return domain.NormalizeEmail(p.Email) == value }
	case "cpf":
		value := domain.OnlyDigits(query)
		match = func(p domain.Purchase) bool { return p.CPF == value }
	default:
		return []domain.Purchase{}, nil
	}

	purchases := []domain.Purchase{}
	err := s.run(func(doc *document) (bool, error) {
		for _, p := range doc.Purchases {
			if match(p) {
				purchases = append(purchases, p)
			}
		}

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(purchases)

	return purchases, nil
}

func (s *Store) ListAllPurchases(_ context.Context) ([]domain.Purchase, error) {
	purchases := []domain.Purchase{}

	err := s.run(func(doc *document) (bool, error) {
		purchases = append(purchases, doc.Purchases...)

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(purchases)

	return purchases, nil
}

func (s *Store) GetStats(_ context.Context) (domain.RaffleStats, error) {
	var stats domain.RaffleStats

	err := s.run(func(doc *document) (bool, error) {
		stats = doc.stats()

		return false, nil
	})
	if err != nil {
		return domain.RaffleStats{}, err
	}

	return stats, nil
}

func (s *Store) SetTotalTickets(_ context.Context, total int) (domain.RaffleStats, error) {
	var stats domain.RaffleStats

	err := s.run(func(doc *document) (bool, error) {
		if total < len(doc.Tickets) {
			return false, repository.ErrLowerThanSold
		}

		doc.TotalTickets = total
		stats = doc.stats()

		return true, nil
	})
	if err != nil {
		return domain.RaffleStats{}, err
	}

	return stats, nil
}

func (s *Store) SoldTicketCodes(_ context.Context) ([]string, error) {
	var codes []string

	err := s.run(func(doc *document) (bool, error) {
		codes = make([]string, len(doc.Tickets))
		copy(codes, doc.Tickets)

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(codes)

	return codes, nil
}

func (s *Store) IsAdmin(_ context.Context, cpf string) (bool, error) {
	cpf = domain.OnlyDigits(cpf)

	var admin bool
	err := s.run(func(doc *document) (bool, error) {
		for _, c := range doc.AdminCPFs {
			if c == cpf {
				admin = true
				break
			}
		}

		return false, nil
	})
	if err != nil {
		return false, err
	}

	return admin, nil
}

func (doc *document) stats() domain.RaffleStats {
	return domain.NewRaffleStats(doc.TotalTickets, len(doc.Tickets))
}

func (doc *document) soldSet() map[string]struct{} {
	set := make(map[string]struct{}, len(doc.Tickets))
	for _, code := range doc.Tickets {
		set[code] = struct{}{}
	}

	return set
}

func (doc *document) findUser(q domain.UserQuery) int {
	for i, u := range doc.Users {
		if q.CPF != "" && u.CPF == q.CPF {
			return i
		}
		if q.Phone != "" && u.Phone == q.Phone {
			return i
		}
		if q.Email != "" && u.Email == q.Email {
			return i
		}
	}

	return -1
}

func (doc *document) upsertUser(in domain.UserInput, now time.Time) domain.User {
	in = in.Normalize()

	if i := doc.findUser(in.Query()); i >= 0 {
		u := &doc.Users[i]
		u.Name = in.Name
		u.Phone = in.Phone
		u.CPF = in.CPF
		u.Email = in.Email
		u.BirthDate = in.BirthDate
		u.UpdatedAt = now

		return *u
	}

	user := domain.User{
		ID:        pix.NewID("user"),
		Name:      in.Name,
		Phone:     in.Phone,
		CPF:       in.CPF,
		Email:     in.Email,
		BirthDate: in.BirthDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.Users = append(doc.Users, user)

	return user
}

func (doc *document) findCharge(id string) int {
	for i, c := range doc.Charges {
		if c.ID == id {
			return i
		}
	}

	return -1
}

// expireIfDue flips a pending charge past its deadline to expired,
// reporting whether the document changed.
func (doc *document) expireIfDue(i int, now time.Time) bool {
	if !doc.Charges[i].ExpiredAt(now) {
		return false
	}

	doc.Charges[i].Status = domain.ChargeExpired

	return true
}

func (doc *document) findPurchaseByCharge(chargeID string) *domain.Purchase {
	for i := range doc.Purchases {
		if doc.Purchases[i].ChargeID == chargeID {
			return &doc.Purchases[i]
		}
	}

	return nil
}

func sortNewestFirst(purchases []domain.Purchase) {
	sort.SliceStable(purchases, func(i, j int) bool {
		return purchases[i].CreatedAt.After(purchases[j].CreatedAt)
	})
}
