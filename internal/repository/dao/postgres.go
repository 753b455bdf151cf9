// Package dao implements the storage contract on PostgreSQL through
// GORM. Every multi-step operation runs inside one transaction holding
// row locks on the contended rows (the charge and the raffle config),
// so the allocator's existence probes read authoritative state.
package dao

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/pkg/pix"
	"github.com/rifadigital/raffle-api/internal/repository"
	"github.com/rifadigital/raffle-api/internal/ticket"
)

type PostgresStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: time.Now,
	}
}

// InitTables migrates the schema and seeds the config row and the
// default admin allowlist entry.
func InitTables(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Charge{},
		&Purchase{},
		&PurchaseTicket{},
		&RaffleConfig{},
		&AdminCPF{},
	)
	if err != nil {
		return err
	}

	var cfg RaffleConfig
	err = db.Where(RaffleConfig{ID: 1}).
		Attrs(RaffleConfig{TotalTickets: domain.MaxTotalTickets}).
		FirstOrCreate(&cfg).Error
	if err != nil {
		return err
	}

	var admin AdminCPF
	return db.Where(AdminCPF{CPF: domain.DefaultAdminCPF}).FirstOrCreate(&admin).Error
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (s *PostgresStore) FindUser(ctx context.Context, q domain.UserQuery) (*domain.User, error) {
	q = q.Normalize()
	if q.Empty() {
		return nil, nil
	}

	found, err := findUserTx(s.db.WithContext(ctx), q, false)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}

	user := userToDomain(*found)

	return &user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	var user User

	result := s.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return domain.User{}, repository.ErrUserNotFound
		}

		return domain.User{}, result.Error
	}

	return userToDomain(user), nil
}

func (s *PostgresStore) UpsertUser(ctx context.Context, in domain.UserInput) (domain.User, error) {
	var user User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		user, txErr = upsertUserTx(tx, in, s.now())

		return txErr
	})
	if err != nil {
		return domain.User{}, err
	}

	return userToDomain(user), nil
}

func (s *PostgresStore) CreateCharge(ctx context.Context, charge domain.Charge, buyer domain.UserInput) (domain.Charge, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total, err := lockConfig(tx)
		if err != nil {
			return err
		}

		sold, err := countSold(tx)
		if err != nil {
			return err
		}
		if total-sold < charge.Quantity {
			return repository.ErrInsufficientTickets
		}

		user, err := upsertUserTx(tx, buyer, s.now())
		if err != nil {
			return err
		}
		charge.UserID = user.ID

		record := Charge{
			ID:            charge.ID,
			TransactionID: charge.TransactionID,
			UserID:        charge.UserID,
			Amount:        charge.Amount,
			Quantity:      charge.Quantity,
			Description:   charge.Description,
			Status:        string(charge.Status),
			PixCode:       charge.PixCode,
			QRCodeImage:   charge.QRCodeImage,
			CreatedAt:     charge.CreatedAt,
			ExpiresAt:     charge.ExpiresAt,
		}

		return tx.Create(&record).Error
	})
	if err != nil {
		return domain.Charge{}, err
	}

	return charge, nil
}

func (s *PostgresStore) GetCharge(ctx context.Context, id string) (domain.Charge, error) {
	var charge Charge

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, txErr := lockCharge(tx, id)
		if txErr != nil {
			return txErr
		}

		if txErr = expireIfDue(tx, found, s.now()); txErr != nil {
			return txErr
		}
		charge = *found

		return nil
	})
	if err != nil {
		return domain.Charge{}, err
	}

	return chargeToDomain(charge), nil
}

func (s *PostgresStore) AllocateAndRecordPurchase(ctx context.Context, chargeID string) (domain.Purchase, error) {
	var purchase domain.Purchase

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The config row lock serializes allocations; the charge row
		// lock serializes confirmations of the same charge.
		total, err := lockConfig(tx)
		if err != nil {
			return err
		}

		charge, err := lockCharge(tx, chargeID)
		if err != nil {
			return err
		}

		if err = expireIfDue(tx, charge, s.now()); err != nil {
			return err
		}

		// Idempotent replay comes before the expiry failure so a charge
		// that expired after a successful allocation still returns its
		// original purchase.
		existing, err := findPurchaseByCharge(tx, charge.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if charge.Status != string(domain.ChargePaid) {
				if err = setChargeStatus(tx, charge.ID, domain.ChargePaid); err != nil {
					return err
				}
			}

			purchase, err = purchaseToDomainWithTickets(tx, *existing)

			return err
		}

		if charge.Status == string(domain.ChargeExpired) {
			return repository.ErrChargeExpired
		}
		if charge.Status != string(domain.ChargePending) {
			return repository.ErrInvalidChargeStatus
		}

		sold, err := countSold(tx)
		if err != nil {
			return err
		}
		if sold+charge.Quantity > total {
			return repository.ErrSoldOut
		}

		var buyer User
		if err = tx.First(&buyer, "id = ?", charge.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrUserNotFound
			}

			return err
		}

		codes, err := ticket.Draw(charge.Quantity, total, func(code string) (bool, error) {
			var n int64
			if probeErr := tx.Model(&PurchaseTicket{}).Where("ticket = ?", code).Count(&n).Error; probeErr != nil {
				return false, probeErr
			}

			return n > 0, nil
		})
		if err != nil {
			if errors.Is(err, ticket.ErrPoolExhausted) {
				return repository.ErrSoldOut
			}

			return err
		}

		record := Purchase{
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
			Status:        string(domain.ChargePaid),
			CreatedAt:     s.now(),
		}
		if err = tx.Create(&record).Error; err != nil {
			return err
		}

		for _, code := range codes {
			if err = tx.Create(&PurchaseTicket{PurchaseID: record.ID, Ticket: code}).Error; err != nil {
				// The unique index is the backstop behind the probe;
				// tripping it means the surrounding lock was violated.
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
					return fmt.Errorf("ticket %s already assigned: %w", code, err)
				}

				return err
			}
		}

		if err = setChargeStatus(tx, charge.ID, domain.ChargePaid); err != nil {
			return err
		}

		purchase = purchaseToDomain(record)
		purchase.Tickets = sortCodes(codes)

		return nil
	})
	if err != nil {
		return domain.Purchase{}, err
	}

	return purchase, nil
}

func (s *PostgresStore) ListPurchases(ctx context.Context, method, query string) ([]domain.Purchase, error) {
	var (
		cond  string
		value string
	)

	switch method {
	case "phone":
		cond, value = "phone = ?", strings.TrimSpace(query)
	case "email":
		cond, value = "LOWER(email) = ?", domain.NormalizeEmail(query)
	case "cpf":
		cond, value = "cpf = ?", domain.OnlyDigits(query)
	default:
		return []domain.Purchase{}, nil
	}

	var records []Purchase
	db := s.db.WithContext(ctx)
	if err := db.Where(cond, value).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return attachTickets(db, records)
}

func (s *PostgresStore) ListAllPurchases(ctx context.Context) ([]domain.Purchase, error) {
	var records []Purchase
	db := s.db.WithContext(ctx)
	if err := db.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return attachTickets(db, records)
}

func (s *PostgresStore) GetStats(ctx context.Context) (domain.RaffleStats, error) {
	db := s.db.WithContext(ctx)

	var cfg RaffleConfig
	if err := db.First(&cfg, 1).Error; err != nil {
		return domain.RaffleStats{}, err
	}

	sold, err := countSold(db)
	if err != nil {
		return domain.RaffleStats{}, err
	}

	return domain.NewRaffleStats(cfg.TotalTickets, sold), nil
}

func (s *PostgresStore) SetTotalTickets(ctx context.Context, total int) (domain.RaffleStats, error) {
	var stats domain.RaffleStats

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, txErr := lockConfig(tx); txErr != nil {
			return txErr
		}

		sold, txErr := countSold(tx)
		if txErr != nil {
			return txErr
		}
		if total < sold {
			return repository.ErrLowerThanSold
		}

		if txErr = tx.Model(&RaffleConfig{}).Where("id = ?", 1).Update("total_tickets", total).Error; txErr != nil {
			return txErr
		}

		stats = domain.NewRaffleStats(total, sold)

		return nil
	})
	if err != nil {
		return domain.RaffleStats{}, err
	}

	return stats, nil
}

func (s *PostgresStore) SoldTicketCodes(ctx context.Context) ([]string, error) {
	var codes []string

	err := s.db.WithContext(ctx).
		Model(&PurchaseTicket{}).
		Order("(ticket)::int ASC").
		Pluck("ticket", &codes).Error
	if err != nil {
		return nil, err
	}

	return codes, nil
}

func (s *PostgresStore) IsAdmin(ctx context.Context, cpf string) (bool, error) {
	var n int64

	err := s.db.WithContext(ctx).
		Model(&AdminCPF{}).
		Where("cpf = ?", domain.OnlyDigits(cpf)).
		Count(&n).Error
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func lockConfig(tx *gorm.DB) (int, error) {
	var cfg RaffleConfig
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cfg, 1).Error; err != nil {
		return 0, err
	}

	total := cfg.TotalTickets
	if total < 1 {
		total = 1
	}
	if total > domain.MaxTotalTickets {
		total = domain.MaxTotalTickets
	}

	return total, nil
}

func lockCharge(tx *gorm.DB, id string) (*Charge, error) {
	var charge Charge

	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&charge, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, repository.ErrChargeNotFound
		}

		return nil, result.Error
	}

	return &charge, nil
}

func expireIfDue(tx *gorm.DB, charge *Charge, now time.Time) error {
	if charge.Status != string(domain.ChargePending) || !now.After(charge.ExpiresAt) {
		return nil
	}

	if err := setChargeStatus(tx, charge.ID, domain.ChargeExpired); err != nil {
		return err
	}
	charge.Status = string(domain.ChargeExpired)

	return nil
}

func setChargeStatus(tx *gorm.DB, id string, status domain.ChargeStatus) error {
	return tx.Model(&Charge{}).Where("id = ?", id).Update("status", string(status)).Error
}

func countSold(tx *gorm.DB) (int, error) {
	var n int64
	if err := tx.Model(&PurchaseTicket{}).Count(&n).Error; err != nil {
		return 0, err
	}

	return int(n), nil
}

func findUserTx(tx *gorm.DB, q domain.UserQuery, forUpdate bool) (*User, error) {
	var (
		conds []string
		args  []interface{}
	)
	if q.CPF != "" {
		conds = append(conds, "cpf = ?")
		args = append(args, q.CPF)
	}
	if q.Phone != "" {
		conds = append(conds, "phone = ?")
		args = append(args, q.Phone)
	}
	if q.Email != "" {
		conds = append(conds, "email = ?")
		args = append(args, q.Email)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	db := tx
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var users []User
	if err := db.Where(strings.Join(conds, " OR "), args...).Limit(1).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	return &users[0], nil
}

func upsertUserTx(tx *gorm.DB, in domain.UserInput, now time.Time) (User, error) {
	in = in.Normalize()

	existing, err := findUserTx(tx, in.Query(), true)
	if err != nil {
		return User{}, err
	}

	if existing != nil {
		existing.Name = in.Name
		existing.Phone = nilIfEmpty(in.Phone)
		existing.CPF = nilIfEmpty(in.CPF)
		existing.Email = nilIfEmpty(in.Email)
		existing.BirthDate = nilIfEmpty(in.BirthDate)
		existing.UpdatedAt = now

		if err = tx.Save(existing).Error; err != nil {
			return User{}, err
		}

		return *existing, nil
	}

	user := User{
		ID:        pix.NewID("user"),
		Name:      in.Name,
		Phone:     nilIfEmpty(in.Phone),
		CPF:       nilIfEmpty(in.CPF),
		Email:     nilIfEmpty(in.Email),
		BirthDate: nilIfEmpty(in.BirthDate),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = tx.Create(&user).Error; err != nil {
		return User{}, err
	}

	return user, nil
}

func findPurchaseByCharge(tx *gorm.DB, chargeID string) (*Purchase, error) {
	var purchases []Purchase
	if err := tx.Where("charge_id = ?", chargeID).Limit(1).Find(&purchases).Error; err != nil {
		return nil, err
	}
	if len(purchases) == 0 {
		return nil, nil
	}

	return &purchases[0], nil
}

func attachTickets(db *gorm.DB, records []Purchase) ([]domain.Purchase, error) {
	purchases := make([]domain.Purchase, 0, len(records))
	if len(records) == 0 {
		return purchases, nil
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}

	var rows []PurchaseTicket
	if err := db.Where("purchase_id IN ?", ids).Order("(ticket)::int ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	byPurchase := make(map[string][]string, len(records))
	for _, row := range rows {
		byPurchase[row.PurchaseID] = append(byPurchase[row.PurchaseID], row.Ticket)
	}

	for _, r := range records {
		p := purchaseToDomain(r)
		p.Tickets = byPurchase[r.ID]
		if p.Tickets == nil {
			p.Tickets = []string{}
		}
		purchases = append(purchases, p)
	}

	return purchases, nil
}

func purchaseToDomainWithTickets(tx *gorm.DB, record Purchase) (domain.Purchase, error) {
	var codes []string

	err := tx.Model(&PurchaseTicket{}).
		Where("purchase_id = ?", record.ID).
		Order("(ticket)::int ASC").
		Pluck("ticket", &codes).Error
	if err != nil {
		return domain.Purchase{}, err
	}

	p := purchaseToDomain(record)
	p.Tickets = codes

	return p, nil
}

func userToDomain(u User) domain.User {
	return domain.User{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     deref(u.Phone),
		CPF:       deref(u.CPF),
		Email:     deref(u.Email),
		BirthDate: deref(u.BirthDate),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func chargeToDomain(c Charge) domain.Charge {
	return domain.Charge{
		ID:            c.ID,
		TransactionID: c.TransactionID,
		UserID:        c.UserID,
		Amount:        c.Amount,
		Quantity:      c.Quantity,
		Description:   c.Description,
		Status:        domain.ChargeStatus(c.Status),
		PixCode:       c.PixCode,
		QRCodeImage:   c.QRCodeImage,
		CreatedAt:     c.CreatedAt,
		ExpiresAt:     c.ExpiresAt,
	}
}

func purchaseToDomain(p Purchase) domain.Purchase {
	return domain.Purchase{
		ID:            p.ID,
		ChargeID:      p.ChargeID,
		TransactionID: p.TransactionID,
		UserID:        p.UserID,
		UserName:      p.UserName,
		CPF:           deref(p.CPF),
		Email:         deref(p.Email),
		Phone:         deref(p.Phone),
		Amount:        p.Amount,
		Quantity:      p.Quantity,
		Status:        domain.ChargeStatus(p.Status),
		CreatedAt:     p.CreatedAt,
	}
}

func nilIfEmpty(v string) *string {
	if v == "" {
		return nil
	}

	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}

	return *v
}

// sortCodes orders ticket codes numerically; zero-padded fixed-width
// codes sort numerically as plain strings.
func sortCodes(codes []string) []string {
	sorted := make([]string, len(codes))
	copy(sorted, codes)
	sort.Strings(sorted)

	return sorted
}
