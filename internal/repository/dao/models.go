package dao

import "time"

// User mirrors domain.User. Identifier columns are pointers so absent
// values persist as NULL and never collide on the unique indexes.
type User struct {
	ID        string  `gorm:"primaryKey;size:64"`
	Name      string  `gorm:"size:255;not null"`
	Phone     *string `gorm:"size:40;uniqueIndex"`
	CPF       *string `gorm:"size:20;uniqueIndex"`
	Email     *string `gorm:"size:255;uniqueIndex"`
	BirthDate *string `gorm:"size:20"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Charge struct {
	ID            string  `gorm:"primaryKey;size:64"`
	TransactionID string  `gorm:"size:32;uniqueIndex;not null"`
	UserID        string  `gorm:"size:64;not null"`
	User          User    `gorm:"foreignKey:UserID"`
	Amount        float64 `gorm:"type:numeric(10,2);not null"`
	Quantity      int     `gorm:"not null"`
	Description   string  `gorm:"size:255;not null"`
	Status        string  `gorm:"size:20;not null"`
	PixCode       string  `gorm:"type:text;not null"`
	QRCodeImage   string  `gorm:"type:text;not null"`
	CreatedAt     time.Time
	ExpiresAt     time.Time `gorm:"not null"`
}

// Purchase stores a denormalized buyer snapshot; charge_id is unique
// so the schema itself enforces the 1:1 charge/purchase relation.
type Purchase struct {
	ID            string  `gorm:"primaryKey;size:64"`
	ChargeID      string  `gorm:"size:64;uniqueIndex;not null"`
	Charge        Charge  `gorm:"foreignKey:ChargeID"`
	TransactionID string  `gorm:"size:32;not null"`
	UserID        string  `gorm:"size:64;not null"`
	User          User    `gorm:"foreignKey:UserID"`
	UserName      string  `gorm:"size:255;not null"`
	CPF           *string `gorm:"size:20"`
	Email         *string `gorm:"size:255"`
	Phone         *string `gorm:"size:40"`
	Amount        float64 `gorm:"type:numeric(10,2);not null"`
	Quantity      int     `gorm:"not null"`
	Status        string  `gorm:"size:20;not null"`
	CreatedAt     time.Time
}

// PurchaseTicket rows are only ever inserted together with their
// purchase. The unique index on ticket is the backstop behind the
// allocator's existence probes.
type PurchaseTicket struct {
	ID         uint     `gorm:"primaryKey"`
	PurchaseID string   `gorm:"size:64;index;not null"`
	Purchase   Purchase `gorm:"foreignKey:PurchaseID"`
	Ticket     string   `gorm:"size:5;uniqueIndex;not null"`
}

// RaffleConfig is a single row (ID 1) holding the pool bound. The row
// doubles as the lock target for allocations and bound updates.
type RaffleConfig struct {
	ID           uint8 `gorm:"primaryKey"`
	TotalTickets int   `gorm:"not null"`
}

type AdminCPF struct {
	CPF string `gorm:"primaryKey;size:11"`
}

func (AdminCPF) TableName() string {
	return "admin_cpfs"
}
